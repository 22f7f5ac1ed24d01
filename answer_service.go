package quorum

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// An AnswerHook runs after an answer was committed, to announce it to the
// outside world. Hook failures are logged and otherwise ignored.
type AnswerHook func(question *Question, answer *Answer) error

// An AnswerService posts answers on questions. The question's author gets
// an answer notification in the same transaction as the insert.
type AnswerService struct {
	store         Store
	notifications *NotificationService
	hooks         []AnswerHook
	logger        zerolog.Logger
}

func NewAnswerService(store Store, notifications *NotificationService, logger zerolog.Logger) *AnswerService {
	return &AnswerService{
		store:         store,
		notifications: notifications,
		logger:        logger.With().Str("component", "answers").Logger(),
	}
}

// AddHook registers a hook called after each posted answer.
func (s *AnswerService) AddHook(h AnswerHook) {
	s.hooks = append(s.hooks, h)
}

// PostAnswer inserts a new answer from userID on the given question and
// notifies the question's author, unless they answered their own question.
func (s *AnswerService) PostAnswer(userID int64, questionID int64, body string) (*Answer, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, InvalidInput("body")
	}

	author, err := s.store.FindUser(userID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, NotFound("user")
	}

	tx, err := s.store.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	question, err := tx.FindQuestion(questionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, NotFound("question")
	}

	answer := NewAnswer(questionID, body, userID)
	answer.Author = author.Name
	if err := tx.InsertAnswer(answer); err != nil {
		return nil, err
	}

	if question.AuthorID != userID {
		message := fmt.Sprintf("Someone answered your question: %s", question.Title)
		err := s.notifications.Enqueue(tx, question.AuthorID, NotificationAnswer, "New Answer", message, answer.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for _, h := range s.hooks {
		if err := h(question, answer); err != nil {
			s.logger.Warn().Err(err).Msg("answer hook failed")
		}
	}

	return answer, nil
}
