package quorum

import (
	"fmt"

	"github.com/rs/zerolog"
)

// An AcceptAnswerService maintains the acceptance flag on answers: per
// question at most one answer is accepted at any time, and only the
// question's author can change which one.
type AcceptAnswerService struct {
	store         Store
	notifications *NotificationService
	logger        zerolog.Logger
}

func NewAcceptAnswerService(store Store, notifications *NotificationService, logger zerolog.Logger) *AcceptAnswerService {
	return &AcceptAnswerService{
		store:         store,
		notifications: notifications,
		logger:        logger.With().Str("component", "accept").Logger(),
	}
}

// AcceptAnswer marks the answer as its question's accepted one, replacing
// any previously accepted answer. The answer's author gets an accept
// notification, unless they are the acting user or the answer was already
// accepted. Everything happens in one transaction; on failure neither flags
// nor notification survive.
func (s *AcceptAnswerService) AcceptAnswer(userID int64, answerID int64) error {
	var err error
	for attempt := 1; attempt <= maxVoteAttempts; attempt++ {
		err = s.acceptAnswer(userID, answerID)
		if err == nil || !IsRetryable(err) {
			return err
		}

		s.logger.Warn().Err(err).Int("attempt", attempt).Msg("Storage conflict while accepting, retrying")
	}

	return err
}

func (s *AcceptAnswerService) acceptAnswer(userID int64, answerID int64) error {
	tx, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	answer, err := tx.FindAnswerWithQuestionForUpdate(answerID)
	if err != nil {
		return err
	}
	if answer == nil {
		return NotFound("answer")
	}

	if answer.QuestionAuthorID != userID {
		return Forbidden("only the question author can accept answers")
	}

	// Re-accepting the already accepted answer still runs the clear/set
	// pair below, but must not notify its author a second time.
	alreadyAccepted := answer.IsAccepted

	if err := tx.ClearAcceptedAnswer(answer.QuestionID); err != nil {
		return err
	}

	if err := tx.SetAcceptedAnswer(answerID); err != nil {
		return err
	}

	if !alreadyAccepted && answer.AuthorID != userID {
		message := fmt.Sprintf("Your answer to '%s' has been accepted!", answer.QuestionTitle)
		err := s.notifications.Enqueue(tx, answer.AuthorID, NotificationAccept, "Answer Accepted", message, answerID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
