package quorum

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jhchabran/quorum/authentication"
	"github.com/jhchabran/quorum/ranking"
	"github.com/julienschmidt/httprouter"
)

// ranking parameters for the hot sort, straight out of the usual gravity
// based decay.
const (
	rankingGravity  = 1.8
	rankingTimebase = 24
)

// HandleOAuthStart handles requests starting the OAuth authentication process.
func (s *Server) HandleOAuthStart() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		s.authService.Start(res, req)
	}
}

// HandleOAuthCallback handles requests of the OAuth provider redirecting the
// user back to us, after successfully authenticating him on its side.
func (s *Server) HandleOAuthCallback() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		s.authService.Callback(res, req, func(u *authentication.User) error {
			_, err := s.store.CreateOrUpdateUser(u.Login, u.Email)
			return err
		})
	}
}

// HandleOAuthDestroy handles requests destroying the current session.
func (s *Server) HandleOAuthDestroy() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		s.authService.Destroy(res, req)
	}
}

// questionPresenter is the JSON shape of a question.
type questionPresenter struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	VoteCount int64     `json:"vote_count"`
	UserVote  *VoteType `json:"user_vote"`
	CreatedAt time.Time `json:"created_at"`
}

// answerPresenter is the JSON shape of an answer.
type answerPresenter struct {
	ID         int64     `json:"id"`
	QuestionID int64     `json:"question_id"`
	Body       string    `json:"body"`
	Author     string    `json:"author"`
	VoteCount  int64     `json:"vote_count"`
	IsAccepted bool      `json:"is_accepted"`
	UserVote   *VoteType `json:"user_vote"`
	CreatedAt  time.Time `json:"created_at"`
}

// GetScore implements ranking.Rankable.
func (p *questionPresenter) GetScore() int64 { return p.VoteCount }

// Age implements ranking.Rankable.
func (p *questionPresenter) Age() time.Time { return p.CreatedAt }

func newQuestionPresenter(q *Question) *questionPresenter {
	return &questionPresenter{
		ID:        q.ID,
		Title:     q.Title,
		Body:      q.Body,
		Author:    q.Author,
		VoteCount: q.VoteCount,
		CreatedAt: q.CreatedAt,
	}
}

func newAnswerPresenter(a *Answer) *answerPresenter {
	return &answerPresenter{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Body:       a.Body,
		Author:     a.Author,
		VoteCount:  a.VoteCount,
		IsAccepted: a.IsAccepted,
		CreatedAt:  a.CreatedAt,
	}
}

func (s *Server) respondJSON(res http.ResponseWriter, status int, payload interface{}) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	if err := json.NewEncoder(res).Encode(payload); err != nil {
		s.Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) respondFailure(res http.ResponseWriter, status int, message string) {
	s.respondJSON(res, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// respondServiceError maps a service error onto the failure envelope, using
// the error's own message for business-rule violations and a generic one
// for everything else.
func (s *Server) respondServiceError(res http.ResponseWriter, err error) {
	switch {
	case IsInvalidInput(err):
		s.respondFailure(res, http.StatusUnprocessableEntity, err.Error())
	case IsNotFound(err):
		s.respondFailure(res, http.StatusNotFound, err.Error())
	case IsForbidden(err):
		s.respondFailure(res, http.StatusForbidden, err.Error())
	case IsRetryable(err):
		s.Logger.Warn().Err(err).Msg("Operation kept conflicting")
		s.respondFailure(res, http.StatusServiceUnavailable, "Temporary failure, please retry")
	default:
		s.Logger.Error().Err(err).Msg("Storage failure")
		s.respondFailure(res, http.StatusInternalServerError, "Database error")
	}
}

// HandleVoteAction handles requests to vote on a question or an answer.
// Repeating the same vote toggles it off, voting the other direction flips
// it.
func (s *Server) HandleVoteAction() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		userRecord := ctxUser(req.Context())

		var payload struct {
			VotableID   int64  `json:"votable_id"`
			VotableType string `json:"votable_type"`
			VoteType    string `json:"vote_type"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			s.respondFailure(res, http.StatusBadRequest, "Missing required parameters")
			return
		}

		if payload.VotableID <= 0 {
			s.respondFailure(res, http.StatusUnprocessableEntity, "Missing required parameters")
			return
		}

		vt, err := ParseVotableType(payload.VotableType)
		if err != nil {
			s.respondFailure(res, http.StatusUnprocessableEntity, "Invalid votable type")
			return
		}

		voteType, err := ParseVoteType(payload.VoteType)
		if err != nil {
			s.respondFailure(res, http.StatusUnprocessableEntity, "Invalid vote type")
			return
		}

		result, err := s.votes.CastVote(userRecord.ID, vt, payload.VotableID, voteType)
		if err != nil {
			s.respondServiceError(res, err)
			return
		}

		s.respondJSON(res, http.StatusOK, map[string]interface{}{
			"success":    true,
			"vote_count": result.VoteCount,
			"user_vote":  result.UserVote,
			"message":    "Vote recorded successfully",
		})
	}
}

// HandleAcceptAnswerAction handles requests from a question author marking
// one of its answers as the accepted one.
func (s *Server) HandleAcceptAnswerAction() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		userRecord := ctxUser(req.Context())

		answerID, err := strconv.ParseInt(params.ByName("id"), 10, 64)
		if err != nil || answerID <= 0 {
			s.respondFailure(res, http.StatusUnprocessableEntity, "Answer ID is required")
			return
		}

		if err := s.accepts.AcceptAnswer(userRecord.ID, answerID); err != nil {
			s.respondServiceError(res, err)
			return
		}

		s.respondJSON(res, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Answer accepted successfully",
		})
	}
}

// HandleSubmitAnswerAction handles requests posting a new answer on a
// question.
func (s *Server) HandleSubmitAnswerAction() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		userRecord := ctxUser(req.Context())

		questionID, err := strconv.ParseInt(params.ByName("id"), 10, 64)
		if err != nil || questionID <= 0 {
			s.respondFailure(res, http.StatusUnprocessableEntity, "Question ID is required")
			return
		}

		var payload struct {
			Body string `json:"body"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			s.respondFailure(res, http.StatusBadRequest, "Missing required parameters")
			return
		}

		answer, err := s.answers.PostAnswer(userRecord.ID, questionID, payload.Body)
		if err != nil {
			s.respondServiceError(res, err)
			return
		}

		s.respondJSON(res, http.StatusOK, map[string]interface{}{
			"success": true,
			"answer":  newAnswerPresenter(answer),
			"message": "Answer posted successfully",
		})
	}
}

// HandleNotifications handles requests pulling the current user's most
// recent notifications along with its unread count.
func (s *Server) HandleNotifications() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		userRecord := ctxUser(req.Context())

		notifications, err := s.notifications.ListRecent(userRecord.ID, notificationsPageSize)
		if err != nil {
			s.Logger.Error().Err(err).Msg("Failed to list notifications")
			s.respondFailure(res, http.StatusInternalServerError, "Failed to load notifications")
			return
		}

		unread, err := s.notifications.UnreadCount(userRecord.ID)
		if err != nil {
			s.Logger.Error().Err(err).Msg("Failed to count unread notifications")
			s.respondFailure(res, http.StatusInternalServerError, "Failed to load notifications")
			return
		}

		s.respondJSON(res, http.StatusOK, map[string]interface{}{
			"success":       true,
			"notifications": notifications,
			"unread_count":  unread,
		})
	}
}

// HandleNotificationsAction handles requests mutating the current user's
// notifications. The only supported action is marking them all read.
func (s *Server) HandleNotificationsAction() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		userRecord := ctxUser(req.Context())

		var payload struct {
			Action string `json:"action"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || payload.Action != "mark_read" {
			s.respondFailure(res, http.StatusUnprocessableEntity, "Invalid action")
			return
		}

		if _, err := s.notifications.MarkAllRead(userRecord.ID); err != nil {
			s.Logger.Error().Err(err).Msg("Failed to mark notifications as read")
			s.respondFailure(res, http.StatusInternalServerError, "Failed to mark notifications as read")
			return
		}

		s.respondJSON(res, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Notifications marked as read",
		})
	}
}

// HandleListQuestions handles requests listing questions, paginated. With
// sort=hot they come back ranked by score decayed over age, otherwise
// newest first. Authenticated callers also get their own vote on each
// question.
func (s *Server) HandleListQuestions() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		userRecord := ctxUser(req.Context())

		var page int
		rawPage, ok := req.URL.Query()["page"]
		if ok && len(rawPage) > 0 {
			page, _ = strconv.Atoi(rawPage[0])
		}

		presenters := []*questionPresenter{}
		if userRecord != nil {
			questions, err := s.store.ListQuestionsWithVotes(userRecord.ID, page, s.config.QuestionsPerPage)
			if err != nil {
				s.Logger.Error().Err(err).Msg("Failed to list questions")
				s.respondFailure(res, http.StatusInternalServerError, "Failed to list questions")
				return
			}
			for _, q := range questions {
				pr := newQuestionPresenter(&q.Question)
				pr.UserVote = q.UserVote
				presenters = append(presenters, pr)
			}
		} else {
			questions, err := s.store.ListQuestions(page, s.config.QuestionsPerPage)
			if err != nil {
				s.Logger.Error().Err(err).Msg("Failed to list questions")
				s.respondFailure(res, http.StatusInternalServerError, "Failed to list questions")
				return
			}
			for _, q := range questions {
				presenters = append(presenters, newQuestionPresenter(q))
			}
		}

		if req.URL.Query().Get("sort") == "hot" {
			ranking.Sort(presenters, rankingGravity, rankingTimebase, NowFunc())
		}

		s.respondJSON(res, http.StatusOK, map[string]interface{}{
			"success":   true,
			"questions": presenters,
		})
	}
}

// HandleShowQuestion handles requests for a single question and its
// answers, accepted answer first then oldest first.
func (s *Server) HandleShowQuestion() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		userRecord := ctxUser(req.Context())

		questionID, err := strconv.ParseInt(params.ByName("id"), 10, 64)
		if err != nil || questionID <= 0 {
			s.respondFailure(res, http.StatusUnprocessableEntity, "Question ID is required")
			return
		}

		question, err := s.store.FindQuestion(questionID)
		if err != nil {
			s.Logger.Error().Err(err).Msg("Failed to find question")
			s.respondFailure(res, http.StatusInternalServerError, "Database error")
			return
		}
		if question == nil {
			s.respondFailure(res, http.StatusNotFound, "Question not found")
			return
		}

		questionPr := newQuestionPresenter(question)
		answerPrs := []*answerPresenter{}

		if userRecord != nil {
			vote, err := s.store.FindVote(userRecord.ID, VotableQuestion, questionID)
			if err != nil {
				s.Logger.Error().Err(err).Msg("Failed to fetch question vote")
				s.respondFailure(res, http.StatusInternalServerError, "Database error")
				return
			}
			if vote != nil {
				questionPr.UserVote = &vote.VoteType
			}

			answers, err := s.store.ListAnswersWithVotes(questionID, userRecord.ID)
			if err != nil {
				s.Logger.Error().Err(err).Msg("Failed to list answers")
				s.respondFailure(res, http.StatusInternalServerError, "Database error")
				return
			}
			for _, a := range answers {
				pr := newAnswerPresenter(&a.Answer)
				pr.UserVote = a.UserVote
				answerPrs = append(answerPrs, pr)
			}
		} else {
			answers, err := s.store.ListAnswers(questionID)
			if err != nil {
				s.Logger.Error().Err(err).Msg("Failed to list answers")
				s.respondFailure(res, http.StatusInternalServerError, "Database error")
				return
			}
			for _, a := range answers {
				answerPrs = append(answerPrs, newAnswerPresenter(a))
			}
		}

		s.respondJSON(res, http.StatusOK, map[string]interface{}{
			"success":  true,
			"question": questionPr,
			"answers":  answerPrs,
		})
	}
}

// HandleUserStats handles requests for a user's public activity counters.
func (s *Server) HandleUserStats() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		user, err := s.store.FindUserByLogin(params.ByName("login"))
		if err != nil {
			s.Logger.Error().Err(err).Msg("Failed to fetch user from db")
			s.respondFailure(res, http.StatusInternalServerError, "Database error")
			return
		}
		if user == nil {
			s.respondFailure(res, http.StatusNotFound, "User not found")
			return
		}

		stats, err := s.store.UserStats(user.ID)
		if err != nil {
			s.Logger.Error().Err(err).Msg("Failed to fetch user stats")
			s.respondFailure(res, http.StatusInternalServerError, "Database error")
			return
		}

		s.respondJSON(res, http.StatusOK, map[string]interface{}{
			"success": true,
			"stats":   stats,
		})
	}
}
