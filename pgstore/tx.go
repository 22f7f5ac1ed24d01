package pgstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jhchabran/quorum"
	"github.com/jmoiron/sqlx"
)

// pgTx implements quorum.Tx on a Postgresql transaction. Every error going
// out passes through classify so retryable conflicts are recognizable by
// the services.
type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) FindVotableForUpdate(vt quorum.VotableType, id int64) (*quorum.Votable, error) {
	table, ok := votableTables[vt]
	if !ok {
		return nil, quorum.InvalidInput("votable_type")
	}

	votable := quorum.Votable{Type: vt}
	query := fmt.Sprintf("SELECT id, author_id, vote_count FROM %s WHERE id = $1 FOR UPDATE", table)
	err := t.tx.Get(&votable, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}

	return &votable, nil
}

func (t *pgTx) FindVote(userID int64, vt quorum.VotableType, votableID int64) (*quorum.Vote, error) {
	vote := quorum.Vote{}
	err := t.tx.Get(&vote,
		"SELECT * FROM votes WHERE user_id = $1 AND votable_type = $2 AND votable_id = $3",
		userID, vt, votableID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}

	return &vote, nil
}

func (t *pgTx) InsertVote(vote *quorum.Vote) error {
	var id int64
	err := t.tx.Get(&id,
		"INSERT INTO votes (user_id, votable_type, votable_id, vote_type, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		vote.UserID, vote.VotableType, vote.VotableID, vote.VoteType, vote.CreatedAt,
	)
	if err != nil {
		return classify(err)
	}

	vote.ID = id

	return nil
}

func (t *pgTx) UpdateVote(vote *quorum.Vote) error {
	_, err := t.tx.Exec("UPDATE votes SET vote_type = $1 WHERE id = $2", vote.VoteType, vote.ID)
	return classify(err)
}

func (t *pgTx) DeleteVote(userID int64, vt quorum.VotableType, votableID int64) error {
	_, err := t.tx.Exec(
		"DELETE FROM votes WHERE user_id = $1 AND votable_type = $2 AND votable_id = $3",
		userID, vt, votableID,
	)
	return classify(err)
}

func (t *pgTx) ListVotes(vt quorum.VotableType, votableID int64) ([]*quorum.Vote, error) {
	votes := []*quorum.Vote{}
	err := t.tx.Select(&votes,
		"SELECT * FROM votes WHERE votable_type = $1 AND votable_id = $2",
		vt, votableID,
	)
	if err != nil {
		return nil, classify(err)
	}

	return votes, nil
}

func (t *pgTx) SetVoteCount(vt quorum.VotableType, votableID int64, count int64) error {
	table, ok := votableTables[vt]
	if !ok {
		return quorum.InvalidInput("votable_type")
	}

	query := fmt.Sprintf("UPDATE %s SET vote_count = $1 WHERE id = $2", table)
	_, err := t.tx.Exec(query, count, votableID)
	return classify(err)
}

func (t *pgTx) ListVotesOnAuthor(userID int64) ([]*quorum.Vote, error) {
	votes := []*quorum.Vote{}
	err := t.tx.Select(&votes,
		`SELECT * FROM votes
		WHERE (votable_type = 'question' AND votable_id IN (SELECT id FROM questions WHERE author_id = $1))
		OR (votable_type = 'answer' AND votable_id IN (SELECT id FROM answers WHERE author_id = $1))`,
		userID,
	)
	if err != nil {
		return nil, classify(err)
	}

	return votes, nil
}

func (t *pgTx) SetReputation(userID int64, reputation int64) error {
	_, err := t.tx.Exec("UPDATE users SET reputation = $1 WHERE id = $2", reputation, userID)
	return classify(err)
}

func (t *pgTx) FindAnswerWithQuestionForUpdate(answerID int64) (*quorum.AnswerWithQuestion, error) {
	answer := quorum.AnswerWithQuestion{}
	err := t.tx.Get(&answer,
		`SELECT answers.*, users.name AS author, q.author_id AS question_author_id, q.title AS question_title
		FROM answers
		JOIN questions q ON answers.question_id = q.id
		JOIN users ON answers.author_id = users.id
		WHERE answers.id = $1
		FOR UPDATE OF q`,
		answerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}

	return &answer, nil
}

func (t *pgTx) ClearAcceptedAnswer(questionID int64) error {
	_, err := t.tx.Exec("UPDATE answers SET is_accepted = FALSE WHERE question_id = $1", questionID)
	return classify(err)
}

func (t *pgTx) SetAcceptedAnswer(answerID int64) error {
	_, err := t.tx.Exec("UPDATE answers SET is_accepted = TRUE WHERE id = $1", answerID)
	return classify(err)
}

func (t *pgTx) FindQuestion(id int64) (*quorum.Question, error) {
	question := quorum.Question{}
	err := t.tx.Get(&question,
		"SELECT questions.*, users.name AS author FROM questions JOIN users ON questions.author_id = users.id WHERE questions.id=$1",
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}

	return &question, nil
}

func (t *pgTx) InsertAnswer(answer *quorum.Answer) error {
	var id int64
	err := t.tx.Get(&id,
		"INSERT INTO answers (question_id, body, author_id, vote_count, is_accepted, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		answer.QuestionID, answer.Body, answer.AuthorID, answer.VoteCount, answer.IsAccepted, answer.CreatedAt,
	)
	if err != nil {
		return classify(err)
	}

	answer.ID = id

	return nil
}

func (t *pgTx) InsertNotification(notification *quorum.Notification) error {
	var id int64
	err := t.tx.Get(&id,
		"INSERT INTO notifications (user_id, type, title, message, related_id, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		notification.UserID, notification.Type, notification.Title, notification.Message, notification.RelatedID, notification.CreatedAt,
	)
	if err != nil {
		return classify(err)
	}

	notification.ID = id

	return nil
}

func (t *pgTx) Commit() error {
	return classify(t.tx.Commit())
}

func (t *pgTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		// deferred rollbacks after a commit land here
		return nil
	}
	return err
}
