// Package pgstore implements the storage layer on top of a Postgresql
// database.
package pgstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jhchabran/quorum"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// votableTables maps each votable type onto the table storing it. Closed
// set; never build table names from request input.
var votableTables = map[quorum.VotableType]string{
	quorum.VotableQuestion: "questions",
	quorum.VotableAnswer:   "answers",
}

// A PGStore is responsible of interacting with the storage layer using a
// Postgresql database.
type PGStore struct {
	dbString string
	db       *sqlx.DB
}

// New returns a PGStore configured for a given address string, using the
// "user=postgres dbname=quorum ..." format.
func New(addr string) *PGStore {
	return &PGStore{
		dbString: addr,
	}
}

// Connect establish a connection with the database using the address given at initialization.
func (s *PGStore) Connect() error {
	db, err := sqlx.Connect("postgres", s.dbString)
	if err != nil {
		return err
	}

	s.db = db

	return nil
}

// DB returns the existing connection, making it suitable to perform requests not already supported by
// the store interface. If called while not connected, it will return nil.
func (s *PGStore) DB() *sqlx.DB {
	return s.db
}

// MigrateUp applies all pending migrations embedded in the package.
func (s *PGStore) MigrateUp() error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.Up(s.db.DB, "migrations")
}

// Begin opens a transaction. Serialization failures and deadlocks surfaced
// by any of its methods come back wrapping quorum.ErrConflict, telling the
// caller the whole operation can be retried.
func (s *PGStore) Begin() (quorum.Tx, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, classify(err)
	}

	return &pgTx{tx: tx}, nil
}

// classify translates retryable pq failures into quorum.ErrConflict and
// leaves everything else untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		if pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return fmt.Errorf("%w: %v", quorum.ErrConflict, err)
		}
	}

	return err
}

func (s *PGStore) FindUser(id int64) (*quorum.User, error) {
	user := quorum.User{}
	err := s.db.Get(&user, "SELECT * FROM users WHERE id=$1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (s *PGStore) FindUserByLogin(name string) (*quorum.User, error) {
	user := quorum.User{}
	err := s.db.Get(&user, "SELECT * FROM users WHERE name=$1", name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (s *PGStore) CreateOrUpdateUser(login string, email string) (int64, error) {
	var id int64
	now := time.Now()
	err := s.db.Get(&id,
		"INSERT INTO users (name, email, created_at, last_login_at) VALUES ($1, $2, $3, $3) ON CONFLICT (name) DO UPDATE SET last_login_at = $3 RETURNING id",
		login, email, now,
	)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *PGStore) UpdateUser(user *quorum.User) error {
	res, err := s.db.Exec("UPDATE users SET email = $1, settings = $2 WHERE id = $3",
		user.Email, user.Settings, user.ID,
	)
	if err != nil {
		return err
	}

	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return quorum.NotFound("user")
	}

	return nil
}

func (s *PGStore) UserStats(userID int64) (*quorum.UserStats, error) {
	stats := quorum.UserStats{}
	err := s.db.Get(&stats, `SELECT
		(SELECT COUNT(*) FROM questions WHERE author_id = $1) AS questions,
		(SELECT COUNT(*) FROM answers WHERE author_id = $1) AS answers,
		(SELECT reputation FROM users WHERE id = $1) AS reputation,
		(SELECT COUNT(*) FROM answers WHERE author_id = $1 AND is_accepted) AS accepted_answers`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (s *PGStore) InsertQuestion(question *quorum.Question) error {
	var id int64
	err := s.db.Get(&id,
		"INSERT INTO questions (title, body, author_id, vote_count, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		question.Title, question.Body, question.AuthorID, question.VoteCount, question.CreatedAt,
	)
	if err != nil {
		return err
	}

	question.ID = id

	return nil
}

func (s *PGStore) FindQuestion(id int64) (*quorum.Question, error) {
	question := quorum.Question{}
	err := s.db.Get(&question,
		"SELECT questions.*, users.name AS author FROM questions JOIN users ON questions.author_id = users.id WHERE questions.id=$1",
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &question, nil
}

func (s *PGStore) ListQuestions(page int, perPage int) ([]*quorum.Question, error) {
	questions := []*quorum.Question{}
	err := s.db.Select(&questions,
		"SELECT questions.*, users.name AS author FROM questions JOIN users ON questions.author_id = users.id ORDER BY questions.created_at DESC LIMIT $1 OFFSET $2",
		perPage, page*perPage,
	)
	if err != nil {
		return nil, err
	}

	return questions, nil
}

func (s *PGStore) ListQuestionsWithVotes(userID int64, page int, perPage int) ([]*quorum.QuestionSeenByUser, error) {
	questions := []*quorum.QuestionSeenByUser{}
	err := s.db.Select(&questions,
		`SELECT questions.*, users.name AS author, votes.vote_type AS user_vote
		FROM questions
		JOIN users ON questions.author_id = users.id
		LEFT JOIN votes ON votes.votable_type = 'question' AND votes.votable_id = questions.id AND votes.user_id = $1
		ORDER BY questions.created_at DESC LIMIT $2 OFFSET $3`,
		userID, perPage, page*perPage,
	)
	if err != nil {
		return nil, err
	}

	return questions, nil
}

func (s *PGStore) FindAnswer(id int64) (*quorum.Answer, error) {
	answer := quorum.Answer{}
	err := s.db.Get(&answer,
		"SELECT answers.*, users.name AS author FROM answers JOIN users ON answers.author_id = users.id WHERE answers.id=$1",
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &answer, nil
}

func (s *PGStore) ListAnswers(questionID int64) ([]*quorum.Answer, error) {
	answers := []*quorum.Answer{}
	err := s.db.Select(&answers,
		"SELECT answers.*, users.name AS author FROM answers JOIN users ON answers.author_id = users.id WHERE question_id=$1 ORDER BY answers.is_accepted DESC, answers.created_at ASC",
		questionID,
	)
	if err != nil {
		return nil, err
	}

	return answers, nil
}

func (s *PGStore) ListAnswersWithVotes(questionID int64, userID int64) ([]*quorum.AnswerSeenByUser, error) {
	answers := []*quorum.AnswerSeenByUser{}
	err := s.db.Select(&answers,
		`SELECT answers.*, users.name AS author, votes.vote_type AS user_vote
		FROM answers
		JOIN users ON answers.author_id = users.id
		LEFT JOIN votes ON votes.votable_type = 'answer' AND votes.votable_id = answers.id AND votes.user_id = $2
		WHERE question_id=$1
		ORDER BY answers.is_accepted DESC, answers.created_at ASC`,
		questionID, userID,
	)
	if err != nil {
		return nil, err
	}

	return answers, nil
}

func (s *PGStore) FindVote(userID int64, vt quorum.VotableType, votableID int64) (*quorum.Vote, error) {
	vote := quorum.Vote{}
	err := s.db.Get(&vote,
		"SELECT * FROM votes WHERE user_id = $1 AND votable_type = $2 AND votable_id = $3",
		userID, vt, votableID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &vote, nil
}

func (s *PGStore) ListNotifications(userID int64, limit int) ([]*quorum.Notification, error) {
	notifications := []*quorum.Notification{}
	err := s.db.Select(&notifications,
		"SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2",
		userID, limit,
	)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (s *PGStore) CountUnreadNotifications(userID int64) (int64, error) {
	var count int64
	err := s.db.Get(&count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read",
		userID,
	)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (s *PGStore) MarkNotificationsRead(userID int64) (int64, error) {
	res, err := s.db.Exec(
		"UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read",
		userID,
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
