package quorum

import "time"

type Question struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Author    string    `db:"author"`
	AuthorID  int64     `db:"author_id"`
	VoteCount int64     `db:"vote_count"`
	CreatedAt time.Time `db:"created_at"`
}

func NewQuestion(title string, body string, authorID int64) *Question {
	return &Question{
		Title:     title,
		Body:      body,
		AuthorID:  authorID,
		CreatedAt: NowFunc(),
	}
}

// GetScore implements ranking.Rankable.
func (q *Question) GetScore() int64 {
	return q.VoteCount
}

// Age implements ranking.Rankable.
func (q *Question) Age() time.Time {
	return q.CreatedAt
}

// Votable returns the voting engine's view of the question.
func (q *Question) Votable() Votable {
	return Votable{Type: VotableQuestion, ID: q.ID, AuthorID: q.AuthorID, VoteCount: q.VoteCount}
}

// A QuestionSeenByUser carries the vote the given user has cast on the
// question, if any.
type QuestionSeenByUser struct {
	Question
	UserVote *VoteType `db:"user_vote"`
}
