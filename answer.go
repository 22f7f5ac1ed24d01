package quorum

import "time"

type Answer struct {
	ID         int64     `db:"id"`
	QuestionID int64     `db:"question_id"`
	Body       string    `db:"body"`
	Author     string    `db:"author"`
	AuthorID   int64     `db:"author_id"`
	VoteCount  int64     `db:"vote_count"`
	IsAccepted bool      `db:"is_accepted"`
	CreatedAt  time.Time `db:"created_at"`
}

func NewAnswer(questionID int64, body string, authorID int64) *Answer {
	return &Answer{
		QuestionID: questionID,
		Body:       body,
		AuthorID:   authorID,
		CreatedAt:  NowFunc(),
	}
}

// Votable returns the voting engine's view of the answer.
func (a *Answer) Votable() Votable {
	return Votable{Type: VotableAnswer, ID: a.ID, AuthorID: a.AuthorID, VoteCount: a.VoteCount}
}

// An AnswerWithQuestion joins an answer with the fields of its parent
// question that acceptance needs: who may accept, and what to mention in
// the notification.
type AnswerWithQuestion struct {
	Answer
	QuestionAuthorID int64  `db:"question_author_id"`
	QuestionTitle    string `db:"question_title"`
}

// An AnswerSeenByUser carries the vote the given user has cast on the
// answer, if any.
type AnswerSeenByUser struct {
	Answer
	UserVote *VoteType `db:"user_vote"`
}
