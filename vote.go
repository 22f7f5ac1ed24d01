package quorum

import "time"

// A Vote records one user's judgment of one votable. At most one row exists
// per (user, votable type, votable id); repeated votes mutate or delete it
// instead of accumulating.
type Vote struct {
	ID          int64       `db:"id"`
	UserID      int64       `db:"user_id"`
	VotableType VotableType `db:"votable_type"`
	VotableID   int64       `db:"votable_id"`
	VoteType    VoteType    `db:"vote_type"`
	CreatedAt   time.Time   `db:"created_at"`
}

func NewVote(userID int64, vt VotableType, votableID int64, voteType VoteType) *Vote {
	return &Vote{
		UserID:      userID,
		VotableType: vt,
		VotableID:   votableID,
		VoteType:    voteType,
		CreatedAt:   NowFunc(),
	}
}

// CountVotes derives a votable's score from its votes, upvotes minus
// downvotes.
func CountVotes(votes []*Vote) int64 {
	var count int64
	for _, v := range votes {
		count += v.VoteType.Value()
	}
	return count
}
