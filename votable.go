package quorum

import "fmt"

// A VotableType discriminates the two kinds of content a vote can target.
type VotableType string

const (
	VotableQuestion VotableType = "question"
	VotableAnswer   VotableType = "answer"
)

// ParseVotableType validates.
func ParseVotableType(s string) (VotableType, error) {
	switch VotableType(s) {
	case VotableQuestion, VotableAnswer:
		return VotableType(s), nil
	default:
		return "", InvalidInput("votable_type")
	}
}

func (t VotableType) String() string { return string(t) }

// A VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// ParseVoteType validates.
func ParseVoteType(s string) (VoteType, error) {
	switch VoteType(s) {
	case VoteUp, VoteDown:
		return VoteType(s), nil
	default:
		return "", InvalidInput("vote_type")
	}
}

func (t VoteType) String() string { return string(t) }

// Value is the contribution of a single vote of that type to a score,
// +1 for an upvote and -1 for a downvote.
func (t VoteType) Value() int64 {
	if t == VoteUp {
		return 1
	}
	return -1
}

// A Votable identifies a piece of content votes can target, along with the
// fields the voting engine needs: its author and its cached vote count.
// The cached count is a projection over the votes table, never the source
// of truth.
type Votable struct {
	Type      VotableType `db:"votable_type"`
	ID        int64       `db:"id"`
	AuthorID  int64       `db:"author_id"`
	VoteCount int64       `db:"vote_count"`
}

func (v Votable) Ref() string {
	return fmt.Sprintf("%s/%d", v.Type, v.ID)
}
