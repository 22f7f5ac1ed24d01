package quorum

import (
	"github.com/rs/zerolog"
)

// maxVoteAttempts bounds how many times a vote is re-executed after the
// database reported a serialization conflict.
const maxVoteAttempts = 3

// A VoteResult is what a caller gets back after voting: the refreshed count
// of the votable and the vote the user now holds on it, nil after a
// toggle-off.
type VoteResult struct {
	VoteCount int64
	UserVote  *VoteType
}

// A VoteService applies votes on questions and answers. A vote from a user
// on a votable toggles: no vote inserts one, a repeat of the same direction
// removes it, the opposite direction flips it in place. The votable's
// cached count and its author's reputation are recomputed in the same
// transaction, so they can never be observed out of sync with the votes.
type VoteService struct {
	store  Store
	logger zerolog.Logger
}

func NewVoteService(store Store, logger zerolog.Logger) *VoteService {
	return &VoteService{
		store:  store,
		logger: logger.With().Str("component", "votes").Logger(),
	}
}

// CastVote records userID's vote on the given votable. Voting on one's own
// content fails with a ForbiddenError, a missing votable with a
// NotFoundError. On a storage conflict the whole operation is retried from
// scratch, preconditions included.
func (s *VoteService) CastVote(userID int64, vt VotableType, votableID int64, voteType VoteType) (*VoteResult, error) {
	var res *VoteResult
	var err error

	for attempt := 1; attempt <= maxVoteAttempts; attempt++ {
		res, err = s.castVote(userID, vt, votableID, voteType)
		if err == nil || !IsRetryable(err) {
			return res, err
		}

		s.logger.Warn().Err(err).Int("attempt", attempt).Msg("Storage conflict while voting, retrying")
	}

	return nil, err
}

func (s *VoteService) castVote(userID int64, vt VotableType, votableID int64, voteType VoteType) (*VoteResult, error) {
	tx, err := s.store.Begin()
	if err != nil {
		return nil, err
	}
	// rollback is a no-op once the transaction committed
	defer tx.Rollback()

	votable, err := tx.FindVotableForUpdate(vt, votableID)
	if err != nil {
		return nil, err
	}
	if votable == nil {
		return nil, NotFound(vt.String())
	}

	if votable.AuthorID == userID {
		return nil, Forbidden("cannot vote on your own content")
	}

	existing, err := tx.FindVote(userID, vt, votableID)
	if err != nil {
		return nil, err
	}

	var userVote *VoteType
	switch {
	case existing == nil:
		if err := tx.InsertVote(NewVote(userID, vt, votableID, voteType)); err != nil {
			return nil, err
		}
		v := voteType
		userVote = &v
	case existing.VoteType == voteType:
		// toggle off
		if err := tx.DeleteVote(userID, vt, votableID); err != nil {
			return nil, err
		}
	default:
		existing.VoteType = voteType
		if err := tx.UpdateVote(existing); err != nil {
			return nil, err
		}
		v := voteType
		userVote = &v
	}

	votes, err := tx.ListVotes(vt, votableID)
	if err != nil {
		return nil, err
	}

	count := CountVotes(votes)
	if err := tx.SetVoteCount(vt, votableID, count); err != nil {
		return nil, err
	}

	if _, err := RecomputeReputation(tx, votable.AuthorID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &VoteResult{VoteCount: count, UserVote: userVote}, nil
}
