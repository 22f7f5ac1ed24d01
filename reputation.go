package quorum

// ComputeReputation derives a reputation score from the votes cast on a
// user's content: the sum of vote values, floored at zero. It is a full
// recomputation from the source votes, so the stored value can never drift
// from the vote set, whatever happened to previous increments.
func ComputeReputation(votes []*Vote) int64 {
	var sum int64
	for _, v := range votes {
		sum += v.VoteType.Value()
	}

	if sum < 0 {
		return 0
	}
	return sum
}

// RecomputeReputation recalculates and persists the reputation of a user
// from scratch, inside the caller's transaction. Storage errors propagate
// so the caller rolls back.
func RecomputeReputation(tx Tx, userID int64) (int64, error) {
	votes, err := tx.ListVotesOnAuthor(userID)
	if err != nil {
		return 0, err
	}

	reputation := ComputeReputation(votes)
	if err := tx.SetReputation(userID, reputation); err != nil {
		return 0, err
	}

	return reputation, nil
}
