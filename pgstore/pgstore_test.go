package pgstore

import (
	"sync"
	"testing"

	"github.com/jhchabran/quorum"
	"github.com/rs/zerolog"

	qt "github.com/frankban/quicktest"
)

func truncateAll(c *qt.C, store *PGStore) {
	c.Cleanup(func() {
		store.DB().MustExec("TRUNCATE TABLE notifications, votes, answers, questions, users;")
	})
}

func TestPGStore(t *testing.T) {
	c := qt.New(t)
	store := New("user=postgres dbname=quorum_test sslmode=disable password=postgres host=127.0.0.1")
	c.Assert(store.Connect(), qt.IsNil)
	c.Assert(store.MigrateUp(), qt.IsNil)

	c.Run("CreateOrUpdateUser upserts on login", func(c *qt.C) {
		truncateAll(c, store)

		id, err := store.CreateOrUpdateUser("alice", "alice@example.com")
		c.Assert(err, qt.IsNil)
		c.Assert(id, qt.Not(qt.Equals), int64(0))

		again, err := store.CreateOrUpdateUser("alice", "alice@example.com")
		c.Assert(err, qt.IsNil)
		c.Assert(again, qt.Equals, id)

		user, err := store.FindUserByLogin("alice")
		c.Assert(err, qt.IsNil)
		c.Assert(user, qt.Not(qt.IsNil))
		c.Assert(user.Email, qt.Equals, "alice@example.com")
	})

	c.Run("Find non-existing user", func(c *qt.C) {
		user, err := store.FindUserByLogin("non-existing")
		c.Assert(err, qt.IsNil)
		c.Assert(user, qt.IsNil)
	})

	c.Run("InsertQuestion", func(c *qt.C) {
		truncateAll(c, store)

		authorID, err := store.CreateOrUpdateUser("alice", "alice@example.com")
		c.Assert(err, qt.IsNil)

		question := quorum.NewQuestion("foo", "body", authorID)
		c.Assert(store.InsertQuestion(question), qt.IsNil)
		c.Assert(question.ID, qt.Not(qt.Equals), int64(0))

		found, err := store.FindQuestion(question.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.Title, qt.Equals, "foo")
		c.Assert(found.Author, qt.Equals, "alice")
		c.Assert(found.VoteCount, qt.Equals, int64(0))
	})

	c.Run("Vote lifecycle in a transaction", func(c *qt.C) {
		truncateAll(c, store)

		authorID, err := store.CreateOrUpdateUser("alice", "alice@example.com")
		c.Assert(err, qt.IsNil)
		voterID, err := store.CreateOrUpdateUser("bob", "bob@example.com")
		c.Assert(err, qt.IsNil)

		question := quorum.NewQuestion("foo", "body", authorID)
		c.Assert(store.InsertQuestion(question), qt.IsNil)

		tx, err := store.Begin()
		c.Assert(err, qt.IsNil)

		votable, err := tx.FindVotableForUpdate(quorum.VotableQuestion, question.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(votable.AuthorID, qt.Equals, authorID)

		vote := quorum.NewVote(voterID, quorum.VotableQuestion, question.ID, quorum.VoteUp)
		c.Assert(tx.InsertVote(vote), qt.IsNil)
		c.Assert(vote.ID, qt.Not(qt.Equals), int64(0))

		vote.VoteType = quorum.VoteDown
		c.Assert(tx.UpdateVote(vote), qt.IsNil)

		votes, err := tx.ListVotes(quorum.VotableQuestion, question.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(votes, qt.HasLen, 1)
		c.Assert(votes[0].VoteType, qt.Equals, quorum.VoteDown)

		c.Assert(tx.SetVoteCount(quorum.VotableQuestion, question.ID, quorum.CountVotes(votes)), qt.IsNil)
		c.Assert(tx.Commit(), qt.IsNil)

		found, err := store.FindQuestion(question.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.VoteCount, qt.Equals, int64(-1))

		tx, err = store.Begin()
		c.Assert(err, qt.IsNil)
		c.Assert(tx.DeleteVote(voterID, quorum.VotableQuestion, question.ID), qt.IsNil)
		c.Assert(tx.Commit(), qt.IsNil)

		deleted, err := store.FindVote(voterID, quorum.VotableQuestion, question.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(deleted, qt.IsNil)
	})

	c.Run("ListVotesOnAuthor and reputation", func(c *qt.C) {
		truncateAll(c, store)

		authorID, err := store.CreateOrUpdateUser("alice", "alice@example.com")
		c.Assert(err, qt.IsNil)
		voterID, err := store.CreateOrUpdateUser("bob", "bob@example.com")
		c.Assert(err, qt.IsNil)

		question := quorum.NewQuestion("foo", "body", authorID)
		c.Assert(store.InsertQuestion(question), qt.IsNil)

		// a vote on someone else's content, must not count for alice
		otherQuestion := quorum.NewQuestion("bar", "body", voterID)
		c.Assert(store.InsertQuestion(otherQuestion), qt.IsNil)

		tx, err := store.Begin()
		c.Assert(err, qt.IsNil)
		c.Assert(tx.InsertVote(quorum.NewVote(voterID, quorum.VotableQuestion, question.ID, quorum.VoteUp)), qt.IsNil)
		c.Assert(tx.InsertVote(quorum.NewVote(authorID, quorum.VotableQuestion, otherQuestion.ID, quorum.VoteUp)), qt.IsNil)

		reputation, err := quorum.RecomputeReputation(tx, authorID)
		c.Assert(err, qt.IsNil)
		c.Assert(reputation, qt.Equals, int64(1))
		c.Assert(tx.Commit(), qt.IsNil)

		user, err := store.FindUser(authorID)
		c.Assert(err, qt.IsNil)
		c.Assert(user.Reputation, qt.Equals, int64(1))
	})

	c.Run("Accepted answer is exclusive per question", func(c *qt.C) {
		truncateAll(c, store)

		authorID, err := store.CreateOrUpdateUser("alice", "alice@example.com")
		c.Assert(err, qt.IsNil)
		answererID, err := store.CreateOrUpdateUser("bob", "bob@example.com")
		c.Assert(err, qt.IsNil)

		question := quorum.NewQuestion("foo", "body", authorID)
		c.Assert(store.InsertQuestion(question), qt.IsNil)

		tx, err := store.Begin()
		c.Assert(err, qt.IsNil)
		first := quorum.NewAnswer(question.ID, "first", answererID)
		second := quorum.NewAnswer(question.ID, "second", answererID)
		c.Assert(tx.InsertAnswer(first), qt.IsNil)
		c.Assert(tx.InsertAnswer(second), qt.IsNil)
		c.Assert(tx.ClearAcceptedAnswer(question.ID), qt.IsNil)
		c.Assert(tx.SetAcceptedAnswer(first.ID), qt.IsNil)
		c.Assert(tx.Commit(), qt.IsNil)

		tx, err = store.Begin()
		c.Assert(err, qt.IsNil)
		answer, err := tx.FindAnswerWithQuestionForUpdate(second.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(answer.QuestionAuthorID, qt.Equals, authorID)
		c.Assert(answer.QuestionTitle, qt.Equals, "foo")
		c.Assert(tx.ClearAcceptedAnswer(question.ID), qt.IsNil)
		c.Assert(tx.SetAcceptedAnswer(second.ID), qt.IsNil)
		c.Assert(tx.Commit(), qt.IsNil)

		answers, err := store.ListAnswers(question.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(answers, qt.HasLen, 2)
		// accepted answers sort first
		c.Assert(answers[0].ID, qt.Equals, second.ID)
		c.Assert(answers[0].IsAccepted, qt.IsTrue)
		c.Assert(answers[1].IsAccepted, qt.IsFalse)
	})

	c.Run("List questions with votes", func(c *qt.C) {
		truncateAll(c, store)

		authorID, err := store.CreateOrUpdateUser("alice", "alice@example.com")
		c.Assert(err, qt.IsNil)
		voterID, err := store.CreateOrUpdateUser("bob", "bob@example.com")
		c.Assert(err, qt.IsNil)

		voted := quorum.NewQuestion("voted", "body", authorID)
		c.Assert(store.InsertQuestion(voted), qt.IsNil)
		unvoted := quorum.NewQuestion("unvoted", "body", authorID)
		c.Assert(store.InsertQuestion(unvoted), qt.IsNil)

		tx, err := store.Begin()
		c.Assert(err, qt.IsNil)
		c.Assert(tx.InsertVote(quorum.NewVote(voterID, quorum.VotableQuestion, voted.ID, quorum.VoteUp)), qt.IsNil)
		c.Assert(tx.Commit(), qt.IsNil)

		questions, err := store.ListQuestionsWithVotes(voterID, 0, 10)
		c.Assert(err, qt.IsNil)
		c.Assert(questions, qt.HasLen, 2)
		for _, q := range questions {
			if q.ID == voted.ID {
				c.Assert(q.UserVote, qt.Not(qt.IsNil))
				c.Assert(*q.UserVote, qt.Equals, quorum.VoteUp)
			} else {
				c.Assert(q.UserVote, qt.IsNil)
			}
		}
	})

	c.Run("Notifications", func(c *qt.C) {
		truncateAll(c, store)

		userID, err := store.CreateOrUpdateUser("alice", "alice@example.com")
		c.Assert(err, qt.IsNil)

		tx, err := store.Begin()
		c.Assert(err, qt.IsNil)
		notification := quorum.NewNotification(userID, quorum.NotificationAnswer, "New Answer", "message", 42)
		c.Assert(tx.InsertNotification(notification), qt.IsNil)
		c.Assert(tx.Commit(), qt.IsNil)

		count, err := store.CountUnreadNotifications(userID)
		c.Assert(err, qt.IsNil)
		c.Assert(count, qt.Equals, int64(1))

		notifications, err := store.ListNotifications(userID, 20)
		c.Assert(err, qt.IsNil)
		c.Assert(notifications, qt.HasLen, 1)
		c.Assert(notifications[0].RelatedID.Int64, qt.Equals, int64(42))

		changed, err := store.MarkNotificationsRead(userID)
		c.Assert(err, qt.IsNil)
		c.Assert(changed, qt.Equals, int64(1))

		count, err = store.CountUnreadNotifications(userID)
		c.Assert(err, qt.IsNil)
		c.Assert(count, qt.Equals, int64(0))
	})

	c.Run("User stats", func(c *qt.C) {
		truncateAll(c, store)

		userID, err := store.CreateOrUpdateUser("alice", "alice@example.com")
		c.Assert(err, qt.IsNil)

		question := quorum.NewQuestion("foo", "body", userID)
		c.Assert(store.InsertQuestion(question), qt.IsNil)

		tx, err := store.Begin()
		c.Assert(err, qt.IsNil)
		answer := quorum.NewAnswer(question.ID, "body", userID)
		c.Assert(tx.InsertAnswer(answer), qt.IsNil)
		c.Assert(tx.SetAcceptedAnswer(answer.ID), qt.IsNil)
		c.Assert(tx.SetReputation(userID, 12), qt.IsNil)
		c.Assert(tx.Commit(), qt.IsNil)

		stats, err := store.UserStats(userID)
		c.Assert(err, qt.IsNil)
		c.Assert(stats.Questions, qt.Equals, int64(1))
		c.Assert(stats.Answers, qt.Equals, int64(1))
		c.Assert(stats.AcceptedAnswers, qt.Equals, int64(1))
		c.Assert(stats.Reputation, qt.Equals, int64(12))
	})

	c.Run("Concurrent votes serialize on the row lock", func(c *qt.C) {
		truncateAll(c, store)

		authorID, err := store.CreateOrUpdateUser("alice", "alice@example.com")
		c.Assert(err, qt.IsNil)
		upID, err := store.CreateOrUpdateUser("bob", "bob@example.com")
		c.Assert(err, qt.IsNil)
		downID, err := store.CreateOrUpdateUser("carol", "carol@example.com")
		c.Assert(err, qt.IsNil)

		question := quorum.NewQuestion("foo", "body", authorID)
		c.Assert(store.InsertQuestion(question), qt.IsNil)

		votes := quorum.NewVoteService(store, zerolog.Nop())

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = votes.CastVote(upID, quorum.VotableQuestion, question.ID, quorum.VoteUp)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = votes.CastVote(downID, quorum.VotableQuestion, question.ID, quorum.VoteDown)
		}()
		wg.Wait()

		c.Assert(errs[0], qt.IsNil)
		c.Assert(errs[1], qt.IsNil)

		found, err := store.FindQuestion(question.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.VoteCount, qt.Equals, int64(0), qt.Commentf("an up and a down vote must cancel out"))
	})
}
