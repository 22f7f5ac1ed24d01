// Seeds the database with a handful of users, questions, answers and votes,
// for local development.
package main

import (
	"fmt"
	"math/rand"

	"github.com/jhchabran/quorum"
	"github.com/jhchabran/quorum/cmd"
	"github.com/jhchabran/quorum/pgstore"
	"github.com/rs/zerolog/log"
)

var users = []string{"tintin", "milou", "haddock", "castafiore", "tournesol"}

var questions = []string{
	"How do I serialize session data in a cookie?",
	"Why does my transaction keep deadlocking?",
	"What is the idiomatic way to wrap errors?",
	"How can I paginate a large table efficiently?",
	"When should a cached counter be recomputed?",
}

var answers = []string{
	"Register the type with encoding/gob and store the bytes.",
	"Lock the rows in a consistent order and retry on conflict.",
	"Wrap with fmt.Errorf and %w, test with errors.Is.",
	"Keyset pagination beats OFFSET past a few thousand rows.",
	"Recompute inside the same transaction as the mutation.",
}

func main() {
	cfg := cmd.DefaultConfig()
	err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot read configuration")
	}
	logger := cmd.SetupLogger(cfg)
	logger.Info().Msg("Seeding database")

	pgcfg := fmt.Sprintf(
		"user=%v dbname=%v sslmode=disable password=%v host=%v",
		cfg.DatabaseUser,
		cfg.DatabaseName,
		cfg.DatabasePassword,
		cfg.DatabaseHost,
	)
	pg := pgstore.New(pgcfg)
	if err := pg.Connect(); err != nil {
		logger.Fatal().Err(err).Msg("Cannot connect to the database")
	}
	if err := pg.MigrateUp(); err != nil {
		logger.Fatal().Err(err).Msg("Cannot run migrations")
	}

	userIDs := make([]int64, 0, len(users))
	for _, name := range users {
		id, err := pg.CreateOrUpdateUser(name, name+"@moulinsart.example")
		if err != nil {
			logger.Fatal().Err(err).Str("user", name).Msg("Cannot create user")
		}
		userIDs = append(userIDs, id)
	}

	votes := quorum.NewVoteService(pg, logger)
	notifications := quorum.NewNotificationService(pg, logger)
	answersService := quorum.NewAnswerService(pg, notifications, logger)

	for i, title := range questions {
		authorID := userIDs[i%len(userIDs)]
		question := quorum.NewQuestion(title, "Some context about the problem.", authorID)
		if err := pg.InsertQuestion(question); err != nil {
			logger.Fatal().Err(err).Msg("Cannot insert question")
		}

		for j, body := range answers[:rand.Intn(len(answers))] {
			answerAuthorID := userIDs[(i+j+1)%len(userIDs)]
			answer, err := answersService.PostAnswer(answerAuthorID, question.ID, body)
			if err != nil {
				logger.Fatal().Err(err).Msg("Cannot insert answer")
			}

			// a few votes on the answer from whoever isn't its author
			for _, voterID := range userIDs {
				if voterID == answerAuthorID || rand.Intn(2) == 0 {
					continue
				}
				voteType := quorum.VoteUp
				if rand.Intn(4) == 0 {
					voteType = quorum.VoteDown
				}
				if _, err := votes.CastVote(voterID, quorum.VotableAnswer, answer.ID, voteType); err != nil {
					logger.Fatal().Err(err).Msg("Cannot vote on answer")
				}
			}
		}

		for _, voterID := range userIDs {
			if voterID == authorID || rand.Intn(2) == 0 {
				continue
			}
			if _, err := votes.CastVote(voterID, quorum.VotableQuestion, question.ID, quorum.VoteUp); err != nil {
				logger.Fatal().Err(err).Msg("Cannot vote on question")
			}
		}
	}

	logger.Info().Msg("Done")
}
