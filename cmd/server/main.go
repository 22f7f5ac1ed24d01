package main

import (
	"fmt"

	"github.com/jhchabran/quorum"
	"github.com/jhchabran/quorum/authentication/github_auth"
	"github.com/jhchabran/quorum/cmd"
	"github.com/jhchabran/quorum/pgstore"
	"github.com/jhchabran/quorum/slackhook"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := cmd.DefaultConfig()
	err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot read configuration")
	}
	logger := cmd.SetupLogger(cfg)

	// setup database
	pgcfg := fmt.Sprintf(
		"user=%v dbname=%v sslmode=disable password=%v host=%v",
		cfg.DatabaseUser,
		cfg.DatabaseName,
		cfg.DatabasePassword,
		cfg.DatabaseHost,
	)
	pg := pgstore.New(pgcfg)

	// setup authentication
	ll := logger.With().Str("component", "github auth").Logger()
	authService := github_auth.New(cfg.ServerSecret, cfg.GithubClientID, cfg.GithubClientSecret, ll)

	// fire the server
	s := quorum.NewServer(
		&quorum.ServerConfig{Addr: cfg.Addr, QuestionsPerPage: cfg.QuestionsPerPage},
		logger,
		pg,
		authService,
	)

	if cfg.SlackToken != "" {
		hook := slackhook.New(cfg.SlackToken, cfg.SlackChannel, logger.With().Str("component", "slack").Logger())
		s.AddAnswerHook(hook.AnswerHook())
	}

	err = s.Prepare()
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot prepare server")
	}

	err = pg.MigrateUp()
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot run migrations")
	}

	err = s.Start()
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot start server")
	}
}
