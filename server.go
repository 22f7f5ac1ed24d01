package quorum

import (
	"context"
	"encoding/gob"
	"net/http"

	"github.com/jhchabran/quorum/authentication"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	_ "github.com/lib/pq"
)

type ServerConfig struct {
	Addr             string
	QuestionsPerPage int
}

type Server struct {
	Logger          zerolog.Logger
	config          *ServerConfig
	store           Store
	router          *httprouter.Router
	done            chan struct{}
	idleConnsClosed chan struct{}
	authService     authentication.AuthService

	votes         *VoteService
	accepts       *AcceptAnswerService
	answers       *AnswerService
	notifications *NotificationService
}

func init() {
	// be able to serialize session data in a cookie
	gob.Register(&oauth2.Token{})
}

func NewServer(config *ServerConfig, logger zerolog.Logger, store Store, authService authentication.AuthService) *Server {
	s := &Server{
		config:          config,
		store:           store,
		authService:     authService,
		router:          httprouter.New(),
		Logger:          logger,
		done:            make(chan struct{}),
		idleConnsClosed: make(chan struct{}),
	}

	s.notifications = NewNotificationService(store, logger)
	s.votes = NewVoteService(store, logger)
	s.accepts = NewAcceptAnswerService(store, s.notifications, logger)
	s.answers = NewAnswerService(store, s.notifications, logger)

	return s
}

// AddAnswerHook registers a hook called after each posted answer, once its
// transaction committed.
func (s *Server) AddAnswerHook(h AnswerHook) {
	s.answers.AddHook(h)
}

func (s *Server) Prepare() error {
	// database
	err := s.store.Connect()
	if err != nil {
		return err
	}

	// routes
	s.router.GET("/oauth/start", s.HandleOAuthStart())
	s.router.GET("/oauth/authorize", s.HandleOAuthCallback())
	s.router.GET("/oauth/destroy", s.HandleOAuthDestroy())

	withMiddlewares(func(m middleware) {
		s.router.GET("/api/questions", m(s.HandleListQuestions()))
		s.router.GET("/api/questions/:id", m(s.HandleShowQuestion()))
		s.router.GET("/api/users/:login/stats", m(s.HandleUserStats()))
	}, s.loadSessionMiddleware(), s.maybeLoadUserMiddleware())

	withMiddlewares(func(m middleware) {
		s.router.POST("/api/votes", m(s.HandleVoteAction()))
		s.router.POST("/api/answers/:id/accept", m(s.HandleAcceptAnswerAction()))
		s.router.POST("/api/questions/:id/answers", m(s.HandleSubmitAnswerAction()))
		s.router.GET("/api/notifications", m(s.HandleNotifications()))
		s.router.POST("/api/notifications", m(s.HandleNotificationsAction()))
	}, s.loadSessionMiddleware(), s.loadUserMiddleware())

	return nil
}

func (s *Server) Start() error {
	httpServer := http.Server{Addr: s.config.Addr, Handler: s}

	go func() {
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			// should probably bubble this up
			s.Logger.Fatal().Err(err).Msg("Server errored")
		}
	}()

	<-s.done

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return err
	}
	close(s.idleConnsClosed)

	return nil
}

func (s *Server) Stop() {
	close(s.done)
	<-s.idleConnsClosed
}

func (s *Server) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(res, req)
}
