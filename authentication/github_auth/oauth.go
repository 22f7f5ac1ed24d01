package github_auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-github/github"
	"github.com/gorilla/sessions"
	"github.com/jhchabran/quorum/authentication"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	sessionKey = "quorum-session"
)

type Handler struct {
	sessionStore *sessions.CookieStore
	logger       zerolog.Logger
	oauthConfig  *oauth2.Config
}

func New(serverSecret string, clientID string, clientSecret string, logger zerolog.Logger) *Handler {
	sessionStore := sessions.NewCookieStore([]byte(serverSecret))
	oauthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://github.com/login/oauth/authorize",
			TokenURL: "https://github.com/login/oauth/access_token",
		},
		RedirectURL: "",
		Scopes:      []string{"user:email"},
	}
	return &Handler{
		sessionStore: sessionStore,
		oauthConfig:  oauthConfig,
		logger:       logger,
	}
}

// LoadUserData fetches the authenticated user from the Github API with the
// token stored in the session, and stores what we keep of it back in the
// session.
func (h *Handler) LoadUserData(req *http.Request, res http.ResponseWriter) (*authentication.User, error) {
	session, err := h.sessionStore.Get(req, sessionKey)
	if err != nil {
		return nil, err
	}

	accessToken, ok := session.Values["githubAccessToken"].(*oauth2.Token)
	if !ok {
		return nil, fmt.Errorf("inconsistent session state")
	}

	client := github.NewClient(h.oauthConfig.Client(context.Background(), accessToken))

	user, _, err := client.Users.Get(context.Background(), "")
	if err != nil {
		return nil, err
	}

	userSession := &authentication.User{
		Login:     user.GetLogin(),
		AvatarURL: user.GetAvatarURL(),
		Email:     user.GetEmail(),
	}

	// keep the raw payload around in a loose form, handy when prodding at
	// what Github returns
	var userMap map[string]interface{}
	if err := mapstructure.Decode(user, &userMap); err != nil {
		h.logger.Debug().Err(err).Msg("Cannot decode the Github user payload")
	}

	b, err := json.Marshal(userSession)
	if err != nil {
		return nil, err
	}

	session.Values["user"] = b
	if err := session.Save(req, res); err != nil {
		return nil, err
	}

	return userSession, nil
}

func (h *Handler) CurrentUser(req *http.Request) (*authentication.User, error) {
	session, err := h.sessionStore.Get(req, sessionKey)
	if err != nil {
		return nil, err
	}

	var b []byte
	b, ok := session.Values["user"].([]byte)
	if !ok {
		return nil, nil
	}

	var userSession authentication.User
	err = json.Unmarshal(b, &userSession)
	if err != nil {
		return nil, err
	}

	return &userSession, nil
}

func (h *Handler) Start(res http.ResponseWriter, req *http.Request) {
	b := make([]byte, 16)
	rand.Read(b)

	state := base64.URLEncoding.EncodeToString(b)

	session, _ := h.sessionStore.Get(req, sessionKey)
	session.Values["state"] = state
	session.Save(req, res)

	url := h.oauthConfig.AuthCodeURL(state)
	http.Redirect(res, req, url, http.StatusFound)
}

func (h *Handler) Callback(res http.ResponseWriter, req *http.Request, beforeWriteCallback func(*authentication.User) error) {
	session, err := h.sessionStore.Get(req, sessionKey)
	if err != nil {
		http.Error(res, "Session aborted", http.StatusInternalServerError)
		return
	}

	if req.URL.Query().Get("state") != session.Values["state"] {
		http.Error(res, "no state match; possible csrf OR cookies not enabled", http.StatusInternalServerError)
		return
	}

	token, err := h.oauthConfig.Exchange(context.Background(), req.URL.Query().Get("code"))
	if err != nil {
		http.Error(res, "there was an issue getting your token", http.StatusInternalServerError)
		return
	}

	if !token.Valid() {
		http.Error(res, "retrieved invalid token", http.StatusBadRequest)
		return
	}

	session.Values["githubAccessToken"] = token
	if err := session.Save(req, res); err != nil {
		h.logger.Error().Err(err).Msg("Cannot save session")
		http.Error(res, "could not save session", http.StatusInternalServerError)
		return
	}

	u, err := h.LoadUserData(req, res)
	if err != nil {
		http.Error(res, "couldn't load user data from Github", http.StatusInternalServerError)
		return
	}

	if err := beforeWriteCallback(u); err != nil {
		h.logger.Error().Err(err).Msg("OAuth callback failed")
		http.Error(res, "failed to execute oauth callback", http.StatusInternalServerError)
		return
	}

	http.Redirect(res, req, "/", http.StatusFound)
}

func (h *Handler) Destroy(res http.ResponseWriter, req *http.Request) {
	session, err := h.sessionStore.Get(req, sessionKey)
	if err != nil {
		http.Error(res, "aborted", http.StatusInternalServerError)
		return
	}

	// kill the session
	session.Options.MaxAge = -1
	session.Values["user"] = nil
	session.Save(req, res)

	http.Redirect(res, req, "/", http.StatusFound)
}
