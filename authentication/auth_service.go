package authentication

import "net/http"

// An OAuthHandler is responsible of providing the callbacks to interact
// with an OAuth provider.
type OAuthHandler interface {
	Start(res http.ResponseWriter, req *http.Request)
	Callback(res http.ResponseWriter, req *http.Request, beforeWriteCallback func(*User) error)
	Destroy(res http.ResponseWriter, req *http.Request)
}

// An AuthService wraps OAuth and the access to the current user. It is the
// only thing the engine knows about authentication; everything past it
// takes a resolved user explicitly.
type AuthService interface {
	OAuthHandler
	CurrentUser(req *http.Request) (*User, error)
}

// A User is a convenient structure to hold user data coming from the OAuth
// provider.
type User struct {
	AvatarURL string
	Login     string
	Email     string
}
