package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/sessions"
	"github.com/jhchabran/quorum"
	"github.com/jhchabran/quorum/authentication"
	"github.com/jhchabran/quorum/authentication/fake_auth"
	"github.com/jhchabran/quorum/pgstore"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

const (
	dbString       = "user=postgres dbname=quorum_test sslmode=disable password=postgres host=127.0.0.1"
	testServerHost = "localhost:8081"
)

func truncateDatabase(db *sqlx.DB) {
	db.MustExec("TRUNCATE TABLE notifications, votes, answers, questions, users;")
}

// testingLogWriter is an output target for zerolog which will print on the testing logger.
type testingLogWriter struct {
	c *qt.C
}

// Write outputs on the passed bytes on the test logger
func (l *testingLogWriter) Write(p []byte) (n int, err error) {
	str := string(p[0 : len(p)-1]) // drop the final \n
	l.c.Log(str)
	return len(p), nil
}

// A struct to hold the server and its components.
// Provides a few helpers for convenience.
type testContext struct {
	c          *qt.C
	server     *quorum.Server
	testServer *httptest.Server
	pgStore    *pgstore.PGStore
	fakeAuth   *fake_auth.Handler
}

// newTestContext creates a server instance with its component initialized for integration testing.
func newTestContext(c *qt.C) *testContext {
	tc := testContext{c: c}

	w := testingLogWriter{c}
	output := zerolog.ConsoleWriter{Out: &w, NoColor: true}
	logger := zerolog.New(output)

	tc.pgStore = pgstore.New(dbString)
	sessionStore := sessions.NewCookieStore([]byte("test"))
	tc.fakeAuth = fake_auth.New(sessionStore, logger)

	tc.server = quorum.NewServer(
		&quorum.ServerConfig{Addr: testServerHost, QuestionsPerPage: 3},
		logger,
		tc.pgStore,
		tc.fakeAuth,
	)
	tc.testServer = httptest.NewServer(tc.server)

	tc.fakeAuth.SetServerURL(tc.testServer.URL)

	return &tc
}

// url returns an url to the test server based on the given path
func (tc *testContext) url(path string) string {
	return tc.testServer.URL + path
}

// prepareServer boots up the server and sets up its teardown for the current test
func (tc *testContext) prepareServer() {
	tc.c.Assert(tc.server.Prepare(), qt.IsNil, qt.Commentf("couldn't prepare the server"))
	tc.c.Assert(tc.pgStore.MigrateUp(), qt.IsNil, qt.Commentf("couldn't migrate the database"))

	tc.c.Cleanup(func() {
		// kill the server
		tc.testServer.Close()

		// restore the db to its pristine state
		truncateDatabase(tc.pgStore.DB())
	})
}

func (tc *testContext) createUser(login string) (int64, error) {
	var id int64
	t := quorum.NowFunc()
	err := tc.pgStore.DB().Get(&id,
		"INSERT INTO users (name, email, created_at, last_login_at) VALUES ($1, $2, $3, $4) RETURNING id",
		login, login+"@email.com", t, t)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (tc *testContext) newHTTPClient() *http.Client {
	jar, err := cookiejar.New(nil)
	tc.c.Assert(err, qt.IsNil)

	return &http.Client{
		Jar: jar,
	}
}

// newAuthenticatedClient runs a client through the fake OAuth dance as the
// given login and returns it with its session cookie set.
func (tc *testContext) newAuthenticatedClient(login string) *http.Client {
	tc.fakeAuth.SetUser(&authentication.User{
		Login: login,
		Email: login + "@email.com",
	})

	client := tc.newHTTPClient()
	resp, err := client.Get(tc.url("/oauth/start"))
	tc.c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	tc.c.Assert(resp.StatusCode, qt.Equals, 200)
	return client
}

// getJSON performs a GET and decodes the JSON body into out.
func (tc *testContext) getJSON(client *http.Client, path string, out interface{}) *http.Response {
	resp, err := client.Get(tc.url(path))
	tc.c.Assert(err, qt.IsNil)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	tc.c.Assert(err, qt.IsNil)
	tc.c.Assert(json.Unmarshal(body, out), qt.IsNil, qt.Commentf("body: %s", body))

	return resp
}

// postJSON performs a POST with the given payload encoded as JSON and decodes
// the JSON response into out.
func (tc *testContext) postJSON(client *http.Client, path string, payload interface{}, out interface{}) *http.Response {
	b, err := json.Marshal(payload)
	tc.c.Assert(err, qt.IsNil)

	resp, err := client.Post(tc.url(path), "application/json", bytes.NewReader(b))
	tc.c.Assert(err, qt.IsNil)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	tc.c.Assert(err, qt.IsNil)
	tc.c.Assert(json.Unmarshal(body, out), qt.IsNil, qt.Commentf("body: %s", body))

	return resp
}
