package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/simtrack/simtrack/provider"
	"github.com/simtrack/simtrack/store"
)

type fakeAuth struct {
	users     map[string]*provider.User // by email
	passwords map[string]string         // by email
	sessions  map[string]*provider.User // by token
	failErr   error
	resets    []string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		users:     make(map[string]*provider.User),
		passwords: make(map[string]string),
		sessions:  make(map[string]*provider.User),
	}
}

func (f *fakeAuth) addUser(email, password string, verified bool) *provider.User {
	u := &provider.User{
		UID:           "uid-" + email,
		Email:         email,
		EmailVerified: verified,
		CreatedAt:     time.Now().UTC(),
	}
	f.users[email] = u
	f.passwords[email] = password
	return u
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (string, *provider.User, error) {
	if f.failErr != nil {
		return "", nil, f.failErr
	}
	u, ok := f.users[email]
	if !ok || f.passwords[email] != password {
		return "", nil, provider.ErrInvalidCredentials
	}
	token := "tok-" + u.UID
	f.sessions[token] = u
	return token, u, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, password, displayName string) (*provider.User, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	if _, ok := f.users[email]; ok {
		return nil, provider.ErrEmailInUse
	}
	u := f.addUser(email, password, false)
	u.DisplayName = displayName
	return u, nil
}

func (f *fakeAuth) VerifyCredentials(_ context.Context, email, password string) error {
	if f.failErr != nil {
		return f.failErr
	}
	if u, ok := f.users[email]; !ok || f.passwords[u.Email] != password {
		return provider.ErrInvalidCredentials
	}
	return nil
}

func (f *fakeAuth) Session(_ context.Context, token string) (*provider.User, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	u, ok := f.sessions[token]
	if !ok {
		return nil, provider.ErrSessionInvalid
	}
	return u, nil
}

func (f *fakeAuth) SendPasswordReset(_ context.Context, email string) error {
	if f.failErr != nil {
		return f.failErr
	}
	if _, ok := f.users[email]; !ok {
		return provider.ErrNotFound
	}
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

type fakeData struct {
	challenges map[string]*provider.Challenge
	sims       map[string]*provider.Sim
	prefs      map[string]*provider.Preferences
	failErr    error
}

func newFakeData() *fakeData {
	return &fakeData{
		challenges: make(map[string]*provider.Challenge),
		sims:       make(map[string]*provider.Sim),
		prefs:      make(map[string]*provider.Preferences),
	}
}

func (f *fakeData) CreateChallenge(_ context.Context, c *provider.Challenge) (*provider.Challenge, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.challenges[c.ID] = c
	return c, nil
}

func (f *fakeData) GetChallenge(_ context.Context, id string) (*provider.Challenge, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	c, ok := f.challenges[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return c, nil
}

func (f *fakeData) ListChallenges(_ context.Context, ownerUID string) ([]*provider.Challenge, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	var out []*provider.Challenge
	for _, c := range f.challenges {
		if c.OwnerUID == ownerUID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeData) UpdateChallenge(_ context.Context, c *provider.Challenge) (*provider.Challenge, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	if _, ok := f.challenges[c.ID]; !ok {
		return nil, provider.ErrNotFound
	}
	f.challenges[c.ID] = c
	return c, nil
}

func (f *fakeData) DeleteChallenge(_ context.Context, id string) error {
	if f.failErr != nil {
		return f.failErr
	}
	delete(f.challenges, id)
	return nil
}

func (f *fakeData) CreateSim(_ context.Context, s *provider.Sim) (*provider.Sim, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.sims[s.ID] = s
	return s, nil
}

func (f *fakeData) GetSim(_ context.Context, id string) (*provider.Sim, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	s, ok := f.sims[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return s, nil
}

func (f *fakeData) ListSims(_ context.Context, ownerUID string) ([]*provider.Sim, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	var out []*provider.Sim
	for _, s := range f.sims {
		if s.OwnerUID == ownerUID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeData) UpdateSim(_ context.Context, s *provider.Sim) (*provider.Sim, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	if _, ok := f.sims[s.ID]; !ok {
		return nil, provider.ErrNotFound
	}
	f.sims[s.ID] = s
	return s, nil
}

func (f *fakeData) DeleteSim(_ context.Context, id string) error {
	if f.failErr != nil {
		return f.failErr
	}
	delete(f.sims, id)
	return nil
}

func (f *fakeData) GetPreferences(_ context.Context, uid string) (*provider.Preferences, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	p, ok := f.prefs[uid]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return p, nil
}

func (f *fakeData) PutPreferences(_ context.Context, p *provider.Preferences) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.prefs[p.UID] = p
	return nil
}

type testEnv struct {
	auth    *fakeAuth
	data    *fakeData
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemory(0)
	t.Cleanup(func() { st.Close() })

	auth := newFakeAuth()
	data := newFakeData()
	cfg := Config{
		Addr:              ":0",
		ProviderBaseURL:   "http://provider.test",
		ProviderAPIKey:    "test-key",
		SessionCookieName: "session",
		SessionTTL:        time.Hour,
	}

	return &testEnv{
		auth:    auth,
		data:    data,
		handler: New(cfg, auth, data, st).Router(),
	}
}

// csrfToken fetches a token from the issue endpoint.
func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/csrf-token", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("csrf-token status = %d", rr.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode csrf body: %v", err)
	}
	return body["csrfToken"]
}

type reqOpts struct {
	csrf    string
	session string
	addr    string
}

func (e *testEnv) do(t *testing.T, method, path, body string, opts reqOpts) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if opts.addr != "" {
		req.RemoteAddr = opts.addr
	}
	if opts.csrf != "" {
		req.Header.Set("X-CSRF-Token", opts.csrf)
	}
	if opts.session != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: opts.session})
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

// signedIn creates a verified account and returns its session token.
func (e *testEnv) signedIn(t *testing.T, email string) string {
	t.Helper()
	u := e.auth.addUser(email, "password123", true)
	token := "tok-" + u.UID
	e.auth.sessions[token] = u
	return token
}
