package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks JSON over HTTP to the hosted backend. It implements both
// AuthProvider and DataStore.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientConfig holds connection settings for the hosted backend.
// Populate from environment variables in your application code.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a Client. A zero timeout defaults to 10 seconds.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

var _ AuthProvider = (*Client)(nil)
var _ DataStore = (*Client)(nil)

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
	}
	return nil
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return ErrInvalidCredentials
	case code == http.StatusForbidden:
		return ErrSessionInvalid
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrEmailInUse
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (c *Client) SignIn(ctx context.Context, email, password string) (string, *User, error) {
	var resp signInResponse
	err := c.do(ctx, http.MethodPost, "/v1/sessions", credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return "", nil, err
	}
	return resp.Token, resp.User, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*User, error) {
	in := struct {
		credentials
		DisplayName string `json:"displayName"`
	}{credentials{Email: email, Password: password}, displayName}

	var user User
	if err := c.do(ctx, http.MethodPost, "/v1/accounts", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) VerifyCredentials(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/v1/accounts/verify", credentials{Email: email, Password: password}, nil)
}

func (c *Client) Session(ctx context.Context, token string) (*User, error) {
	var user User
	in := struct {
		Token string `json:"token"`
	}{token}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/lookup", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	in := struct {
		Email string `json:"email"`
	}{email}
	return c.do(ctx, http.MethodPost, "/v1/accounts/reset-password", in, nil)
}

func (c *Client) SignOut(ctx context.Context, token string) error {
	in := struct {
		Token string `json:"token"`
	}{token}
	return c.do(ctx, http.MethodPost, "/v1/sessions/revoke", in, nil)
}

func (c *Client) CreateChallenge(ctx context.Context, ch *Challenge) (*Challenge, error) {
	var out Challenge
	if err := c.do(ctx, http.MethodPost, "/v1/challenges", ch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetChallenge(ctx context.Context, id string) (*Challenge, error) {
	var out Challenge
	if err := c.do(ctx, http.MethodGet, "/v1/challenges/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListChallenges(ctx context.Context, ownerUID string) ([]*Challenge, error) {
	var out []*Challenge
	path := "/v1/challenges?owner=" + url.QueryEscape(ownerUID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateChallenge(ctx context.Context, ch *Challenge) (*Challenge, error) {
	var out Challenge
	if err := c.do(ctx, http.MethodPut, "/v1/challenges/"+url.PathEscape(ch.ID), ch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteChallenge(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/challenges/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreateSim(ctx context.Context, s *Sim) (*Sim, error) {
	var out Sim
	if err := c.do(ctx, http.MethodPost, "/v1/sims", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSim(ctx context.Context, id string) (*Sim, error) {
	var out Sim
	if err := c.do(ctx, http.MethodGet, "/v1/sims/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSims(ctx context.Context, ownerUID string) ([]*Sim, error) {
	var out []*Sim
	path := "/v1/sims?owner=" + url.QueryEscape(ownerUID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateSim(ctx context.Context, s *Sim) (*Sim, error) {
	var out Sim
	if err := c.do(ctx, http.MethodPut, "/v1/sims/"+url.PathEscape(s.ID), s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSim(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sims/"+url.PathEscape(id), nil, nil)
}

func (c *Client) GetPreferences(ctx context.Context, uid string) (*Preferences, error) {
	var out Preferences
	if err := c.do(ctx, http.MethodGet, "/v1/preferences/"+url.PathEscape(uid), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PutPreferences(ctx context.Context, p *Preferences) error {
	return c.do(ctx, http.MethodPut, "/v1/preferences/"+url.PathEscape(p.UID), p, nil)
}
