// Package provider defines the interfaces to the hosted backend services:
// the AuthProvider, which owns accounts and sessions, and the DataStore,
// which persists the application's records. Both are opaque network
// services; this package holds the contracts, the record types, and a thin
// HTTP client.
package provider

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors mapped from provider responses.
var (
	ErrInvalidCredentials = errors.New("provider: invalid credentials")
	ErrEmailInUse         = errors.New("provider: email already in use")
	ErrSessionInvalid     = errors.New("provider: session invalid or expired")
	ErrNotFound           = errors.New("provider: not found")
	ErrUnavailable        = errors.New("provider: service unavailable")
)

// User is an account record owned by the AuthProvider.
type User struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Rule is one entry of a challenge's rule set.
type Rule struct {
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// Challenge is a structured game-play rule set created by a user.
type Challenge struct {
	ID          string    `json:"id"`
	OwnerUID    string    `json:"ownerUid"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Packs       []string  `json:"packs,omitempty"`
	Rules       []Rule    `json:"rules,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Sim is an in-game character record, optionally linked to a challenge.
type Sim struct {
	ID          string    `json:"id"`
	OwnerUID    string    `json:"ownerUid"`
	ChallengeID string    `json:"challengeId,omitempty"`
	Name        string    `json:"name"`
	Traits      []string  `json:"traits,omitempty"`
	Career      string    `json:"career,omitempty"`
	Aspiration  string    `json:"aspiration,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Preferences holds a user's application preferences.
type Preferences struct {
	UID          string   `json:"uid"`
	Theme        string   `json:"theme,omitempty"`
	DefaultPacks []string `json:"defaultPacks,omitempty"`
}

// AuthProvider is the external identity service.
type AuthProvider interface {
	// SignIn exchanges credentials for a session token.
	SignIn(ctx context.Context, email, password string) (token string, user *User, err error)

	// SignUp creates an account. The provider sends the verification email.
	SignUp(ctx context.Context, email, password, displayName string) (*User, error)

	// VerifyCredentials checks credentials without creating a session.
	VerifyCredentials(ctx context.Context, email, password string) error

	// Session resolves a session token into the account it belongs to.
	Session(ctx context.Context, token string) (*User, error)

	// SendPasswordReset emails a reset link. Returns ErrNotFound when no
	// account exists for the address; callers must not surface that.
	SendPasswordReset(ctx context.Context, email string) error

	// SignOut revokes a session token.
	SignOut(ctx context.Context, token string) error
}

// DataStore is the external record persistence service.
type DataStore interface {
	CreateChallenge(ctx context.Context, c *Challenge) (*Challenge, error)
	GetChallenge(ctx context.Context, id string) (*Challenge, error)
	ListChallenges(ctx context.Context, ownerUID string) ([]*Challenge, error)
	UpdateChallenge(ctx context.Context, c *Challenge) (*Challenge, error)
	DeleteChallenge(ctx context.Context, id string) error

	CreateSim(ctx context.Context, s *Sim) (*Sim, error)
	GetSim(ctx context.Context, id string) (*Sim, error)
	ListSims(ctx context.Context, ownerUID string) ([]*Sim, error)
	UpdateSim(ctx context.Context, s *Sim) (*Sim, error)
	DeleteSim(ctx context.Context, id string) error

	GetPreferences(ctx context.Context, uid string) (*Preferences, error)
	PutPreferences(ctx context.Context, p *Preferences) error
}
