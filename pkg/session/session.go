// Package session provides session management for authenticated platform
// users.
//
// Sessions store the platform access token and user info with automatic
// expiration. The Store interface supports Get/Set/Delete plus cleanup of
// expired sessions; FileStore implements it for CLI usage, and CLIStore
// wraps it for the single login the CLI keeps.
//
// # Usage
//
//	store, err := session.NewCLIStore()
//	if err != nil {
//	    return err
//	}
//
//	sess, err := session.New(accessToken, user, session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	if err := store.SaveSession(ctx, sess); err != nil {
//	    return err
//	}
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("expired")
)

// User identifies a platform account.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

// Session stores user session data.
type Session struct {
	ID          string    `json:"id"`
	AccessToken string    `json:"access_token"`
	User        *User     `json:"user"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// UserID returns a storage-compatible user identifier, namespaced by the
// auth provider. Used in cache keys and run ownership.
func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return "platform:" + s.User.ID
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
}

// DefaultTTL is the default session duration. The platform token itself
// usually outlives this; the shorter local TTL forces a whoami refresh.
const DefaultTTL = 24 * time.Hour

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// New creates a new session with the given token and user.
func New(accessToken string, user *User, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:          id,
		AccessToken: accessToken,
		User:        user,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}, nil
}

// Local creates a mock session for offline development without
// authentication, used by serve --no-auth. The mock user cannot make
// authenticated platform calls.
func Local() *Session {
	now := time.Now()
	return &Session{
		ID:          "local-session",
		AccessToken: "",
		User: &User{
			ID:    "local",
			Email: "local@localhost",
			Name:  "Local User",
		},
		ExpiresAt: now.Add(365 * 24 * time.Hour),
		CreatedAt: now,
	}
}
