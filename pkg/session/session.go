// Package session issues and stores the client sessions handed out by
// "flowc serve" on POST /sessions.
//
// A session is an opaque identifier with a creation time, an expiry and the
// API key it was issued for. Backends:
//   - [MemoryStore]: single process, the default for "flowc serve"
//   - [FileStore]: JSON files in a directory, survives restarts
//
// Usage:
//
//	sess := session.New(apiKeyID, session.DefaultTTL)
//	if err := store.Set(ctx, sess); err != nil {
//	    return err
//	}
//	got, err := store.Get(ctx, sess.ID) // nil, nil once expired
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a session stays valid.
const DefaultTTL = 24 * time.Hour

// DefaultAPIKeyID is reported when the client did not present an API key.
const DefaultAPIKeyID = "anonymous"

// Session is one issued client session.
type Session struct {
	ID        string    `json:"id"`
	APIKeyID  string    `json:"apiKeyId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// New creates a session with a random UUID identifier.
func New(apiKeyID string, ttl time.Duration) *Session {
	if apiKeyID == "" {
		apiKeyID = DefaultAPIKeyID
	}
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		APIKeyID:  apiKeyID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Store persists sessions.
type Store interface {
	// Get returns the session, or nil, nil when it does not exist or has
	// expired.
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
	Close() error
}
