// Package session identifies a single workflow run.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is created once per top-level run and never changes afterwards.
type Session struct {
	ID        string         `json:"session_id"`
	StartedAt time.Time      `json:"started_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// New starts a session with a random id. metadata is copied.
func New(metadata map[string]any) Session {
	return Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Metadata:  cloneMetadata(metadata),
	}
}

// Elapsed returns the time since the session started.
func (s Session) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

func cloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
