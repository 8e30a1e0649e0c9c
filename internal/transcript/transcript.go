// Package transcript records what was said on a call and delivers the
// finished transcript to the configured sinks.
package transcript

import (
	"context"
	"time"
)

type Role string

const (
	RoleCaller Role = "caller"
	RoleAgent  Role = "agent"
)

// Entry is one completed utterance.
type Entry struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Store keeps the running transcript of live calls.
type Store interface {
	Append(ctx context.Context, callSID string, entry Entry) error
	// List returns an empty slice for unknown calls.
	List(ctx context.Context, callSID string) ([]Entry, error)
	Delete(ctx context.Context, callSID string) error
}

// Publisher delivers a finished transcript.
type Publisher interface {
	Publish(ctx context.Context, callSID string, entries []Entry) error
}
