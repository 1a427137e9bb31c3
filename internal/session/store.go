// Package session provides conversation storage keyed by session ID.
// A Store is injected into the HTTP layer so the conversation loop itself
// stays free of persistence assumptions.
package session

import (
	"errors"

	"github.com/google/uuid"

	"geoagent/internal/agent"
)

// ErrNotFound is returned when no conversation exists for an ID.
var ErrNotFound = errors.New("session: conversation not found")

// Store holds conversations between turns.
type Store interface {
	Get(id string) (*agent.Conversation, error)
	Put(id string, conv *agent.Conversation) error
	Delete(id string) error
	Len() (int, error)
	Close() error
}

// NewID returns a fresh conversation identifier.
func NewID() string {
	return uuid.NewString()
}
