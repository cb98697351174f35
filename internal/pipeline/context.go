// Package pipeline keeps a locally created conversation session, the
// provider-issued chat identifiers, and the persisted transcript consistent
// while events from the voice provider arrive asynchronously and possibly
// out of order.
package pipeline

import (
	"sync"
	"time"
)

// SessionContext is the shared per-connection state. It is passed explicitly
// into every component: the creator is the only writer of the session id, the
// consent decision is written once at connection start, and everything else
// only reads.
type SessionContext struct {
	ConnectionID string
	UserID       string
	StartedAt    time.Time

	mu        sync.RWMutex
	sessionID string
	consent   bool
}

func NewSessionContext(connectionID, userID string) *SessionContext {
	return &SessionContext{
		ConnectionID: connectionID,
		UserID:       userID,
		StartedAt:    time.Now(),
	}
}

func (c *SessionContext) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *SessionContext) SetSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// Consent reports the cached decision made at connection start. A tier change
// mid-session does not retroactively toggle persistence.
func (c *SessionContext) Consent() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.consent
}

func (c *SessionContext) SetConsent(allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consent = allowed
}
