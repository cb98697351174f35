package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/model"
	"github.com/haventalk/voice-ingest-go/internal/observability/metrics"
	"github.com/haventalk/voice-ingest-go/internal/repository"
)

// creation is the single shared in-flight future. Triggers that arrive while
// a create round-trip is pending wait on done instead of issuing a second
// create call.
type creation struct {
	done chan struct{}
	id   string
	err  error
}

// SessionCreator creates exactly one persisted conversation session per live
// connection, no matter how many triggers race during the creation round-trip.
type SessionCreator struct {
	sessions repository.SessionRepository
	sctx     *SessionContext
	metrics  *metrics.Metrics

	// onCreated runs after a successful create, outside the lock. The
	// pipeline uses it to flush identifiers that arrived early.
	onCreated func(ctx context.Context)

	mu       sync.Mutex
	inflight *creation
}

func NewSessionCreator(
	sessions repository.SessionRepository,
	sctx *SessionContext,
	m *metrics.Metrics,
	onCreated func(ctx context.Context),
) *SessionCreator {
	return &SessionCreator{
		sessions:  sessions,
		sctx:      sctx,
		metrics:   m,
		onCreated: onCreated,
	}
}

// Ensure returns the session id for this connection, creating the row on the
// first call. Concurrent callers share one outcome.
func (c *SessionCreator) Ensure(ctx context.Context) (string, error) {
	c.mu.Lock()
	if id := c.sctx.SessionID(); id != "" {
		c.mu.Unlock()
		return id, nil
	}
	if c.inflight != nil {
		fut := c.inflight
		c.mu.Unlock()
		c.metrics.RecordCreationDedupe()
		select {
		case <-fut.done:
			return fut.id, fut.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	fut := &creation{done: make(chan struct{})}
	c.inflight = fut
	c.mu.Unlock()

	id, err := c.create(ctx)
	if err == nil {
		c.sctx.SetSessionID(id)
	}
	fut.id, fut.err = id, err
	close(fut.done)

	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()

	if err != nil {
		c.metrics.RecordSessionCreation("failed")
		log.Error().
			Err(err).
			Str("connectionId", c.sctx.ConnectionID).
			Msg("session creation failed, conversation continues without persistence")
		return "", err
	}

	c.metrics.RecordSessionCreation("created")
	log.Info().
		Str("connectionId", c.sctx.ConnectionID).
		Str("sessionId", id).
		Msg("conversation session created")

	if c.onCreated != nil {
		c.onCreated(ctx)
	}
	return id, nil
}

// create issues the insert, retrying once with a reduced payload when the
// primary write is rejected (the ownership field is optional and some
// deployments reject it for anonymous connections).
func (c *SessionCreator) create(ctx context.Context) (string, error) {
	title := "Voice Session - " + time.Now().Format("Jan 2, 3:04 PM")

	userID := c.sctx.UserID
	session, err := c.sessions.Create(ctx, model.CreateSessionParams{
		UserID: &userID,
		Title:  title,
	})
	if err != nil {
		c.metrics.RecordCreationFallback()
		log.Warn().
			Err(err).
			Str("connectionId", c.sctx.ConnectionID).
			Msg("session create rejected, retrying with reduced payload")

		session, err = c.sessions.Create(ctx, model.CreateSessionParams{Title: title})
		if err != nil {
			return "", fmt.Errorf("create session: %w", err)
		}
	}
	return session.ID, nil
}
