package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/haventalk/voice-ingest-go/internal/errors"
	"github.com/haventalk/voice-ingest-go/internal/pipeline"
	"github.com/haventalk/voice-ingest-go/internal/voice"
)

type activeConnection struct {
	pipe   *pipeline.Pipeline
	cancel context.CancelFunc
	userID string
}

// ConnectionManager owns the live voice connections of this instance: one
// pipeline per connection, plus the provider event-stream subscription when
// one is configured.
type ConnectionManager struct {
	deps     pipeline.Deps
	opts     pipeline.Options
	listener *voice.Listener // nil when no provider stream is configured

	mu    sync.Mutex
	conns map[string]*activeConnection
}

func NewConnectionManager(deps pipeline.Deps, opts pipeline.Options, listener *voice.Listener) *ConnectionManager {
	return &ConnectionManager{
		deps:     deps,
		opts:     opts,
		listener: listener,
		conns:    make(map[string]*activeConnection),
	}
}

// Start opens a new connection for the user and returns its id. The pipeline
// runs on a context independent of the caller's request so a fast HTTP
// response does not tear down the connection.
func (m *ConnectionManager) Start(userID string) string {
	connectionID := uuid.NewString()

	pipe := pipeline.New(connectionID, userID, m.deps, m.opts)
	pctx, cancel := context.WithCancel(context.Background())
	pipe.Start(pctx)

	m.mu.Lock()
	m.conns[connectionID] = &activeConnection{
		pipe:   pipe,
		cancel: cancel,
		userID: userID,
	}
	m.mu.Unlock()

	if m.listener != nil {
		go func() {
			if err := m.listener.Run(pctx, connectionID, pipe); err != nil {
				log.Error().
					Err(err).
					Str("connectionId", connectionID).
					Msg("voice event stream ended with error")
			}
			m.finish(connectionID)
		}()
	}

	log.Info().
		Str("connectionId", connectionID).
		Str("userId", userID).
		Msg("voice connection started")

	return connectionID
}

// Sink returns the event sink for a live connection, for webhook-delivered
// provider events.
func (m *ConnectionManager) Sink(connectionID, userID string) (voice.EventSink, error) {
	m.mu.Lock()
	conn, ok := m.conns[connectionID]
	m.mu.Unlock()

	if !ok {
		return nil, apperrors.NotFound("connection")
	}
	if conn.userID != userID {
		return nil, apperrors.Forbidden("connection belongs to another user")
	}
	return conn.pipe, nil
}

// Stop ends a connection on behalf of its owner: the pipeline drains and
// stamps the session, then the connection's context is released.
func (m *ConnectionManager) Stop(ctx context.Context, connectionID, userID string) error {
	m.mu.Lock()
	conn, ok := m.conns[connectionID]
	if ok && conn.userID != userID {
		m.mu.Unlock()
		return apperrors.Forbidden("connection belongs to another user")
	}
	delete(m.conns, connectionID)
	m.mu.Unlock()

	if !ok {
		return apperrors.NotFound("connection")
	}

	conn.pipe.OnClose(ctx)
	conn.cancel()

	log.Info().
		Str("connectionId", connectionID).
		Str("userId", userID).
		Msg("voice connection stopped")
	return nil
}

// finish removes a connection whose event stream ended on its own. The
// listener already invoked OnClose.
func (m *ConnectionManager) finish(connectionID string) {
	m.mu.Lock()
	conn, ok := m.conns[connectionID]
	delete(m.conns, connectionID)
	m.mu.Unlock()

	if ok {
		conn.cancel()
	}
}

// StopAll closes every live connection; used on shutdown.
func (m *ConnectionManager) StopAll(ctx context.Context) {
	m.mu.Lock()
	conns := make([]*activeConnection, 0, len(m.conns))
	for id, conn := range m.conns {
		conns = append(conns, conn)
		delete(m.conns, id)
	}
	m.mu.Unlock()

	for _, conn := range conns {
		conn.pipe.OnClose(ctx)
		conn.cancel()
	}
}
