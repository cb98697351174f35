package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/observability/metrics"
	"github.com/haventalk/voice-ingest-go/internal/repository"
)

var errSessionUnknown = errors.New("session id unknown or invalid")

// IdentityReconciler attaches the provider-issued chat identifiers to the
// persisted conversation session, either immediately or, when the metadata
// event outruns session creation, via the pending store and a bounded
// watchdog retry loop.
type IdentityReconciler struct {
	sessions repository.SessionRepository
	pending  PendingIdentifierStore
	sctx     *SessionContext
	metrics  *metrics.Metrics

	interval time.Duration
	window   time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

func NewIdentityReconciler(
	sessions repository.SessionRepository,
	pending PendingIdentifierStore,
	sctx *SessionContext,
	m *metrics.Metrics,
	interval, window time.Duration,
) *IdentityReconciler {
	return &IdentityReconciler{
		sessions: sessions,
		pending:  pending,
		sctx:     sctx,
		metrics:  m,
		interval: interval,
		window:   window,
		stop:     make(chan struct{}),
	}
}

// Bind applies the identifier pair to the session when one is known, and
// buffers it otherwise. Never returns an error to the caller: every failure
// path degrades to buffering, and buffering failures are only logged.
func (r *IdentityReconciler) Bind(ctx context.Context, chatID, chatGroupID string) {
	if sid := r.sctx.SessionID(); sid != "" {
		if err := r.apply(ctx, sid, chatID, chatGroupID); err == nil {
			return
		}
	}

	ids := PendingIdentifiers{
		ChatID:      chatID,
		ChatGroupID: chatGroupID,
		ReceivedAt:  time.Now(),
	}
	if err := r.pending.Put(ctx, r.sctx.ConnectionID, ids); err != nil {
		r.metrics.RecordIdentityBind("buffer_failed")
		log.Error().
			Err(err).
			Str("connectionId", r.sctx.ConnectionID).
			Msg("failed to buffer pending provider identifiers")
		return
	}
	r.metrics.RecordIdentityBind("buffered")
	log.Debug().
		Str("connectionId", r.sctx.ConnectionID).
		Msg("provider identifiers buffered until session exists")
}

// apply verifies the session row still exists and writes the identifiers at
// most once. A stale session id falls back to errSessionUnknown so the caller
// buffers instead.
func (r *IdentityReconciler) apply(ctx context.Context, sessionID, chatID, chatGroupID string) error {
	session, err := r.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return errSessionUnknown
	}

	if session.ProviderChatID != nil {
		// Duplicate metadata event; identifiers are never overwritten.
		r.metrics.RecordIdentityBind("duplicate")
		return nil
	}

	applied, err := r.sessions.AttachProviderIDs(ctx, sessionID, chatID, chatGroupID)
	if err != nil {
		return err
	}
	if applied {
		r.metrics.RecordIdentityBind("applied")
		log.Info().
			Str("connectionId", r.sctx.ConnectionID).
			Str("sessionId", sessionID).
			Str("providerChatId", chatID).
			Msg("provider identifiers bound to session")
	} else {
		r.metrics.RecordIdentityBind("duplicate")
	}
	return nil
}

// Flush retries the buffered identifier pair against the now-known session.
// Returns true only when a pending entry existed and was applied, so the
// watchdog keeps ticking while no metadata has arrived yet.
func (r *IdentityReconciler) Flush(ctx context.Context) bool {
	ids, err := r.pending.Get(ctx, r.sctx.ConnectionID)
	if err != nil {
		log.Error().
			Err(err).
			Str("connectionId", r.sctx.ConnectionID).
			Msg("failed to read pending provider identifiers")
		return false
	}
	if ids == nil {
		return false
	}

	sid := r.sctx.SessionID()
	if sid == "" {
		return false
	}

	if err := r.apply(ctx, sid, ids.ChatID, ids.ChatGroupID); err != nil {
		log.Warn().
			Err(err).
			Str("connectionId", r.sctx.ConnectionID).
			Msg("pending identifier flush failed, watchdog will retry")
		return false
	}

	if err := r.pending.Delete(ctx, r.sctx.ConnectionID); err != nil {
		log.Warn().Err(err).Msg("failed to delete applied pending identifiers")
	}
	return true
}

// StartWatchdog runs the bounded retry loop: every interval it attempts a
// flush, and it self-cancels after the window, on success, or on Stop.
func (r *IdentityReconciler) StartWatchdog(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		deadline := time.NewTimer(r.window)
		defer deadline.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-deadline.C:
				ids, err := r.pending.Get(ctx, r.sctx.ConnectionID)
				if err == nil && ids != nil {
					r.metrics.RecordWatchdogTimeout()
					log.Warn().
						Str("connectionId", r.sctx.ConnectionID).
						Msg("reconciliation window expired with identifiers unbound")
					_ = r.pending.Delete(ctx, r.sctx.ConnectionID)
				}
				return
			case <-ticker.C:
				if r.Flush(ctx) {
					return
				}
			}
		}
	}()
}

// Stop cancels the watchdog; safe to call multiple times.
func (r *IdentityReconciler) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}
