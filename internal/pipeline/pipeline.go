package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/config"
	"github.com/haventalk/voice-ingest-go/internal/model"
	"github.com/haventalk/voice-ingest-go/internal/observability/metrics"
	"github.com/haventalk/voice-ingest-go/internal/repository"
	"github.com/haventalk/voice-ingest-go/internal/voice"
)

const closeStampTimeout = 10 * time.Second

// Options tune the pipeline's timing. Tests shrink these; production uses
// Defaults.
type Options struct {
	WatchdogInterval  time.Duration
	WatchdogWindow    time.Duration
	IngestMaxAttempts int
	IngestBackoffBase time.Duration
	QueueSize         int
}

func DefaultOptions() Options {
	return Options{
		WatchdogInterval:  config.WatchdogInterval,
		WatchdogWindow:    config.WatchdogWindow,
		IngestMaxAttempts: config.IngestMaxAttempts,
		IngestBackoffBase: config.IngestBackoffBase,
		QueueSize:         config.IngestQueueSize,
	}
}

// Deps are the pipeline's collaborators, injected explicitly.
type Deps struct {
	Sessions repository.SessionRepository
	Turns    repository.TurnRepository
	Profiles repository.ProfileRepository
	Pending  PendingIdentifierStore
	Fanout   Fanout
	Metrics  *metrics.Metrics
}

// Pipeline is the per-connection event sink. Transcript turns flow through a
// single ordered worker; metadata binds and error logging happen on the
// calling goroutine. No failure in here ever reaches the live conversation.
type Pipeline struct {
	sctx       *SessionContext
	gate       *ConsentGate
	creator    *SessionCreator
	reconciler *IdentityReconciler
	ingestor   *MessageIngestor
	sessions   repository.SessionRepository
	pending    PendingIdentifierStore
	fanout     Fanout
	metrics    *metrics.Metrics

	queue chan voice.TranscriptTurnEvent
	wg    sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

var _ voice.EventSink = (*Pipeline)(nil)

func New(connectionID, userID string, deps Deps, opts Options) *Pipeline {
	sctx := NewSessionContext(connectionID, userID)

	reconciler := NewIdentityReconciler(
		deps.Sessions, deps.Pending, sctx, deps.Metrics,
		opts.WatchdogInterval, opts.WatchdogWindow,
	)
	creator := NewSessionCreator(deps.Sessions, sctx, deps.Metrics, func(ctx context.Context) {
		reconciler.Flush(ctx)
	})
	ingestor := NewMessageIngestor(
		deps.Turns, sctx, deps.Metrics, deps.Fanout,
		opts.IngestMaxAttempts, opts.IngestBackoffBase,
	)

	return &Pipeline{
		sctx:       sctx,
		gate:       NewConsentGate(deps.Profiles),
		creator:    creator,
		reconciler: reconciler,
		ingestor:   ingestor,
		sessions:   deps.Sessions,
		pending:    deps.Pending,
		fanout:     deps.Fanout,
		metrics:    deps.Metrics,
		queue:      make(chan voice.TranscriptTurnEvent, opts.QueueSize),
	}
}

// Start evaluates consent once for the connection's lifetime, arms the
// reconciliation watchdog, and launches the ordered ingest worker.
func (p *Pipeline) Start(ctx context.Context) {
	p.sctx.SetConsent(p.gate.Allowed(ctx, p.sctx.UserID))
	p.metrics.RecordConnectionStart()

	log.Info().
		Str("connectionId", p.sctx.ConnectionID).
		Str("userId", p.sctx.UserID).
		Bool("persistence", p.sctx.Consent()).
		Msg("ingestion pipeline started")

	p.reconciler.StartWatchdog(ctx)

	p.wg.Add(1)
	go p.worker(ctx)
}

// Context exposes the shared per-connection state for handlers.
func (p *Pipeline) Context() *SessionContext {
	return p.sctx
}

func (p *Pipeline) OnTranscriptTurn(_ context.Context, ev voice.TranscriptTurnEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.metrics.RecordTurn(string(OutcomeDropped))
		log.Warn().
			Str("connectionId", p.sctx.ConnectionID).
			Msg("ingest queue full, turn dropped")
	}
}

func (p *Pipeline) OnSessionMetadata(ctx context.Context, ev voice.SessionMetadataEvent) {
	if !p.sctx.Consent() {
		return
	}
	p.reconciler.Bind(ctx, ev.ChatID, ev.ChatGroupID)
}

// OnError only logs; provider errors are never thrown back into the stream.
func (p *Pipeline) OnError(_ context.Context, ev voice.ErrorEvent) {
	log.Error().
		Str("connectionId", p.sctx.ConnectionID).
		Str("providerCode", ev.Code).
		Str("providerMessage", ev.Message).
		Msg("voice provider reported an error")
}

// OnClose drains the worker, stops the watchdog, and stamps the session with
// its final status and duration. Safe to call more than once.
func (p *Pipeline) OnClose(_ context.Context) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		p.wg.Wait()
		p.reconciler.Stop()

		duration := time.Since(p.sctx.StartedAt)
		p.metrics.RecordConnectionEnd(duration.Seconds())

		// The triggering context is usually already cancelled by the time the
		// stream ends, so the final stamp gets its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), closeStampTimeout)
		defer cancel()

		if err := p.pending.Delete(ctx, p.sctx.ConnectionID); err != nil {
			log.Warn().Err(err).Msg("failed to discard pending identifiers on close")
		}

		sessionID := p.sctx.SessionID()
		if sessionID == "" {
			log.Info().
				Str("connectionId", p.sctx.ConnectionID).
				Msg("connection closed without a persisted session")
			return
		}

		err := p.sessions.End(ctx, model.EndSessionParams{
			SessionID:       sessionID,
			Status:          model.SessionStatusCompleted,
			DurationSeconds: int(duration.Seconds()),
		})
		if err != nil {
			log.Error().
				Err(err).
				Str("sessionId", sessionID).
				Msg("failed to stamp session end")
		}

		if p.fanout != nil {
			p.fanout.SessionEnded(ctx, p.sctx.UserID, sessionID)
		}

		log.Info().
			Str("connectionId", p.sctx.ConnectionID).
			Str("sessionId", sessionID).
			Dur("duration", duration).
			Msg("connection closed, session completed")
	})
}

// worker drains the turn queue in arrival order. The first turn triggers
// session creation; every turn is then persisted. Creation or persistence
// failures degrade to unpersisted turns, never to a stopped worker.
func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()

	for ev := range p.queue {
		if p.sctx.Consent() {
			// Ensure is idempotent and dedupes concurrent triggers; errors
			// are logged inside and leave the session id empty.
			_, _ = p.creator.Ensure(ctx)
		}
		p.ingestor.Persist(ctx, ev)
	}
}
