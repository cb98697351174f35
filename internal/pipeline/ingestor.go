package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/model"
	"github.com/haventalk/voice-ingest-go/internal/observability/metrics"
	"github.com/haventalk/voice-ingest-go/internal/repository"
	"github.com/haventalk/voice-ingest-go/internal/voice"
)

// Outcome of persisting one transcript turn.
type PersistOutcome string

const (
	OutcomePersisted PersistOutcome = "persisted"
	OutcomeSkipped   PersistOutcome = "skipped"
	OutcomeDropped   PersistOutcome = "dropped"
)

// Fanout receives pipeline outcomes for live delivery and analytics export.
// Implementations must not block for long; failures are theirs to log.
type Fanout interface {
	TurnPersisted(ctx context.Context, userID string, turn *model.TranscriptTurn)
	SessionEnded(ctx context.Context, userID, sessionID string)
}

// MessageIngestor persists transcript turns and their emotion metrics with
// bounded retry, gated by the cached consent decision. Turns are persisted in
// arrival order; a turn dropped after exhausting retries never blocks later
// turns, so the stored transcript can have gaps.
type MessageIngestor struct {
	turns   repository.TurnRepository
	sctx    *SessionContext
	metrics *metrics.Metrics
	fanout  Fanout

	maxAttempts int
	backoffBase time.Duration

	nextIndex int
}

func NewMessageIngestor(
	turns repository.TurnRepository,
	sctx *SessionContext,
	m *metrics.Metrics,
	fanout Fanout,
	maxAttempts int,
	backoffBase time.Duration,
) *MessageIngestor {
	return &MessageIngestor{
		turns:       turns,
		sctx:        sctx,
		metrics:     m,
		fanout:      fanout,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
	}
}

// Persist stores one turn. Consent denial and a missing session id are
// deliberate skips, not errors.
func (i *MessageIngestor) Persist(ctx context.Context, ev voice.TranscriptTurnEvent) PersistOutcome {
	if !i.sctx.Consent() {
		i.metrics.RecordTurn(string(OutcomeSkipped))
		return OutcomeSkipped
	}
	sessionID := i.sctx.SessionID()
	if sessionID == "" {
		i.metrics.RecordTurn(string(OutcomeSkipped))
		return OutcomeSkipped
	}

	role := model.TurnRole(ev.Role)
	if !role.Valid() {
		role = model.RoleAssistant
	}

	params := model.CreateTurnParams{
		SessionID:     sessionID,
		Role:          role,
		Content:       ev.Content,
		TurnIndex:     i.nextIndex,
		EmotionScores: ev.EmotionScores,
	}

	start := time.Now()
	turn, err := i.persistWithRetry(ctx, params)
	if err != nil {
		i.metrics.RecordTurn(string(OutcomeDropped))
		log.Error().
			Err(err).
			Str("connectionId", i.sctx.ConnectionID).
			Str("sessionId", sessionID).
			Int("turnIndex", params.TurnIndex).
			Msg("turn dropped after exhausting retries")
		// The index is still consumed so later turns keep their relative order.
		i.nextIndex++
		return OutcomeDropped
	}

	i.nextIndex++
	i.metrics.RecordTurn(string(OutcomePersisted))
	i.metrics.RecordTurnLatency(time.Since(start).Seconds())

	if i.fanout != nil {
		i.fanout.TurnPersisted(ctx, i.sctx.UserID, turn)
	}
	return OutcomePersisted
}

// persistWithRetry attempts the write up to maxAttempts times with
// exponential backoff (base, 2x, 4x ...) on transient storage errors.
func (i *MessageIngestor) persistWithRetry(ctx context.Context, params model.CreateTurnParams) (*model.TranscriptTurn, error) {
	backoff := i.backoffBase
	var lastErr error

	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		turn, err := i.turns.Create(ctx, params)
		if err == nil {
			return turn, nil
		}
		lastErr = err

		if attempt == i.maxAttempts {
			break
		}

		i.metrics.RecordTurnRetry()
		log.Warn().
			Err(err).
			Str("sessionId", params.SessionID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("turn persistence failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, lastErr
}
