package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/events"
	"github.com/haventalk/voice-ingest-go/internal/model"
	"github.com/haventalk/voice-ingest-go/internal/sse"
)

// TurnFanout forwards persisted turns to dashboard clients over the SSE
// broker and to the analytics publisher. Both legs are best-effort; a fanout
// failure never affects the pipeline.
type TurnFanout struct {
	broker    *sse.Broker
	publisher *events.Publisher
}

func NewTurnFanout(broker *sse.Broker, publisher *events.Publisher) *TurnFanout {
	return &TurnFanout{broker: broker, publisher: publisher}
}

func (f *TurnFanout) TurnPersisted(ctx context.Context, userID string, turn *model.TranscriptTurn) {
	if f.broker != nil {
		data, err := json.Marshal(turn)
		if err == nil {
			err = f.broker.Publish(ctx, userID, sse.Event{Type: "turn", Data: data})
		}
		if err != nil {
			log.Warn().
				Err(err).
				Str("sessionId", turn.SessionID).
				Msg("failed to publish turn to sse broker")
		}
	}

	if f.publisher != nil {
		_ = f.publisher.PublishTurn(ctx, turn)
	}
}

func (f *TurnFanout) SessionEnded(ctx context.Context, userID, sessionID string) {
	if f.broker == nil {
		return
	}
	data, err := json.Marshal(map[string]string{"sessionId": sessionID})
	if err == nil {
		err = f.broker.Publish(ctx, userID, sse.Event{Type: "session_ended", Data: data})
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("sessionId", sessionID).
			Msg("failed to publish session end to sse broker")
	}
}
