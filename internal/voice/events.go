// Package voice defines the event contract of the external conversational
// voice provider and the transports that deliver its events.
package voice

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	EventTypeTranscriptTurn  = "transcript_turn"
	EventTypeSessionMetadata = "session_metadata"
	EventTypeError           = "error"
)

// TranscriptTurnEvent is one finalized conversation turn from the provider.
type TranscriptTurnEvent struct {
	Role          string             `json:"role"`
	Content       string             `json:"content"`
	EmotionScores map[string]float64 `json:"emotionScores,omitempty"`
}

// SessionMetadataEvent carries the provider-issued identifiers for the live
// chat and its resumable chat group.
type SessionMetadataEvent struct {
	ChatID      string `json:"externalChatId"`
	ChatGroupID string `json:"externalChatGroupId"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EventSink receives provider events in delivery order. Implementations must
// never propagate failures back into the transport; a sink error only means
// the event could not be fully applied.
type EventSink interface {
	OnTranscriptTurn(ctx context.Context, ev TranscriptTurnEvent)
	OnSessionMetadata(ctx context.Context, ev SessionMetadataEvent)
	OnError(ctx context.Context, ev ErrorEvent)
	OnClose(ctx context.Context)
}

type envelope struct {
	Type string `json:"type"`
}

// Dispatch decodes one raw provider event and routes it to the sink.
// Unknown event types are ignored so provider additions stay non-breaking.
func Dispatch(ctx context.Context, sink EventSink, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode event envelope: %w", err)
	}

	switch env.Type {
	case EventTypeTranscriptTurn:
		var ev TranscriptTurnEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return fmt.Errorf("decode transcript_turn: %w", err)
		}
		sink.OnTranscriptTurn(ctx, ev)

	case EventTypeSessionMetadata:
		var ev SessionMetadataEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return fmt.Errorf("decode session_metadata: %w", err)
		}
		sink.OnSessionMetadata(ctx, ev)

	case EventTypeError:
		var ev ErrorEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return fmt.Errorf("decode error event: %w", err)
		}
		sink.OnError(ctx, ev)

	default:
		return nil
	}

	return nil
}
