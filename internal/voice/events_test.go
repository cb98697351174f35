package voice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink records every event it receives.
type captureSink struct {
	turns    []TranscriptTurnEvent
	metadata []SessionMetadataEvent
	errs     []ErrorEvent
	closed   int
}

func (s *captureSink) OnTranscriptTurn(_ context.Context, ev TranscriptTurnEvent) {
	s.turns = append(s.turns, ev)
}

func (s *captureSink) OnSessionMetadata(_ context.Context, ev SessionMetadataEvent) {
	s.metadata = append(s.metadata, ev)
}

func (s *captureSink) OnError(_ context.Context, ev ErrorEvent) {
	s.errs = append(s.errs, ev)
}

func (s *captureSink) OnClose(_ context.Context) {
	s.closed++
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("routes transcript turns with emotion scores", func(t *testing.T) {
		sink := &captureSink{}
		raw := []byte(`{
			"type": "transcript_turn",
			"role": "user",
			"content": "I had a rough day",
			"emotionScores": {"sadness": 0.72, "calmness": 0.11}
		}`)

		require.NoError(t, Dispatch(ctx, sink, raw))
		require.Len(t, sink.turns, 1)
		assert.Equal(t, "user", sink.turns[0].Role)
		assert.Equal(t, "I had a rough day", sink.turns[0].Content)
		assert.InDelta(t, 0.72, sink.turns[0].EmotionScores["sadness"], 1e-9)
	})

	t.Run("routes session metadata", func(t *testing.T) {
		sink := &captureSink{}
		raw := []byte(`{
			"type": "session_metadata",
			"externalChatId": "chat-1",
			"externalChatGroupId": "group-1"
		}`)

		require.NoError(t, Dispatch(ctx, sink, raw))
		require.Len(t, sink.metadata, 1)
		assert.Equal(t, "chat-1", sink.metadata[0].ChatID)
		assert.Equal(t, "group-1", sink.metadata[0].ChatGroupID)
	})

	t.Run("routes provider errors", func(t *testing.T) {
		sink := &captureSink{}
		raw := []byte(`{"type": "error", "code": "E101", "message": "stream hiccup"}`)

		require.NoError(t, Dispatch(ctx, sink, raw))
		require.Len(t, sink.errs, 1)
		assert.Equal(t, "E101", sink.errs[0].Code)
	})

	t.Run("ignores unknown event types", func(t *testing.T) {
		sink := &captureSink{}
		raw := []byte(`{"type": "audio_level", "level": 0.3}`)

		require.NoError(t, Dispatch(ctx, sink, raw))
		assert.Empty(t, sink.turns)
		assert.Empty(t, sink.metadata)
		assert.Empty(t, sink.errs)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		sink := &captureSink{}

		assert.Error(t, Dispatch(ctx, sink, []byte(`not json`)))
		assert.Error(t, Dispatch(ctx, sink, []byte(`{"type": "transcript_turn", "role": 42}`)))
	})

	t.Run("turn without emotion scores decodes cleanly", func(t *testing.T) {
		sink := &captureSink{}
		raw := []byte(`{"type": "transcript_turn", "role": "assistant", "content": "hello"}`)

		require.NoError(t, Dispatch(ctx, sink, raw))
		require.Len(t, sink.turns, 1)
		assert.Nil(t, sink.turns[0].EmotionScores)
	})
}
