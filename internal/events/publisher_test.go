package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haventalk/voice-ingest-go/internal/model"
)

func TestPublisherLogOnlyMode(t *testing.T) {
	turn := &model.TranscriptTurn{
		ID:        "turn-1",
		SessionID: "sess-1",
		Role:      model.RoleUser,
		TurnIndex: 0,
		CreatedAt: time.Now(),
	}

	t.Run("disabled publisher accepts turns without a broker", func(t *testing.T) {
		p := New(Config{Enabled: false, Topic: "transcript-turns"})

		err := p.PublishTurn(context.Background(), turn)
		assert.NoError(t, err)
	})

	t.Run("enabled flag without brokers falls back to log-only", func(t *testing.T) {
		p := New(Config{Enabled: true, Brokers: nil, Topic: "transcript-turns"})

		err := p.PublishTurn(context.Background(), turn)
		assert.NoError(t, err)
	})

	t.Run("close is safe without a writer", func(t *testing.T) {
		p := New(Config{Enabled: false, Topic: "transcript-turns"})
		require.NoError(t, p.Close())
	})
}
