// Package events exports persisted transcript turns to the analytics
// platform over Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/haventalk/voice-ingest-go/internal/model"
	"github.com/haventalk/voice-ingest-go/internal/observability/metrics"
)

// Publisher writes turn events to one Kafka topic. When disabled it runs in
// log-only mode so the pipeline does not need to care whether analytics
// export is configured.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	metrics *metrics.Metrics
}

type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

func New(cfg Config) *Publisher {
	m := metrics.DefaultMetrics

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("kafka disabled, analytics export in log-only mode")
		return &Publisher{
			topic:   cfg.Topic,
			enabled: false,
			metrics: m,
		}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("kafka analytics publisher initialized")

	return &Publisher{
		writer:  writer,
		topic:   cfg.Topic,
		enabled: true,
		metrics: m,
	}
}

// TurnEvent is the analytics payload for one persisted turn. Emotion scores
// travel with the turn so downstream consumers avoid a join.
type TurnEvent struct {
	SessionID string    `json:"sessionId"`
	TurnID    string    `json:"turnId"`
	Role      string    `json:"role"`
	TurnIndex int       `json:"turnIndex"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublishTurn exports one persisted turn, keyed by session so a session's
// turns stay ordered within a partition.
func (p *Publisher) PublishTurn(ctx context.Context, turn *model.TranscriptTurn) error {
	event := TurnEvent{
		SessionID: turn.SessionID,
		TurnID:    turn.ID,
		Role:      string(turn.Role),
		TurnIndex: turn.TurnIndex,
		CreatedAt: turn.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("failed to marshal turn event")
		return err
	}

	if !p.enabled || p.writer == nil {
		log.Debug().
			Str("topic", p.topic).
			RawJSON("payload", payload).
			Msg("analytics export (log-only)")
		p.metrics.RecordKafkaPublish(p.topic, nil)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(turn.SessionID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", p.topic).
			Str("sessionId", turn.SessionID).
			Msg("failed to write turn event to kafka")
		p.metrics.RecordKafkaPublish(p.topic, err)
		return err
	}

	p.metrics.RecordKafkaPublish(p.topic, nil)
	return nil
}

func (p *Publisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
