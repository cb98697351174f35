package repository

import (
	"context"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/haventalk/voice-ingest-go/internal/model"
)

type TurnRepository interface {
	// Create persists a transcript turn and, when the params carry emotion
	// scores, one emotion_metrics row per named dimension in the same
	// transaction.
	Create(ctx context.Context, params model.CreateTurnParams) (*model.TranscriptTurn, error)
	FindBySessionID(ctx context.Context, sessionID string) ([]model.TranscriptTurn, error)
	CountBySessionID(ctx context.Context, sessionID string) (int, error)
	FindEmotionsBySessionID(ctx context.Context, sessionID string) ([]model.EmotionMetric, error)
}

type turnRepo struct {
	db *sqlx.DB
}

func NewTurnRepository(db *sqlx.DB) TurnRepository {
	return &turnRepo{db: db}
}

func (r *turnRepo) Create(ctx context.Context, params model.CreateTurnParams) (*model.TranscriptTurn, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var turn model.TranscriptTurn
	err = tx.GetContext(ctx, &turn, `
		INSERT INTO transcript_turns (session_id, role, content, turn_index)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.SessionID, params.Role, params.Content, params.TurnIndex)
	if err != nil {
		return nil, err
	}

	// Deterministic insert order keeps the rows stable across runs.
	emotions := make([]string, 0, len(params.EmotionScores))
	for name := range params.EmotionScores {
		emotions = append(emotions, name)
	}
	sort.Strings(emotions)

	for _, name := range emotions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO emotion_metrics (session_id, turn_id, emotion_type, intensity, confidence)
			VALUES ($1, $2, $3, $4, 1.0)
		`, params.SessionID, turn.ID, name, params.EmotionScores[name])
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &turn, nil
}

func (r *turnRepo) FindBySessionID(ctx context.Context, sessionID string) ([]model.TranscriptTurn, error) {
	var turns []model.TranscriptTurn
	err := r.db.SelectContext(ctx, &turns, `
		SELECT * FROM transcript_turns
		WHERE session_id = $1
		ORDER BY turn_index ASC
	`, sessionID)
	return turns, err
}

func (r *turnRepo) CountBySessionID(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM transcript_turns WHERE session_id = $1
	`, sessionID)
	return count, err
}

func (r *turnRepo) FindEmotionsBySessionID(ctx context.Context, sessionID string) ([]model.EmotionMetric, error) {
	var metrics []model.EmotionMetric
	err := r.db.SelectContext(ctx, &metrics, `
		SELECT * FROM emotion_metrics
		WHERE session_id = $1
		ORDER BY turn_id, emotion_type
	`, sessionID)
	return metrics, err
}
