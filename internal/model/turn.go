package model

import (
	"time"
)

type TranscriptTurn struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"sessionId"`
	Role      TurnRole  `db:"role" json:"role"`
	Content   string    `db:"content" json:"content"`
	TurnIndex int       `db:"turn_index" json:"turnIndex"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// EmotionMetric is one named dimension of a turn's emotion score vector.
type EmotionMetric struct {
	ID          string  `db:"id" json:"id"`
	SessionID   string  `db:"session_id" json:"sessionId"`
	TurnID      string  `db:"turn_id" json:"turnId"`
	EmotionType string  `db:"emotion_type" json:"emotionType"`
	Intensity   float64 `db:"intensity" json:"intensity"`
	Confidence  float64 `db:"confidence" json:"confidence"`
}

type CreateTurnParams struct {
	SessionID     string
	Role          TurnRole
	Content       string
	TurnIndex     int
	EmotionScores map[string]float64
}
