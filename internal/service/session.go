package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	apperrors "github.com/haventalk/voice-ingest-go/internal/errors"
	"github.com/haventalk/voice-ingest-go/internal/model"
	"github.com/haventalk/voice-ingest-go/internal/repository"
)

type SessionService struct {
	sessions repository.SessionRepository
	turns    repository.TurnRepository
}

func NewSessionService(
	sessions repository.SessionRepository,
	turns repository.TurnRepository,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		turns:    turns,
	}
}

type SessionListResult struct {
	Sessions []model.ConversationSession `json:"sessions"`
	Total    int                         `json:"total"`
	HasMore  bool                        `json:"hasMore"`
}

func (s *SessionService) List(ctx context.Context, userID string, limit, offset int) (*SessionListResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	sessions, err := s.sessions.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	total, err := s.sessions.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	return &SessionListResult{
		Sessions: sessions,
		Total:    total,
		HasMore:  offset+len(sessions) < total,
	}, nil
}

// Get returns a session only to its owner.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*model.ConversationSession, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil || session.UserID == nil || *session.UserID != userID {
		return nil, apperrors.NotFound("session")
	}
	return session, nil
}

type SessionTranscript struct {
	Turns    []model.TranscriptTurn `json:"turns"`
	Emotions []model.EmotionMetric  `json:"emotions"`
}

func (s *SessionService) Transcript(ctx context.Context, userID, sessionID string) (*SessionTranscript, error) {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	turns, err := s.turns.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find turns: %w", err)
	}
	emotions, err := s.turns.FindEmotionsBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find emotion metrics: %w", err)
	}

	return &SessionTranscript{Turns: turns, Emotions: emotions}, nil
}

// DeleteAll removes every session the user owns; turns and emotion metrics
// go with them via foreign keys. This is the user-triggered bulk wipe.
func (s *SessionService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	count, err := s.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	log.Info().
		Str("userId", userID).
		Int64("count", count).
		Msg("user conversation history deleted")
	return count, nil
}
