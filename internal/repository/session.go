package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/haventalk/voice-ingest-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.ConversationSession, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.ConversationSession, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.ConversationSession, error)
	// AttachProviderIDs writes the provider identifiers onto a session that
	// does not have them yet. Returns false when the session already carries
	// identifiers (the write is a no-op, never an overwrite) and true when
	// the identifiers were applied.
	AttachProviderIDs(ctx context.Context, id, chatID, chatGroupID string) (bool, error)
	End(ctx context.Context, params model.EndSessionParams) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	MarkStaleAbandoned(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.ConversationSession, error) {
	var session model.ConversationSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM conversation_sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.ConversationSession, error) {
	var sessions []model.ConversationSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM conversation_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return sessions, err
}

func (r *sessionRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM conversation_sessions WHERE user_id = $1
	`, userID)
	return count, err
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.ConversationSession, error) {
	var session model.ConversationSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO conversation_sessions (user_id, title, status)
		VALUES ($1, $2, 'active')
		RETURNING *
	`, params.UserID, params.Title)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) AttachProviderIDs(ctx context.Context, id, chatID, chatGroupID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversation_sessions SET
			provider_chat_id = $2,
			provider_chat_group_id = $3
		WHERE id = $1 AND provider_chat_id IS NULL
	`, id, chatID, chatGroupID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *sessionRepo) End(ctx context.Context, params model.EndSessionParams) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversation_sessions SET
			status = $2,
			duration_seconds = $3,
			ended_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, params.SessionID, params.Status, params.DurationSeconds)
	return err
}

func (r *sessionRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM conversation_sessions WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionRepo) MarkStaleAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversation_sessions s SET
			status = 'abandoned',
			ended_at = NOW()
		WHERE s.status = 'active'
		AND s.created_at < $1
		AND NOT EXISTS (
			SELECT 1 FROM transcript_turns t
			WHERE t.session_id = s.id AND t.created_at >= $1
		)
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
