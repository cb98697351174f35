package model

import (
	"time"
)

type ConversationSession struct {
	ID                  string        `db:"id" json:"id"`
	UserID              *string       `db:"user_id" json:"userId,omitempty"`
	Title               string        `db:"title" json:"title"`
	Summary             *string       `db:"summary" json:"summary,omitempty"`
	ProviderChatID      *string       `db:"provider_chat_id" json:"providerChatId,omitempty"`
	ProviderChatGroupID *string       `db:"provider_chat_group_id" json:"providerChatGroupId,omitempty"`
	Status              SessionStatus `db:"status" json:"status"`
	DurationSeconds     *int          `db:"duration_seconds" json:"durationSeconds,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"createdAt"`
	EndedAt             *time.Time    `db:"ended_at" json:"endedAt,omitempty"`
}

type CreateSessionParams struct {
	// UserID is optional ownership; creation is retried without it when the
	// primary write is rejected.
	UserID *string
	Title  string
}

type EndSessionParams struct {
	SessionID       string
	Status          SessionStatus
	DurationSeconds int
}
