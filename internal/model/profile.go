package model

import (
	"time"
)

type UserProfile struct {
	ID   string           `db:"id" json:"id"`
	Tier SubscriptionTier `db:"subscription_tier" json:"subscriptionTier"`
	// PersistencePreference is three-valued: nil means the user never chose.
	PersistencePreference *bool     `db:"persistence_preference" json:"persistencePreference,omitempty"`
	APITokenHash          string    `db:"api_token_hash" json:"-"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
}
