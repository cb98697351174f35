package model

type SubscriptionTier string

const (
	TierFree     SubscriptionTier = "free"
	TierStandard SubscriptionTier = "standard"
	TierPremium  SubscriptionTier = "premium"
)

// Paid reports whether the tier is eligible for transcript persistence.
func (t SubscriptionTier) Paid() bool {
	return t == TierStandard || t == TierPremium
}

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

func (r TurnRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}
