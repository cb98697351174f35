package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/model"
	"github.com/haventalk/voice-ingest-go/internal/repository"
)

// ConsentGate decides whether a user's conversation data may be persisted.
// The decision is a pure read over the user's subscription tier and explicit
// preference; callers evaluate it once per connection and cache the result.
type ConsentGate struct {
	profiles repository.ProfileRepository
}

func NewConsentGate(profiles repository.ProfileRepository) *ConsentGate {
	return &ConsentGate{profiles: profiles}
}

// Allowed returns false for every free-tier user regardless of preference,
// and false for a user whose preference is explicitly false. Everything
// uncertain allows persistence: a missing profile, a fetch failure, or a
// tier string this build does not know yet. This gate only controls
// transcript storage, not billing, and the product chose availability over
// strictness here. The warning logs keep the choice visible in operation.
func (g *ConsentGate) Allowed(ctx context.Context, userID string) bool {
	profile, err := g.profiles.FindByID(ctx, userID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("userId", userID).
			Msg("consent check failed, defaulting to allow")
		return true
	}
	if profile == nil {
		log.Warn().
			Str("userId", userID).
			Msg("no profile for consent check, defaulting to allow")
		return true
	}

	if profile.Tier == model.TierFree {
		return false
	}
	if profile.PersistencePreference != nil && !*profile.PersistencePreference {
		return false
	}
	if !profile.Tier.Paid() {
		// Only the free tier is ever denied outright.
		log.Warn().
			Str("userId", userID).
			Str("tier", string(profile.Tier)).
			Msg("unknown subscription tier, defaulting to allow")
	}
	return true
}
