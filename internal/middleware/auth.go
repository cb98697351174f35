package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/model"
	"github.com/haventalk/voice-ingest-go/internal/repository"
	"github.com/haventalk/voice-ingest-go/internal/util"
)

type contextKey string

const ProfileContextKey contextKey = "profile"

func GetProfile(ctx context.Context) *model.UserProfile {
	if profile, ok := ctx.Value(ProfileContextKey).(*model.UserProfile); ok {
		return profile
	}
	return nil
}

type AuthMiddleware struct {
	profileRepo repository.ProfileRepository
}

func NewAuthMiddleware(profileRepo repository.ProfileRepository) *AuthMiddleware {
	return &AuthMiddleware{profileRepo: profileRepo}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		tokenHash := util.HashToken(token)
		profile, err := m.profileRepo.FindByTokenHash(r.Context(), tokenHash)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: database error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Authentication failed",
			})
			return
		}

		if profile == nil {
			log.Warn().Msg("auth middleware: invalid token attempt")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		ctx := context.WithValue(r.Context(), ProfileContextKey, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
