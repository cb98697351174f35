package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haventalk/voice-ingest-go/internal/model"
	"github.com/haventalk/voice-ingest-go/internal/util"
)

type mockProfileRepo struct {
	findByIDFunc        func(ctx context.Context, id string) (*model.UserProfile, error)
	findByTokenHashFunc func(ctx context.Context, tokenHash string) (*model.UserProfile, error)
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockProfileRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.UserProfile, error) {
	if m.findByTokenHashFunc != nil {
		return m.findByTokenHashFunc(ctx, tokenHash)
	}
	return nil, nil
}

func TestAuthMiddleware(t *testing.T) {
	profile := &model.UserProfile{ID: "user-1", Tier: model.TierPremium}
	token := "valid-token"
	tokenHash := util.HashToken(token)

	newHandler := func(repo *mockProfileRepo) http.Handler {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return NewAuthMiddleware(repo).Handler(next)
	}

	t.Run("accepts a valid bearer token", func(t *testing.T) {
		repo := &mockProfileRepo{
			findByTokenHashFunc: func(_ context.Context, hash string) (*model.UserProfile, error) {
				require.Equal(t, tokenHash, hash)
				return profile, nil
			},
		}

		var captured *model.UserProfile
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetProfile(r.Context())
			w.WriteHeader(http.StatusOK)
		})
		handler := NewAuthMiddleware(repo).Handler(next)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		assert.Equal(t, "user-1", captured.ID)
	})

	t.Run("accepts the token as a query parameter", func(t *testing.T) {
		repo := &mockProfileRepo{
			findByTokenHashFunc: func(_ context.Context, hash string) (*model.UserProfile, error) {
				return profile, nil
			},
		}
		handler := newHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/v1/events?token="+token, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects a missing token", func(t *testing.T) {
		handler := newHandler(&mockProfileRepo{})

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		repo := &mockProfileRepo{
			findByTokenHashFunc: func(_ context.Context, _ string) (*model.UserProfile, error) {
				return nil, nil
			},
		}
		handler := newHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("returns 500 on repository failure", func(t *testing.T) {
		repo := &mockProfileRepo{
			findByTokenHashFunc: func(_ context.Context, _ string) (*model.UserProfile, error) {
				return nil, errors.New("db down")
			},
		}
		handler := newHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetProfile(t *testing.T) {
	t.Run("returns nil when no profile is set", func(t *testing.T) {
		assert.Nil(t, GetProfile(context.Background()))
	})

	t.Run("returns the stored profile", func(t *testing.T) {
		profile := &model.UserProfile{ID: "user-1"}
		ctx := context.WithValue(context.Background(), ProfileContextKey, profile)
		assert.Equal(t, profile, GetProfile(ctx))
	})
}
