package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haventalk/voice-ingest-go/internal/model"
)

func TestSessionCreator(t *testing.T) {
	ctx := context.Background()

	newCreator := func(repo *mockSessionRepo) (*SessionCreator, *SessionContext) {
		sctx := NewSessionContext("conn-1", "user-1")
		return NewSessionCreator(repo, sctx, testMetrics(), nil), sctx
	}

	t.Run("creates a session on first call and caches the id", func(t *testing.T) {
		repo := new(mockSessionRepo)
		repo.On("Create", ctx, mock.Anything).Return(&model.ConversationSession{ID: "sess-1"}, nil).Once()

		creator, sctx := newCreator(repo)

		id, err := creator.Ensure(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sess-1", id)
		assert.Equal(t, "sess-1", sctx.SessionID())

		// Second call returns the cached id without another insert.
		id, err = creator.Ensure(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sess-1", id)
		repo.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("includes the user id on the primary attempt", func(t *testing.T) {
		repo := new(mockSessionRepo)
		repo.On("Create", ctx, mock.MatchedBy(func(p model.CreateSessionParams) bool {
			return p.UserID != nil && *p.UserID == "user-1"
		})).Return(&model.ConversationSession{ID: "sess-1"}, nil).Once()

		creator, _ := newCreator(repo)

		_, err := creator.Ensure(ctx)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("retries once with reduced payload when primary write is rejected", func(t *testing.T) {
		repo := new(mockSessionRepo)
		repo.On("Create", ctx, mock.MatchedBy(func(p model.CreateSessionParams) bool {
			return p.UserID != nil
		})).Return(nil, errors.New("ownership rejected")).Once()
		repo.On("Create", ctx, mock.MatchedBy(func(p model.CreateSessionParams) bool {
			return p.UserID == nil
		})).Return(&model.ConversationSession{ID: "sess-2"}, nil).Once()

		creator, sctx := newCreator(repo)

		id, err := creator.Ensure(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sess-2", id)
		assert.Equal(t, "sess-2", sctx.SessionID())
		repo.AssertExpectations(t)
	})

	t.Run("failure leaves the session id empty and allows a later retrigger", func(t *testing.T) {
		repo := new(mockSessionRepo)
		repo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db down")).Twice()

		creator, sctx := newCreator(repo)

		_, err := creator.Ensure(ctx)
		assert.Error(t, err)
		assert.Empty(t, sctx.SessionID())

		// The failed future is cleared, so a later trigger attempts again.
		repo.On("Create", ctx, mock.Anything).Return(&model.ConversationSession{ID: "sess-3"}, nil)
		id, err := creator.Ensure(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sess-3", id)
	})

	t.Run("concurrent triggers share one creation", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		var startOnce sync.Once

		repo := new(mockSessionRepo)
		repo.On("Create", ctx, mock.Anything).
			Run(func(mock.Arguments) {
				startOnce.Do(func() { close(started) })
				<-release
			}).
			Return(&model.ConversationSession{ID: "sess-1"}, nil)

		creator, _ := newCreator(repo)

		const triggers = 10
		ids := make([]string, triggers)
		errs := make([]error, triggers)

		var wg sync.WaitGroup
		for i := 0; i < triggers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ids[i], errs[i] = creator.Ensure(ctx)
			}(i)
		}

		<-started
		close(release)
		wg.Wait()

		for i := 0; i < triggers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, "sess-1", ids[i])
		}
		repo.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("runs the onCreated callback after a successful create", func(t *testing.T) {
		repo := new(mockSessionRepo)
		repo.On("Create", ctx, mock.Anything).Return(&model.ConversationSession{ID: "sess-1"}, nil)

		var called bool
		sctx := NewSessionContext("conn-1", "user-1")
		creator := NewSessionCreator(repo, sctx, testMetrics(), func(context.Context) {
			called = true
		})

		_, err := creator.Ensure(ctx)
		require.NoError(t, err)
		assert.True(t, called)
	})
}
