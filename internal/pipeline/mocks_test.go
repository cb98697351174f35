package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/haventalk/voice-ingest-go/internal/model"
	"github.com/haventalk/voice-ingest-go/internal/observability/metrics"
)

// Mock session repository
type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.ConversationSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConversationSession), args.Error(1)
}

func (m *mockSessionRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.ConversationSession, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConversationSession), args.Error(1)
}

func (m *mockSessionRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.ConversationSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConversationSession), args.Error(1)
}

func (m *mockSessionRepo) AttachProviderIDs(ctx context.Context, id, chatID, chatGroupID string) (bool, error) {
	args := m.Called(ctx, id, chatID, chatGroupID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepo) End(ctx context.Context, params model.EndSessionParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) MarkStaleAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// Mock turn repository
type mockTurnRepo struct {
	mock.Mock
}

func (m *mockTurnRepo) Create(ctx context.Context, params model.CreateTurnParams) (*model.TranscriptTurn, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TranscriptTurn), args.Error(1)
}

func (m *mockTurnRepo) FindBySessionID(ctx context.Context, sessionID string) ([]model.TranscriptTurn, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TranscriptTurn), args.Error(1)
}

func (m *mockTurnRepo) CountBySessionID(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *mockTurnRepo) FindEmotionsBySessionID(ctx context.Context, sessionID string) ([]model.EmotionMetric, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EmotionMetric), args.Error(1)
}

// Mock profile repository
type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *mockProfileRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.UserProfile, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

// recordingFanout captures pipeline outcomes without any transport.
type recordingFanout struct {
	mu        sync.Mutex
	turns     []*model.TranscriptTurn
	endedWith []string
}

func (f *recordingFanout) TurnPersisted(_ context.Context, _ string, turn *model.TranscriptTurn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn)
}

func (f *recordingFanout) SessionEnded(_ context.Context, _ string, sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endedWith = append(f.endedWith, sessionID)
}

func (f *recordingFanout) persistedTurns() []*model.TranscriptTurn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.TranscriptTurn(nil), f.turns...)
}

func (f *recordingFanout) endedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.endedWith...)
}

// testMetrics returns the shared metrics instance; prometheus metrics
// register against the default registry, so tests reuse one set.
func testMetrics() *metrics.Metrics {
	return metrics.DefaultMetrics
}

func boolPtr(b bool) *bool {
	return &b
}

func strPtr(s string) *string {
	return &s
}
