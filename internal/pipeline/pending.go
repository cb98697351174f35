package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/haventalk/voice-ingest-go/internal/redis"
)

// PendingIdentifiers are provider identifiers that arrived before the
// conversation session row existed. They live only until applied or until
// the reconciliation window expires.
type PendingIdentifiers struct {
	ChatID      string    `json:"chat_id"`
	ChatGroupID string    `json:"chat_group_id"`
	ReceivedAt  time.Time `json:"received_at"`
}

type PendingIdentifierStore interface {
	Put(ctx context.Context, connectionID string, ids PendingIdentifiers) error
	Get(ctx context.Context, connectionID string) (*PendingIdentifiers, error)
	Delete(ctx context.Context, connectionID string) error
}

// RedisPendingStore keeps pending identifiers in redis with a TTL equal to
// the reconciliation window, so abandoned entries clean themselves up.
type RedisPendingStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

func NewRedisPendingStore(client *redisclient.Client, ttl time.Duration) *RedisPendingStore {
	return &RedisPendingStore{client: client, ttl: ttl}
}

func (s *RedisPendingStore) Put(ctx context.Context, connectionID string, ids PendingIdentifiers) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisclient.PendingIdentifierKey(connectionID), data, s.ttl).Err()
}

func (s *RedisPendingStore) Get(ctx context.Context, connectionID string) (*PendingIdentifiers, error) {
	data, err := s.client.Get(ctx, redisclient.PendingIdentifierKey(connectionID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids PendingIdentifiers
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return &ids, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, connectionID string) error {
	return s.client.Del(ctx, redisclient.PendingIdentifierKey(connectionID)).Err()
}

// MemoryPendingStore is a process-local store used in tests and single-node
// deployments.
type MemoryPendingStore struct {
	mu      sync.Mutex
	entries map[string]PendingIdentifiers
}

func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{entries: make(map[string]PendingIdentifiers)}
}

func (s *MemoryPendingStore) Put(_ context.Context, connectionID string, ids PendingIdentifiers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[connectionID] = ids
	return nil
}

func (s *MemoryPendingStore) Get(_ context.Context, connectionID string) (*PendingIdentifiers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.entries[connectionID]
	if !ok {
		return nil, nil
	}
	return &ids, nil
}

func (s *MemoryPendingStore) Delete(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, connectionID)
	return nil
}
