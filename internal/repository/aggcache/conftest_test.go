package aggcache

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peopledir/internal/db"
)

type mockSource struct {
	groupDoc   bson.D
	count      int64
	err        error
	groupCalls int
	countCalls int
}

func (m *mockSource) GroupDocumentByCountry(_ context.Context, _, _ string) (bson.D, error) {
	m.groupCalls++
	return m.groupDoc, m.err
}

func (m *mockSource) CountByCountry(_ context.Context, _ string) (int64, error) {
	m.countCalls++
	return m.count, m.err
}

// memStore is an in-memory KV store; hooks override individual calls.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getFn  func(ctx context.Context, key string) ([]byte, error)
	setFn  func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	incrFn func(ctx context.Context, key string, val int64) error
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) IncrBy(ctx context.Context, key string, val int64) error {
	if m.incrFn != nil {
		return m.incrFn(ctx, key, val)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, _ := strconv.ParseInt(string(m.data[key]), 10, 64)
	m.data[key] = []byte(strconv.FormatInt(cur+val, 10))
	return nil
}

func newTestCache(t *testing.T, src *mockSource) (*Cache, *memStore) {
	t.Helper()
	ms := &memStore{data: make(map[string][]byte)}
	return New(src, ms, time.Minute, nil, zap.NewNop()), ms
}
