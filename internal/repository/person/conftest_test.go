package person

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/peopledir/internal/db"
	"github.com/kailas-cloud/peopledir/internal/db/update"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	findFn        func(ctx context.Context, collection string, filter bson.D) ([]bson.Raw, error)
	findOneFn     func(ctx context.Context, collection string, filter bson.D) (bson.Raw, error)
	countFn       func(ctx context.Context, collection string, filter bson.D) (int64, error)
	aggregateFn   func(ctx context.Context, collection string, pipeline mongo.Pipeline) (*db.AggregateResult, error)
	updateFirstFn func(ctx context.Context, collection string, filter bson.D, u update.Update) (db.UpdateResult, error)
	updateMultiFn func(ctx context.Context, collection string, filter bson.D, u update.Update) (db.UpdateResult, error)
	removeFirstFn func(ctx context.Context, collection string, filter bson.D) (int64, error)
	removeFn      func(ctx context.Context, collection string, filter bson.D) (int64, error)
}

func (m *mockStore) Find(ctx context.Context, collection string, filter bson.D) ([]bson.Raw, error) {
	if m.findFn != nil {
		return m.findFn(ctx, collection, filter)
	}
	return nil, nil
}

func (m *mockStore) FindOne(ctx context.Context, collection string, filter bson.D) (bson.Raw, error) {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, collection, filter)
	}
	return nil, db.ErrNoDocuments
}

func (m *mockStore) Count(ctx context.Context, collection string, filter bson.D) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, collection, filter)
	}
	return 0, nil
}

func (m *mockStore) Aggregate(ctx context.Context, collection string, p mongo.Pipeline) (*db.AggregateResult, error) {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, collection, p)
	}
	return &db.AggregateResult{}, nil
}

func (m *mockStore) UpdateFirst(ctx context.Context, collection string, filter bson.D, u update.Update) (db.UpdateResult, error) {
	if m.updateFirstFn != nil {
		return m.updateFirstFn(ctx, collection, filter, u)
	}
	return db.UpdateResult{}, nil
}

func (m *mockStore) UpdateMulti(ctx context.Context, collection string, filter bson.D, u update.Update) (db.UpdateResult, error) {
	if m.updateMultiFn != nil {
		return m.updateMultiFn(ctx, collection, filter, u)
	}
	return db.UpdateResult{}, nil
}

func (m *mockStore) RemoveFirst(ctx context.Context, collection string, filter bson.D) (int64, error) {
	if m.removeFirstFn != nil {
		return m.removeFirstFn(ctx, collection, filter)
	}
	return 0, nil
}

func (m *mockStore) Remove(ctx context.Context, collection string, filter bson.D) (int64, error) {
	if m.removeFn != nil {
		return m.removeFn(ctx, collection, filter)
	}
	return 0, nil
}

var fixedNow = time.Date(2024, time.March, 15, 17, 30, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, WithClock(func() time.Time { return fixedNow })), ms
}

// extJSON renders v as relaxed extended JSON for assertions.
func extJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := bson.MarshalExtJSON(v, false, false)
	if err != nil {
		t.Fatalf("marshal ext json: %v", err)
	}
	return string(b)
}

func pipelineJSON(t *testing.T, p mongo.Pipeline) []string {
	t.Helper()
	out := make([]string, len(p))
	for i, stage := range p {
		out[i] = extJSON(t, stage)
	}
	return out
}

func mustRaw(t *testing.T, d bson.D) bson.Raw {
	t.Helper()
	b, err := bson.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
