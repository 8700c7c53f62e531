package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/peopledir/internal/db/update"
)

// Store is the document store facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	Finder
	Aggregator
	Updater
	Remover
	Transactor
	Close(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Finder runs filter queries against a named collection.
type Finder interface {
	Find(ctx context.Context, collection string, filter bson.D) ([]bson.Raw, error)
	// FindOne returns ErrNoDocuments when nothing matches.
	FindOne(ctx context.Context, collection string, filter bson.D) (bson.Raw, error)
	Count(ctx context.Context, collection string, filter bson.D) (int64, error)
}

// AggregateResult holds both result forms of an aggregation: the decoded
// documents and the raw response document ({results: [...], ok: 1}).
type AggregateResult struct {
	Mapped []bson.Raw
	Raw    bson.D
}

// Aggregator runs aggregation pipelines.
type Aggregator interface {
	Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline) (*AggregateResult, error)
}

// UpdateResult reports matched and modified counts of an update.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Updater applies partial updates.
type Updater interface {
	// UpdateFirst updates at most one matching document.
	UpdateFirst(ctx context.Context, collection string, filter bson.D, u update.Update) (UpdateResult, error)
	// UpdateMulti updates every matching document.
	UpdateMulti(ctx context.Context, collection string, filter bson.D, u update.Update) (UpdateResult, error)
}

// Remover deletes documents and returns the deleted count.
type Remover interface {
	// RemoveFirst deletes at most one matching document.
	RemoveFirst(ctx context.Context, collection string, filter bson.D) (int64, error)
	// Remove deletes every matching document.
	Remove(ctx context.Context, collection string, filter bson.D) (int64, error)
}

// Transactor runs fn inside a transaction scope. The scope is released on
// every exit path; fn may be invoked again on transient commit errors.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// KVStore provides simple key-value operations for caches.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
}
