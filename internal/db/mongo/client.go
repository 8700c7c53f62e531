// Package mongo implements db.Store over the official MongoDB driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kailas-cloud/peopledir/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for a MongoDB store.
type Config struct {
	URI      string
	Database string
	AppName  string
	// Transactions runs WithTransaction inside a session transaction.
	// Standalone servers do not support transactions and must leave it off.
	Transactions bool
	// OperationTimeout bounds every operation when positive.
	OperationTimeout time.Duration
}

// Store implements db.Store via mongo-driver.
type Store struct {
	client       *mongodrv.Client
	database     *mongodrv.Database
	transactions bool
}

// NewStore connects to MongoDB. The connection is established lazily by the
// driver; call WaitForReady to block until the server answers.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("uri is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("database is required")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	if cfg.OperationTimeout > 0 {
		opts.SetTimeout(cfg.OperationTimeout)
	}

	client, err := mongodrv.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return newStore(client, cfg), nil
}

// NewStoreForTest creates a Store over an existing client (test-only).
func NewStoreForTest(client *mongodrv.Client, cfg Config) *Store {
	return newStore(client, cfg)
}

func newStore(client *mongodrv.Client, cfg Config) *Store {
	return &Store{
		client:       client,
		database:     client.Database(cfg.Database),
		transactions: cfg.Transactions,
	}
}

// Ping checks connectivity against the primary.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) coll(name string) *mongodrv.Collection {
	return s.database.Collection(name)
}

// wrapErr translates driver errors into db sentinels and attaches context.
func wrapErr(op, collection string, err error) error {
	switch {
	case errors.Is(err, mongodrv.ErrNoDocuments):
		err = db.ErrNoDocuments
	case mongodrv.IsDuplicateKeyError(err):
		err = fmt.Errorf("%w: %w", db.ErrDuplicateKey, err)
	}
	return &db.Error{Op: op, Collection: collection, Err: err}
}
