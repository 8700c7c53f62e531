// Package peopledir is the person-directory data-access library.
//
// A Client connects to MongoDB, optionally to a Redis aggregate cache, and
// exposes the person queries, hobby updates and batch delete.
package peopledir

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/peopledir/internal/db"
	dbMongo "github.com/kailas-cloud/peopledir/internal/db/mongo"
	dbRedis "github.com/kailas-cloud/peopledir/internal/db/redis"
	"github.com/kailas-cloud/peopledir/internal/metrics"
	"github.com/kailas-cloud/peopledir/internal/repository/aggcache"
	personrepo "github.com/kailas-cloud/peopledir/internal/repository/person"
	batchuc "github.com/kailas-cloud/peopledir/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/peopledir/internal/usecase/health"
	personuc "github.com/kailas-cloud/peopledir/internal/usecase/person"
)

const defaultReadinessTimeout = 10 * time.Second

// cacheStore is the optional aggregate cache backend.
type cacheStore interface {
	db.KVStore
	Ping(ctx context.Context) error
	Close()
}

// Client is the peopledir entry point.
type Client struct {
	store   db.Store
	cache   cacheStore
	persons *personuc.Service
	batch   *batchuc.Service
	health  *healthuc.Service
	logger  *zap.Logger
}

// New creates a Client and waits until the database answers.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	if cfg.mongoURI == "" {
		return nil, errors.New("peopledir: database uri required (use WithMongo)")
	}

	store, err := dbMongo.NewStore(ctx, dbMongo.Config{
		URI:              cfg.mongoURI,
		Database:         cfg.database,
		AppName:          "peopledir",
		Transactions:     cfg.transactions,
		OperationTimeout: cfg.operationTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("peopledir: create mongo store: %w", err)
	}
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("peopledir: database not ready: %w", err)
	}

	var cache cacheStore
	if len(cfg.cacheAddrs) > 0 {
		rs, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.cacheAddrs, Password: cfg.cachePassword})
		if err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("peopledir: create cache store: %w", err)
		}
		cache = rs
	}

	return wireClient(store, cache, cfg), nil
}

func wireClient(store db.Store, cache cacheStore, cfg *clientConfig) *Client {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	repoOpts := []personrepo.Option{
		personrepo.WithCollections(personrepo.Collections{Persons: cfg.persons, Countries: cfg.countries}),
	}
	if cfg.now != nil {
		repoOpts = append(repoOpts, personrepo.WithClock(cfg.now))
	}
	repo := personrepo.New(store, repoOpts...)

	persons := personuc.New(repo)
	batch := batchuc.New(store, repo)
	if cfg.maxBatchSize > 0 {
		batch = batch.WithMaxBatchSize(cfg.maxBatchSize)
	}

	var cachePinger healthuc.Pinger
	if cache != nil {
		agg := aggcache.New(repo, cache, cfg.cacheTTL, metrics.AggregateCacheTotal, logger)
		persons = persons.WithAggregateReader(agg)
		batch = batch.WithInvalidator(agg)
		cachePinger = cache
	}

	return &Client{
		store:   store,
		cache:   cache,
		persons: persons,
		batch:   batch,
		health:  healthuc.New(store, cachePinger),
		logger:  logger,
	}
}

// Close releases all resources.
func (c *Client) Close(ctx context.Context) error {
	if c.cache != nil {
		c.cache.Close()
	}
	if c.store == nil {
		return nil
	}
	if err := c.store.Close(ctx); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health reports database and cache health.
func (c *Client) Health(ctx context.Context) HealthReport {
	return c.health.Check(ctx)
}

// Persons returns the person query and update service.
func (c *Client) Persons() *PersonService {
	return &PersonService{svc: c.persons, logger: c.logger}
}

// DeletePersons removes persons by dni inside one transaction scope and
// returns the persons actually deleted, in input order.
func (c *Client) DeletePersons(ctx context.Context, persons []Person) (DeleteReport, error) {
	ctx = c.withLogger(ctx)
	report, err := c.batch.Delete(ctx, persons)
	if err != nil {
		return DeleteReport{}, fmt.Errorf("delete persons: %w", err)
	}
	return report, nil
}

// PurgePersons removes every person whose dni is listed with a single
// delete-many statement and returns the deleted count.
func (c *Client) PurgePersons(ctx context.Context, dnis []int64) (int64, error) {
	ctx = c.withLogger(ctx)
	n, err := c.batch.Purge(ctx, dnis)
	if err != nil {
		return 0, fmt.Errorf("purge persons: %w", err)
	}
	return n, nil
}

func (c *Client) withLogger(ctx context.Context) context.Context {
	return contextWithLogger(ctx, c.logger)
}
