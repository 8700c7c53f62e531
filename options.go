package peopledir

import (
	"time"

	"go.uber.org/zap"

	personrepo "github.com/kailas-cloud/peopledir/internal/repository/person"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	mongoURI         string
	database         string
	persons          string
	countries        string
	transactions     bool
	operationTimeout time.Duration
	readinessTimeout time.Duration
	cacheAddrs       []string
	cachePassword    string
	cacheTTL         time.Duration
	maxBatchSize     int
	logger           *zap.Logger
	now              func() time.Time
}

func defaultConfig() *clientConfig {
	colls := personrepo.DefaultCollections()
	return &clientConfig{
		database:         "peopledir",
		persons:          colls.Persons,
		countries:        colls.Countries,
		readinessTimeout: defaultReadinessTimeout,
	}
}

// WithMongo sets the MongoDB connection string and database name.
func WithMongo(uri, database string) Option {
	return func(c *clientConfig) {
		c.mongoURI = uri
		if database != "" {
			c.database = database
		}
	}
}

// WithCollections overrides the persons and countries collection names.
func WithCollections(persons, countries string) Option {
	return func(c *clientConfig) {
		if persons != "" {
			c.persons = persons
		}
		if countries != "" {
			c.countries = countries
		}
	}
}

// WithTransactions runs batch deletes inside a session transaction.
// Requires a replica set or sharded cluster.
func WithTransactions(enabled bool) Option {
	return func(c *clientConfig) {
		c.transactions = enabled
	}
}

// WithOperationTimeout bounds every database operation.
func WithOperationTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.operationTimeout = d
	}
}

// WithReadinessTimeout bounds how long New waits for the database.
func WithReadinessTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.readinessTimeout = d
		}
	}
}

// WithRedisCache enables the aggregate cache on the given Redis servers.
// A non-positive ttl uses the cache default.
func WithRedisCache(addrs []string, password string, ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.cacheAddrs = append([]string(nil), addrs...)
		c.cachePassword = password
		c.cacheTTL = ttl
	}
}

// WithMaxBatchSize limits the number of persons per batch delete.
func WithMaxBatchSize(n int) Option {
	return func(c *clientConfig) {
		c.maxBatchSize = n
	}
}

// WithLogger sets the logger used by the client services.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithClock sets the time source used for age cutoffs.
func WithClock(now func() time.Time) Option {
	return func(c *clientConfig) {
		c.now = now
	}
}
