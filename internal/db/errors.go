package db

import "errors"

// Sentinel errors for store operations.
var (
	ErrNoDocuments  = errors.New("db: no documents")
	ErrDuplicateKey = errors.New("db: duplicate key")
	ErrKeyNotFound  = errors.New("db: key not found")
)

// Op constants name store operations for error context and metrics.
const (
	OpPing        = "ping"
	OpFind        = "find"
	OpFindOne     = "findOne"
	OpCount       = "countDocuments"
	OpAggregate   = "aggregate"
	OpUpdateOne   = "updateOne"
	OpUpdateMany  = "updateMany"
	OpDeleteOne   = "deleteOne"
	OpDeleteMany  = "deleteMany"
	OpTransaction = "transaction"
	OpGet         = "GET"
	OpSet         = "SET"
	OpIncrBy      = "INCRBY"
)

// Error wraps an underlying error with the operation and collection for diagnostics.
type Error struct {
	Op         string
	Collection string
	Err        error
}

func (e *Error) Error() string {
	if e.Collection != "" {
		return e.Op + " " + e.Collection + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
