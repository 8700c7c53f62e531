package batch

import "context"

// Transactor runs fn inside one transaction scope.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PersonDeleter deletes persons by natural key.
type PersonDeleter interface {
	DeleteByDNI(ctx context.Context, dni int64) (deleted int64, err error)
	DeleteByDNIs(ctx context.Context, dnis []int64) (deleted int64, err error)
}

// Invalidator drops cached aggregates after persons are removed.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}
