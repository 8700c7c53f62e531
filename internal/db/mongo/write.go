package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/kailas-cloud/peopledir/internal/db"
	"github.com/kailas-cloud/peopledir/internal/db/update"
)

// UpdateFirst applies u to the first document matching filter.
func (s *Store) UpdateFirst(ctx context.Context, collection string, filter bson.D, u update.Update) (_ db.UpdateResult, err error) {
	defer observe(db.OpUpdateOne, collection, time.Now(), &err)

	res, err := s.coll(collection).UpdateOne(ctx, filter, u.Document(), updateOptions(u))
	if err != nil {
		return db.UpdateResult{}, wrapErr(db.OpUpdateOne, collection, err)
	}
	return db.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

// UpdateMulti applies u to every document matching filter.
func (s *Store) UpdateMulti(ctx context.Context, collection string, filter bson.D, u update.Update) (_ db.UpdateResult, err error) {
	defer observe(db.OpUpdateMany, collection, time.Now(), &err)

	res, err := s.coll(collection).UpdateMany(ctx, filter, u.Document(), updateOptions(u))
	if err != nil {
		return db.UpdateResult{}, wrapErr(db.OpUpdateMany, collection, err)
	}
	return db.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func updateOptions(u update.Update) *options.UpdateOptions {
	opts := options.Update()
	if af := u.ArrayFilters(); len(af) > 0 {
		opts.SetArrayFilters(options.ArrayFilters{Filters: af})
	}
	return opts
}

// RemoveFirst deletes the first document matching filter.
func (s *Store) RemoveFirst(ctx context.Context, collection string, filter bson.D) (_ int64, err error) {
	defer observe(db.OpDeleteOne, collection, time.Now(), &err)

	res, err := s.coll(collection).DeleteOne(ctx, filter)
	if err != nil {
		return 0, wrapErr(db.OpDeleteOne, collection, err)
	}
	return res.DeletedCount, nil
}

// Remove deletes every document matching filter.
func (s *Store) Remove(ctx context.Context, collection string, filter bson.D) (_ int64, err error) {
	defer observe(db.OpDeleteMany, collection, time.Now(), &err)

	res, err := s.coll(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, wrapErr(db.OpDeleteMany, collection, err)
	}
	return res.DeletedCount, nil
}

// WithTransaction runs fn inside a snapshot transaction with majority write
// concern. The driver retries fn on transient errors, so fn must be safe to
// re-run. The session is ended on every exit path. When transactions are
// disabled fn runs directly.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return &db.Error{Op: db.OpTransaction, Err: err}
	}
	defer sess.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongodrv.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOpts)
	if err != nil {
		return &db.Error{Op: db.OpTransaction, Err: err}
	}
	return nil
}
