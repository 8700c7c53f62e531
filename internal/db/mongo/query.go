package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/peopledir/internal/db"
	"github.com/kailas-cloud/peopledir/internal/metrics"
)

// Find returns every document matching filter.
func (s *Store) Find(ctx context.Context, collection string, filter bson.D) (_ []bson.Raw, err error) {
	defer observe(db.OpFind, collection, time.Now(), &err)

	cur, err := s.coll(collection).Find(ctx, filter)
	if err != nil {
		return nil, wrapErr(db.OpFind, collection, err)
	}
	docs, err := drain(ctx, cur)
	if err != nil {
		return nil, wrapErr(db.OpFind, collection, err)
	}
	return docs, nil
}

// FindOne returns the first document matching filter.
func (s *Store) FindOne(ctx context.Context, collection string, filter bson.D) (_ bson.Raw, err error) {
	defer observe(db.OpFindOne, collection, time.Now(), &err)

	raw, err := s.coll(collection).FindOne(ctx, filter).Raw()
	if err != nil {
		return nil, wrapErr(db.OpFindOne, collection, err)
	}
	return raw, nil
}

// Count returns the number of documents matching filter.
func (s *Store) Count(ctx context.Context, collection string, filter bson.D) (_ int64, err error) {
	defer observe(db.OpCount, collection, time.Now(), &err)

	n, err := s.coll(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, wrapErr(db.OpCount, collection, err)
	}
	return n, nil
}

// Aggregate runs pipeline and returns both the decoded documents and the
// raw response form {results: [...], ok: 1}.
func (s *Store) Aggregate(ctx context.Context, collection string, pipeline mongodrv.Pipeline) (_ *db.AggregateResult, err error) {
	defer observe(db.OpAggregate, collection, time.Now(), &err)

	cur, err := s.coll(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapErr(db.OpAggregate, collection, err)
	}
	docs, err := drain(ctx, cur)
	if err != nil {
		return nil, wrapErr(db.OpAggregate, collection, err)
	}

	results := make(bson.A, len(docs))
	for i, d := range docs {
		results[i] = d
	}
	return &db.AggregateResult{
		Mapped: docs,
		Raw: bson.D{
			{Key: "results", Value: results},
			{Key: "ok", Value: 1.0},
		},
	}, nil
}

// drain reads the cursor to the end and closes it. Each document is copied
// because the cursor reuses its buffer.
func drain(ctx context.Context, cur *mongodrv.Cursor) ([]bson.Raw, error) {
	defer cur.Close(ctx) //nolint:errcheck // close error is irrelevant once drained

	var docs []bson.Raw
	for cur.Next(ctx) {
		doc := make(bson.Raw, len(cur.Current))
		copy(doc, cur.Current)
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	return docs, nil
}

func observe(op, collection string, start time.Time, err *error) {
	metrics.ObserveStoreOperation(op, collection, start, *err, db.ErrNoDocuments)
}
