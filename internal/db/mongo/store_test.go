package mongo

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/kailas-cloud/peopledir/internal/db"
	"github.com/kailas-cloud/peopledir/internal/db/filter"
	"github.com/kailas-cloud/peopledir/internal/db/pipeline"
	"github.com/kailas-cloud/peopledir/internal/db/update"
)

const ns = "peopledir.persons"

func newMockT(t *testing.T) *mtest.T {
	t.Helper()
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func newTestStore(mt *mtest.T) *Store {
	return NewStoreForTest(mt.Client, Config{Database: "peopledir"})
}

func TestNewStore_Validation(t *testing.T) {
	if _, err := NewStore(context.Background(), Config{Database: "x"}); err == nil {
		t.Error("expected error for empty uri")
	}
	if _, err := NewStore(context.Background(), Config{URI: "mongodb://localhost"}); err == nil {
		t.Error("expected error for empty database")
	}
}

func TestPing(t *testing.T) {
	mt := newMockT(t)

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		if err := newTestStore(mt).Ping(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	mt.Run("error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 13, Name: "Unauthorized", Message: "not authorized",
		}))
		err := newTestStore(mt).Ping(context.Background())
		var dbErr *db.Error
		if !errors.As(err, &dbErr) || dbErr.Op != db.OpPing {
			t.Fatalf("error = %v, want db.Error with op ping", err)
		}
	})
}

func TestFind(t *testing.T) {
	mt := newMockT(t)

	mt.Run("returns all documents", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "dni", Value: int64(1)}},
			bson.D{{Key: "dni", Value: int64(2)}},
		))

		docs, err := newTestStore(mt).Find(context.Background(), "persons", filter.Eq("gender", "F").Document())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("docs = %d, want 2", len(docs))
		}
		if got := docs[1].Lookup("dni").Int64(); got != 2 {
			t.Errorf("docs[1].dni = %d, want 2", got)
		}
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 2, Name: "BadValue", Message: "bad query",
		}))
		_, err := newTestStore(mt).Find(context.Background(), "persons", bson.D{})
		var dbErr *db.Error
		if !errors.As(err, &dbErr) {
			t.Fatalf("error = %T, want *db.Error", err)
		}
		if dbErr.Op != db.OpFind || dbErr.Collection != "persons" {
			t.Errorf("error context = %s/%s, want find/persons", dbErr.Op, dbErr.Collection)
		}
	})
}

func TestFindOne(t *testing.T) {
	mt := newMockT(t)

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "dni", Value: int64(7)}, {Key: "firstName", Value: "Ana"}},
		))
		raw, err := newTestStore(mt).FindOne(context.Background(), "persons", filter.Eq("dni", int64(7)).Document())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := raw.Lookup("firstName").StringValue(); got != "Ana" {
			t.Errorf("firstName = %q, want Ana", got)
		}
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		_, err := newTestStore(mt).FindOne(context.Background(), "persons", bson.D{})
		if !errors.Is(err, db.ErrNoDocuments) {
			t.Fatalf("error = %v, want ErrNoDocuments", err)
		}
	})
}

func TestCount(t *testing.T) {
	mt := newMockT(t)

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(3)}},
		))
		n, err := newTestStore(mt).Count(context.Background(), "persons", filter.Eq("country.name", "Peru").Document())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 3 {
			t.Errorf("count = %d, want 3", n)
		}
	})
}

func TestAggregate(t *testing.T) {
	mt := newMockT(t)

	mt.Run("mapped and raw", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "country", Value: "Peru"}, {Key: "total", Value: int32(2)}},
			bson.D{{Key: "country", Value: "Chile"}, {Key: "total", Value: int32(1)}},
		))

		p := buildPipeline(t, pipeline.New().Group("country", pipeline.Count("total")))
		res, err := newTestStore(mt).Aggregate(context.Background(), "persons", p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Mapped) != 2 {
			t.Fatalf("mapped = %d, want 2", len(res.Mapped))
		}
		if len(res.Raw) != 2 || res.Raw[0].Key != "results" || res.Raw[1].Key != "ok" {
			t.Fatalf("raw = %v, want {results, ok}", res.Raw)
		}
		if results, ok := res.Raw[0].Value.(bson.A); !ok || len(results) != 2 {
			t.Errorf("raw results = %v, want 2 entries", res.Raw[0].Value)
		}
		if res.Raw[1].Value != 1.0 {
			t.Errorf("raw ok = %v, want 1.0", res.Raw[1].Value)
		}
	})

	mt.Run("empty", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		p := buildPipeline(t, pipeline.New().Match(filter.Eq("dni", int64(1))))
		res, err := newTestStore(mt).Aggregate(context.Background(), "persons", p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Mapped) != 0 {
			t.Errorf("mapped = %d, want 0", len(res.Mapped))
		}
	})
}

func TestUpdate(t *testing.T) {
	mt := newMockT(t)

	mt.Run("first", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(1)},
			bson.E{Key: "nModified", Value: int32(1)},
		))
		u := buildUpdate(t, update.New().
			Set(update.FilteredPositional("hobbies", "hb", "goodFrequency"), true).
			FilterArray("hb", filter.Gte("hb.frequency", 2)))

		res, err := newTestStore(mt).UpdateFirst(context.Background(), "persons", filter.Eq("dni", int64(1)).Document(), u)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Matched != 1 || res.Modified != 1 {
			t.Errorf("result = %+v, want matched=1 modified=1", res)
		}
	})

	mt.Run("multi", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(4)},
			bson.E{Key: "nModified", Value: int32(3)},
		))
		u := buildUpdate(t, update.New().Set(update.AllPositional("hobbies", "level"), 1))

		res, err := newTestStore(mt).UpdateMulti(context.Background(), "persons", bson.D{}, u)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Matched != 4 || res.Modified != 3 {
			t.Errorf("result = %+v, want matched=4 modified=3", res)
		}
	})

	mt.Run("duplicate key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))
		u := buildUpdate(t, update.New().Set("dni", int64(9)))

		_, err := newTestStore(mt).UpdateFirst(context.Background(), "persons", bson.D{}, u)
		if !errors.Is(err, db.ErrDuplicateKey) {
			t.Fatalf("error = %v, want ErrDuplicateKey", err)
		}
	})
}

func TestRemove(t *testing.T) {
	mt := newMockT(t)

	mt.Run("first", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}))
		n, err := newTestStore(mt).RemoveFirst(context.Background(), "persons", filter.Eq("dni", int64(5)).Document())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Errorf("deleted = %d, want 1", n)
		}
	})

	mt.Run("many", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))
		n, err := newTestStore(mt).Remove(context.Background(), "persons", filter.Never().Document())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Errorf("deleted = %d, want 0", n)
		}
	})
}

func TestWithTransaction_Disabled(t *testing.T) {
	mt := newMockT(t)

	mt.Run("runs fn directly", func(mt *mtest.T) {
		s := newTestStore(mt)
		calls := 0
		err := s.WithTransaction(context.Background(), func(ctx context.Context) error {
			calls++
			if mongodrv.SessionFromContext(ctx) != nil {
				t.Error("expected no session in context")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	mt.Run("propagates fn error", func(mt *mtest.T) {
		sentinel := errors.New("abort")
		err := newTestStore(mt).WithTransaction(context.Background(), func(context.Context) error {
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("error = %v, want sentinel", err)
		}
	})
}

func newTxStore(mt *mtest.T) *Store {
	return NewStoreForTest(mt.Client, Config{Database: "peopledir", Transactions: true})
}

func startedCommands(mt *mtest.T) []string {
	var names []string
	for _, e := range mt.GetAllStartedEvents() {
		names = append(names, e.CommandName)
	}
	return names
}

func TestWithTransaction_Enabled(t *testing.T) {
	mt := newMockT(t)

	mt.Run("commits after fn", func(mt *mtest.T) {
		s := newTxStore(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}),
			mtest.CreateSuccessResponse(),
		)
		mt.ClearEvents()

		var deleted int64
		err := s.WithTransaction(context.Background(), func(ctx context.Context) error {
			if mongodrv.SessionFromContext(ctx) == nil {
				t.Error("expected a session in context")
			}
			n, err := s.RemoveFirst(ctx, "persons", filter.Eq("dni", int64(5)).Document())
			deleted = n
			return err
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deleted != 1 {
			t.Errorf("deleted = %d, want 1", deleted)
		}

		cmds := startedCommands(mt)
		if len(cmds) != 2 || cmds[0] != "delete" || cmds[1] != "commitTransaction" {
			t.Fatalf("commands = %v, want [delete commitTransaction]", cmds)
		}
		del := mt.GetAllStartedEvents()[0].Command
		if _, err := del.LookupErr("lsid"); err != nil {
			t.Error("delete was sent without a session id")
		}
		if _, err := del.LookupErr("txnNumber"); err != nil {
			t.Error("delete was sent outside a transaction")
		}
	})

	mt.Run("fn error skips commit", func(mt *mtest.T) {
		s := newTxStore(mt)
		mt.ClearEvents()

		sentinel := errors.New("abort")
		err := s.WithTransaction(context.Background(), func(ctx context.Context) error {
			if mongodrv.SessionFromContext(ctx) == nil {
				t.Error("expected a session in context")
			}
			return sentinel
		})
		var dbErr *db.Error
		if !errors.As(err, &dbErr) || dbErr.Op != db.OpTransaction {
			t.Fatalf("error = %v, want db.Error with op transaction", err)
		}
		if !errors.Is(err, sentinel) {
			t.Errorf("error = %v, want wrapped sentinel", err)
		}
		for _, name := range startedCommands(mt) {
			if name == "commitTransaction" {
				t.Fatalf("commands = %v, commit must not be sent", startedCommands(mt))
			}
		}
	})
}

func TestWrapErr(t *testing.T) {
	err := wrapErr(db.OpFindOne, "persons", mongodrv.ErrNoDocuments)
	if !errors.Is(err, db.ErrNoDocuments) {
		t.Errorf("error = %v, want ErrNoDocuments", err)
	}
	if err.Error() != "findOne persons: db: no documents" {
		t.Errorf("message = %q", err.Error())
	}
}

func buildPipeline(t *testing.T, b *pipeline.Builder) mongodrv.Pipeline {
	t.Helper()
	p, err := b.Build()
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	return p
}

func buildUpdate(t *testing.T, b *update.Builder) update.Update {
	t.Helper()
	u, err := b.Build()
	if err != nil {
		t.Fatalf("build update: %v", err)
	}
	return u
}
