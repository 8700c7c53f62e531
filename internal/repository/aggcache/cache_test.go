package aggcache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func groupDoc() bson.D {
	return bson.D{
		{Key: "results", Value: bson.A{
			bson.D{{Key: "country", Value: "Peru"}, {Key: "total", Value: int32(2)}},
		}},
		{Key: "ok", Value: 1.0},
	}
}

func TestGroupDocumentByCountry_MissThenHit(t *testing.T) {
	src := &mockSource{groupDoc: groupDoc()}
	c, _ := newTestCache(t, src)
	ctx := context.Background()

	first, err := c.GroupDocumentByCountry(ctx, "total", "desc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.GroupDocumentByCountry(ctx, "TOTAL", "Descending")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.groupCalls != 1 {
		t.Errorf("source calls = %d, want 1 (normalized sort shares the entry)", src.groupCalls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached = %v, want %v", second, first)
	}
}

func TestGroupDocumentByCountry_DistinctSorts(t *testing.T) {
	src := &mockSource{groupDoc: groupDoc()}
	c, _ := newTestCache(t, src)
	ctx := context.Background()

	for _, order := range []string{"asc", "desc"} {
		if _, err := c.GroupDocumentByCountry(ctx, "country", order); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if src.groupCalls != 2 {
		t.Errorf("source calls = %d, want 2", src.groupCalls)
	}
}

func TestCountByCountry_Invalidate(t *testing.T) {
	src := &mockSource{count: 4}
	c, ms := newTestCache(t, src)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		n, err := c.CountByCountry(ctx, "Peru")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 4 {
			t.Errorf("count = %d, want 4", n)
		}
	}
	if src.countCalls != 1 {
		t.Fatalf("source calls = %d, want 1", src.countCalls)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ms.data[generationKey]) != "1" {
		t.Errorf("generation = %s, want 1", ms.data[generationKey])
	}

	src.count = 3
	n, err := c.CountByCountry(ctx, "Peru")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || src.countCalls != 2 {
		t.Errorf("count = %d calls = %d, want 3 and 2 after invalidation", n, src.countCalls)
	}
}

func TestCache_GenerationReadFailureBypasses(t *testing.T) {
	src := &mockSource{count: 7}
	c, ms := newTestCache(t, src)
	ms.getFn = func(context.Context, string) ([]byte, error) { return nil, errors.New("connection refused") }
	var sets int
	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		sets++
		return nil
	}

	n, err := c.CountByCountry(context.Background(), "Chile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("count = %d, want 7", n)
	}
	if sets != 0 {
		t.Errorf("sets = %d, want 0 when the cache is unavailable", sets)
	}
}

func TestCache_WriteFailureIsNotFatal(t *testing.T) {
	src := &mockSource{groupDoc: groupDoc()}
	c, ms := newTestCache(t, src)
	ms.setFn = func(context.Context, string, []byte, time.Duration) error { return errors.New("readonly") }

	if _, err := c.GroupDocumentByCountry(context.Background(), "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCache_SourceError(t *testing.T) {
	src := &mockSource{err: errors.New("store down")}
	c, ms := newTestCache(t, src)

	if _, err := c.CountByCountry(context.Background(), "Peru"); err == nil {
		t.Fatal("expected error")
	}
	for k := range ms.data {
		if strings.Contains(k, "count:") {
			t.Errorf("unexpected cached entry %s after source error", k)
		}
	}
}

func TestCache_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_agg_cache_total"}, []string{"result"})
	ms := &memStore{data: make(map[string][]byte)}
	c := New(&mockSource{count: 1}, ms, 0, counter, zap.NewNop())
	ctx := context.Background()

	_, _ = c.CountByCountry(ctx, "Peru")
	_, _ = c.CountByCountry(ctx, "Peru")

	if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
		t.Errorf("miss = %f, want 1", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
		t.Errorf("hit = %f, want 1", v)
	}
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want default", c.ttl)
	}
}
