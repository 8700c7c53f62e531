package person

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/peopledir/internal/db"
	"github.com/kailas-cloud/peopledir/internal/db/filter"
	"github.com/kailas-cloud/peopledir/internal/db/pipeline"
	"github.com/kailas-cloud/peopledir/internal/db/update"
	"github.com/kailas-cloud/peopledir/internal/domain"
	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
)

// store is the consumer interface for the persons collection (ISP).
type store interface {
	Find(ctx context.Context, collection string, filter bson.D) ([]bson.Raw, error)
	FindOne(ctx context.Context, collection string, filter bson.D) (bson.Raw, error)
	Count(ctx context.Context, collection string, filter bson.D) (int64, error)
	Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline) (*db.AggregateResult, error)
	UpdateFirst(ctx context.Context, collection string, filter bson.D, u update.Update) (db.UpdateResult, error)
	UpdateMulti(ctx context.Context, collection string, filter bson.D, u update.Update) (db.UpdateResult, error)
	RemoveFirst(ctx context.Context, collection string, filter bson.D) (int64, error)
	Remove(ctx context.Context, collection string, filter bson.D) (int64, error)
}

// Collections names the collections the repository reads and writes.
type Collections struct {
	Persons   string
	Countries string
}

// DefaultCollections returns the standard collection names.
func DefaultCollections() Collections {
	return Collections{Persons: "persons", Countries: "countries"}
}

// Option configures a Repo.
type Option func(*Repo)

// WithCollections overrides the collection names. Empty names keep the default.
func WithCollections(c Collections) Option {
	return func(r *Repo) {
		if c.Persons != "" {
			r.colls.Persons = c.Persons
		}
		if c.Countries != "" {
			r.colls.Countries = c.Countries
		}
	}
}

// WithClock sets the time source used for age cutoffs.
func WithClock(now func() time.Time) Option {
	return func(r *Repo) {
		if now != nil {
			r.now = now
		}
	}
}

// Repo implements usecase/person.Repository over a document store.
type Repo struct {
	store store
	colls Collections
	now   func() time.Time
}

// New creates a person repository.
func New(s store, opts ...Option) *Repo {
	r := &Repo{store: s, colls: DefaultCollections(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FindBornBetween returns persons born in [start, end]. An inverted range
// yields no persons.
func (r *Repo) FindBornBetween(ctx context.Context, start, end time.Time) ([]domperson.Person, error) {
	p := bornBetween(start, end)
	if p.IsNever() {
		return nil, nil
	}
	raws, err := r.store.Find(ctx, r.colls.Persons, p.Document())
	if err != nil {
		return nil, fmt.Errorf("find born between: %w", err)
	}
	return decodePersons(raws)
}

// FindDocumentByDNI returns the stored document of the person with dni.
func (r *Repo) FindDocumentByDNI(ctx context.Context, dni int64) (bson.M, error) {
	raw, err := r.store.FindOne(ctx, r.colls.Persons, dniEquals(dni).Document())
	if err != nil {
		if errors.Is(err, db.ErrNoDocuments) {
			return nil, domain.ErrPersonNotFound
		}
		return nil, fmt.Errorf("find document %d: %w", dni, err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %d: %w", dni, err)
	}
	return doc, nil
}

// CountByCountry returns the number of persons whose country has the given name.
func (r *Repo) CountByCountry(ctx context.Context, country string) (int64, error) {
	n, err := r.store.Count(ctx, r.colls.Persons, filter.Eq(fieldCountryName, country).Document())
	if err != nil {
		return 0, fmt.Errorf("count by country %q: %w", country, err)
	}
	return n, nil
}

// GroupByCountry counts persons per country. Each result carries Country
// and Total only.
func (r *Repo) GroupByCountry(ctx context.Context, field, order string) ([]domperson.Person, error) {
	res, err := r.groupByCountry(ctx, field, order)
	if err != nil {
		return nil, err
	}
	return decodePersons(res.Mapped)
}

// GroupDocumentByCountry runs the same grouping as GroupByCountry and
// returns the raw aggregate response {results: [...], ok: 1}.
func (r *Repo) GroupDocumentByCountry(ctx context.Context, field, order string) (bson.D, error) {
	res, err := r.groupByCountry(ctx, field, order)
	if err != nil {
		return nil, err
	}
	return res.Raw, nil
}

func (r *Repo) groupByCountry(ctx context.Context, field, order string) (*db.AggregateResult, error) {
	key, desc := domperson.GroupSort(field, order)
	dir := pipeline.Asc
	if desc {
		dir = pipeline.Desc
	}
	p, err := pipeline.New().
		Group(fieldCountry, pipeline.Count(domperson.GroupFieldTotal)).
		Project(
			pipeline.Rename(domperson.GroupFieldCountry, fieldID),
			pipeline.Include(domperson.GroupFieldTotal),
			pipeline.Exclude(fieldID),
		).
		Sort(key, dir).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build group pipeline: %w", err)
	}
	res, err := r.store.Aggregate(ctx, r.colls.Persons, p)
	if err != nil {
		return nil, fmt.Errorf("group by country: %w", err)
	}
	return res, nil
}

// LookupCountry returns the person with dni joined with its country
// document. A person whose country cannot be resolved is excluded, so the
// result is empty rather than carrying a nil country.
func (r *Repo) LookupCountry(ctx context.Context, dni int64) ([]domperson.Person, error) {
	p, err := pipeline.New().
		Match(dniEquals(dni)).
		Lookup(r.colls.Countries, fieldCountryID, fieldID, fieldCountry).
		Unwind(fieldCountry).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build lookup pipeline: %w", err)
	}
	res, err := r.store.Aggregate(ctx, r.colls.Persons, p)
	if err != nil {
		return nil, fmt.Errorf("lookup country %d: %w", dni, err)
	}
	return decodePersons(res.Mapped)
}

// IsOlderThan returns a summary of the person with dni when born at least
// age years ago. The returned Age is the requested age, not one computed
// from the date of birth.
func (r *Repo) IsOlderThan(ctx context.Context, dni int64, age int) (domperson.Person, error) {
	p, err := pipeline.New().
		Match(olderThan(dni, age, r.now())).
		Project(
			pipeline.Include(fieldDNI),
			pipeline.Include(fieldFirstName),
			pipeline.Include(fieldLastName),
			pipeline.Include(fieldDateOfBirth),
			pipeline.Literal(fieldAge, age),
			pipeline.Exclude(fieldID),
		).
		Build()
	if err != nil {
		return domperson.Person{}, fmt.Errorf("build older-than pipeline: %w", err)
	}
	res, err := r.store.Aggregate(ctx, r.colls.Persons, p)
	if err != nil {
		return domperson.Person{}, fmt.Errorf("is older than %d: %w", dni, err)
	}
	if len(res.Mapped) == 0 {
		return domperson.Person{}, domain.ErrPersonNotFound
	}
	return decodePerson(res.Mapped[0])
}

// FindByCurrentLocationWithin returns persons located inside any polygon.
// An empty multipolygon matches nothing and does not reach the store.
func (r *Repo) FindByCurrentLocationWithin(ctx context.Context, mp geo.MultiPolygon) ([]domperson.Person, error) {
	pred := withinAnyPolygon(mp)
	if pred.IsNever() {
		return nil, nil
	}
	p, err := pipeline.New().Match(pred).Build()
	if err != nil {
		return nil, fmt.Errorf("build within pipeline: %w", err)
	}
	res, err := r.store.Aggregate(ctx, r.colls.Persons, p)
	if err != nil {
		return nil, fmt.Errorf("find within polygons: %w", err)
	}
	return decodePersons(res.Mapped)
}

// DeleteByDNI deletes the person with dni and returns the deleted count.
func (r *Repo) DeleteByDNI(ctx context.Context, dni int64) (int64, error) {
	n, err := r.store.RemoveFirst(ctx, r.colls.Persons, dniEquals(dni).Document())
	if err != nil {
		return 0, fmt.Errorf("delete %d: %w", dni, err)
	}
	return n, nil
}

// DeleteByDNIs deletes every person whose dni is in dnis with a single
// statement and returns the deleted count. An empty list deletes nothing
// without contacting the store.
func (r *Repo) DeleteByDNIs(ctx context.Context, dnis []int64) (int64, error) {
	pred := dniIn(dnis)
	if pred.IsNever() {
		return 0, nil
	}
	n, err := r.store.Remove(ctx, r.colls.Persons, pred.Document())
	if err != nil {
		return 0, fmt.Errorf("delete %d dnis: %w", len(dnis), err)
	}
	return n, nil
}
