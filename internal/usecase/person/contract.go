package person

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
)

// Repository defines the storage contract for persons.
type Repository interface {
	AggregateReader
	FindBornBetween(ctx context.Context, start, end time.Time) ([]domperson.Person, error)
	FindDocumentByDNI(ctx context.Context, dni int64) (bson.M, error)
	GroupByCountry(ctx context.Context, field, order string) ([]domperson.Person, error)
	LookupCountry(ctx context.Context, dni int64) ([]domperson.Person, error)
	IsOlderThan(ctx context.Context, dni int64, age int) (domperson.Person, error)
	FindByCurrentLocationWithin(ctx context.Context, mp geo.MultiPolygon) ([]domperson.Person, error)
	SetHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error)
	PushHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error)
	PullHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error)
	AddFieldsToAllHobbies(ctx context.Context, patch domperson.HobbyFieldsPatch) (domperson.UpdateResult, error)
	MarkGoodFrequencyHobbies(ctx context.Context, p domperson.Person, minFrequency *int) (domperson.UpdateResult, error)
}

// AggregateReader serves the aggregates that may be answered from a cache.
type AggregateReader interface {
	GroupDocumentByCountry(ctx context.Context, field, order string) (bson.D, error)
	CountByCountry(ctx context.Context, country string) (int64, error)
}
