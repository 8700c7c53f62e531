package chi

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
	batchuc "github.com/kailas-cloud/peopledir/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/peopledir/internal/usecase/health"
)

// PersonService serves person queries and hobby updates.
type PersonService interface {
	FindBornBetween(ctx context.Context, start, end time.Time) ([]domperson.Person, error)
	FindDocumentByDNI(ctx context.Context, dni int64) (bson.M, error)
	CountByCountry(ctx context.Context, country string) (int64, error)
	GroupByCountry(ctx context.Context, field, order string) ([]domperson.Person, error)
	GroupDocumentByCountry(ctx context.Context, field, order string) (bson.D, error)
	LookupCountry(ctx context.Context, dni int64) ([]domperson.Person, error)
	IsOlderThan(ctx context.Context, dni int64, age int) (domperson.Person, error)
	FindByCurrentLocationWithin(ctx context.Context, mp geo.MultiPolygon) ([]domperson.Person, error)
	SetHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error)
	PushHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error)
	PullHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error)
	AddFieldsToAllHobbies(ctx context.Context, patch domperson.HobbyFieldsPatch) (domperson.UpdateResult, error)
	MarkGoodFrequencyHobbies(ctx context.Context, p domperson.Person, minFrequency *int) (domperson.UpdateResult, error)
}

// BatchDeleter removes persons in bulk.
type BatchDeleter interface {
	Delete(ctx context.Context, persons []domperson.Person) (batchuc.Report, error)
	Purge(ctx context.Context, dnis []int64) (int64, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
