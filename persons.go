package peopledir

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peopledir/internal/logger"
	personuc "github.com/kailas-cloud/peopledir/internal/usecase/person"
)

// PersonService runs person queries and hobby updates.
type PersonService struct {
	svc    *personuc.Service
	logger *zap.Logger
}

func contextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return logger.ContextWithLogger(ctx, l)
}

// FindBornBetween returns persons born in [start, end]. An inverted range
// returns no persons.
func (s *PersonService) FindBornBetween(ctx context.Context, start, end time.Time) ([]Person, error) {
	return s.svc.FindBornBetween(contextWithLogger(ctx, s.logger), start, end)
}

// FindDocumentByDNI returns the raw stored document of a person.
func (s *PersonService) FindDocumentByDNI(ctx context.Context, dni int64) (bson.M, error) {
	return s.svc.FindDocumentByDNI(contextWithLogger(ctx, s.logger), dni)
}

// CountByCountry counts persons whose country has the given name.
func (s *PersonService) CountByCountry(ctx context.Context, country string) (int64, error) {
	return s.svc.CountByCountry(contextWithLogger(ctx, s.logger), country)
}

// GroupByCountry counts persons per country, sorted by "total" or by the
// embedded country document, descending when order contains "desc".
func (s *PersonService) GroupByCountry(ctx context.Context, field, order string) ([]Person, error) {
	return s.svc.GroupByCountry(contextWithLogger(ctx, s.logger), field, order)
}

// GroupDocumentByCountry is GroupByCountry returning the raw aggregate
// response {results: [...], ok: 1}.
func (s *PersonService) GroupDocumentByCountry(ctx context.Context, field, order string) (bson.D, error) {
	return s.svc.GroupDocumentByCountry(contextWithLogger(ctx, s.logger), field, order)
}

// LookupCountry returns the person with its country resolved from the
// countries collection. Persons without a resolvable country are omitted.
func (s *PersonService) LookupCountry(ctx context.Context, dni int64) ([]Person, error) {
	return s.svc.LookupCountry(contextWithLogger(ctx, s.logger), dni)
}

// IsOlderThan returns the person if it is at least age years old.
// Age on the result echoes the argument.
func (s *PersonService) IsOlderThan(ctx context.Context, dni int64, age int) (Person, error) {
	return s.svc.IsOlderThan(contextWithLogger(ctx, s.logger), dni, age)
}

// FindByCurrentLocationWithin returns persons located inside any polygon.
func (s *PersonService) FindByCurrentLocationWithin(ctx context.Context, mp MultiPolygon) ([]Person, error) {
	return s.svc.FindByCurrentLocationWithin(contextWithLogger(ctx, s.logger), mp)
}

// SetHobbies replaces the hobbies of the person.
func (s *PersonService) SetHobbies(ctx context.Context, p Person) (UpdateResult, error) {
	return s.svc.SetHobbies(contextWithLogger(ctx, s.logger), p)
}

// PushHobbies appends the hobbies of p to the stored ones.
func (s *PersonService) PushHobbies(ctx context.Context, p Person) (UpdateResult, error) {
	return s.svc.PushHobbies(contextWithLogger(ctx, s.logger), p)
}

// PullHobbies removes every stored hobby equal to one of p's hobbies.
func (s *PersonService) PullHobbies(ctx context.Context, p Person) (UpdateResult, error) {
	return s.svc.PullHobbies(contextWithLogger(ctx, s.logger), p)
}

// AddFieldsToAllHobbies sets the patch fields on every hobby of the
// matching persons.
func (s *PersonService) AddFieldsToAllHobbies(ctx context.Context, patch HobbyFieldsPatch) (UpdateResult, error) {
	return s.svc.AddFieldsToAllHobbies(contextWithLogger(ctx, s.logger), patch)
}

// MarkGoodFrequencyHobbies flags hobbies whose frequency reaches
// minFrequency (DefaultMinFrequency when nil).
func (s *PersonService) MarkGoodFrequencyHobbies(ctx context.Context, p Person, minFrequency *int) (UpdateResult, error) {
	return s.svc.MarkGoodFrequencyHobbies(contextWithLogger(ctx, s.logger), p, minFrequency)
}
