package person

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peopledir/internal/domain"
	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
	"github.com/kailas-cloud/peopledir/internal/logger"
)

// MaxAge is the largest age accepted by IsOlderThan.
const MaxAge = 200

// Service validates caller input and delegates person queries and hobby
// updates to the repository.
type Service struct {
	repo       Repository
	aggregates AggregateReader
}

// New creates a person service.
func New(repo Repository) *Service {
	return &Service{repo: repo, aggregates: repo}
}

// WithAggregateReader serves grouped and counted aggregates from r, usually
// a cache in front of the repository.
func (s *Service) WithAggregateReader(r AggregateReader) *Service {
	if r != nil {
		s.aggregates = r
	}
	return s
}

// FindBornBetween returns persons born in [start, end].
func (s *Service) FindBornBetween(ctx context.Context, start, end time.Time) ([]domperson.Person, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("start and end dates are required: %w", domain.ErrInvalidArgument)
	}
	persons, err := s.repo.FindBornBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("find born between: %w", err)
	}
	return persons, nil
}

// FindDocumentByDNI returns the stored document of the person with dni.
func (s *Service) FindDocumentByDNI(ctx context.Context, dni int64) (bson.M, error) {
	if err := validateDNI(dni); err != nil {
		return nil, err
	}
	doc, err := s.repo.FindDocumentByDNI(ctx, dni)
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

// CountByCountry returns the number of persons in the named country.
func (s *Service) CountByCountry(ctx context.Context, country string) (int64, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return 0, fmt.Errorf("country is required: %w", domain.ErrInvalidArgument)
	}
	n, err := s.aggregates.CountByCountry(ctx, country)
	if err != nil {
		return 0, fmt.Errorf("count by country: %w", err)
	}
	return n, nil
}

// GroupByCountry returns per-country totals as persons carrying Country and Total.
func (s *Service) GroupByCountry(ctx context.Context, field, order string) ([]domperson.Person, error) {
	groups, err := s.repo.GroupByCountry(ctx, field, order)
	if err != nil {
		return nil, fmt.Errorf("group by country: %w", err)
	}
	return groups, nil
}

// GroupDocumentByCountry returns per-country totals as the raw aggregate document.
func (s *Service) GroupDocumentByCountry(ctx context.Context, field, order string) (bson.D, error) {
	key, desc := domperson.GroupSort(field, order)
	logger.FromContext(ctx).Debug("Grouping persons by country",
		zap.String("sort", key), zap.Bool("desc", desc))

	doc, err := s.aggregates.GroupDocumentByCountry(ctx, field, order)
	if err != nil {
		return nil, fmt.Errorf("group document by country: %w", err)
	}
	return doc, nil
}

// LookupCountry returns the person with dni joined with its country. The
// result is empty when the country cannot be resolved.
func (s *Service) LookupCountry(ctx context.Context, dni int64) ([]domperson.Person, error) {
	if err := validateDNI(dni); err != nil {
		return nil, err
	}
	persons, err := s.repo.LookupCountry(ctx, dni)
	if err != nil {
		return nil, fmt.Errorf("lookup country: %w", err)
	}
	return persons, nil
}

// IsOlderThan returns the person with dni if born at least age years ago,
// or domain.ErrPersonNotFound.
func (s *Service) IsOlderThan(ctx context.Context, dni int64, age int) (domperson.Person, error) {
	if err := validateDNI(dni); err != nil {
		return domperson.Person{}, err
	}
	if age < 0 || age > MaxAge {
		return domperson.Person{}, fmt.Errorf("age must be in [0, %d], got %d: %w", MaxAge, age, domain.ErrInvalidArgument)
	}
	p, err := s.repo.IsOlderThan(ctx, dni, age)
	if err != nil {
		return domperson.Person{}, fmt.Errorf("is older than: %w", err)
	}
	return p, nil
}

// FindByCurrentLocationWithin returns persons located inside any polygon.
func (s *Service) FindByCurrentLocationWithin(ctx context.Context, mp geo.MultiPolygon) ([]domperson.Person, error) {
	if len(mp) == 0 {
		logger.FromContext(ctx).Debug("Empty multipolygon matches no persons")
	}
	persons, err := s.repo.FindByCurrentLocationWithin(ctx, mp)
	if err != nil {
		return nil, fmt.Errorf("find within polygons: %w", err)
	}
	return persons, nil
}

// SetHobbies replaces the hobbies of the person identified by p.
func (s *Service) SetHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	return s.updateHobbies(ctx, "set hobbies", p, s.repo.SetHobbies)
}

// PushHobbies appends the hobbies of p.
func (s *Service) PushHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	if len(p.Hobbies) == 0 {
		return domperson.UpdateResult{}, fmt.Errorf("at least one hobby is required: %w", domain.ErrInvalidArgument)
	}
	return s.updateHobbies(ctx, "push hobbies", p, s.repo.PushHobbies)
}

// PullHobbies removes every stored hobby equal to any hobby of p.
func (s *Service) PullHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	if len(p.Hobbies) == 0 {
		return domperson.UpdateResult{}, fmt.Errorf("at least one hobby is required: %w", domain.ErrInvalidArgument)
	}
	return s.updateHobbies(ctx, "pull hobbies", p, s.repo.PullHobbies)
}

// AddFieldsToAllHobbies sets the patch fields on every hobby of the matching persons.
func (s *Service) AddFieldsToAllHobbies(ctx context.Context, patch domperson.HobbyFieldsPatch) (domperson.UpdateResult, error) {
	if err := patch.Ref().Validate(); err != nil {
		return domperson.UpdateResult{}, err
	}
	res, err := s.repo.AddFieldsToAllHobbies(ctx, patch)
	if err != nil {
		return domperson.UpdateResult{}, fmt.Errorf("add hobby fields: %w", err)
	}
	logUpdate(ctx, "add hobby fields", patch.Ref(), res)
	return res, nil
}

// MarkGoodFrequencyHobbies flags hobbies practiced at least minFrequency times.
func (s *Service) MarkGoodFrequencyHobbies(ctx context.Context, p domperson.Person, minFrequency *int) (domperson.UpdateResult, error) {
	if minFrequency != nil && *minFrequency < 0 {
		return domperson.UpdateResult{}, fmt.Errorf("min frequency must be non-negative: %w", domain.ErrInvalidArgument)
	}
	return s.updateHobbies(ctx, "mark good frequency hobbies", p,
		func(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
			return s.repo.MarkGoodFrequencyHobbies(ctx, p, minFrequency)
		})
}

type hobbyUpdate func(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error)

func (s *Service) updateHobbies(ctx context.Context, what string, p domperson.Person, fn hobbyUpdate) (domperson.UpdateResult, error) {
	if err := p.Ref().Validate(); err != nil {
		return domperson.UpdateResult{}, err
	}
	res, err := fn(ctx, p)
	if err != nil {
		return domperson.UpdateResult{}, fmt.Errorf("%s: %w", what, err)
	}
	logUpdate(ctx, what, p.Ref(), res)
	return res, nil
}

func logUpdate(ctx context.Context, what string, ref domperson.Ref, res domperson.UpdateResult) {
	log := logger.FromContext(ctx)
	if res.Matched == 0 {
		log.Warn("Hobby update matched no person",
			zap.String("op", what), zap.Int64("dni", ref.DNI), zap.String("id", ref.ID))
		return
	}
	log.Debug("Hobby update applied",
		zap.String("op", what), zap.Int64("matched", res.Matched), zap.Int64("modified", res.Modified))
}

func validateDNI(dni int64) error {
	if dni <= 0 {
		return fmt.Errorf("dni must be positive, got %d: %w", dni, domain.ErrInvalidArgument)
	}
	return nil
}
