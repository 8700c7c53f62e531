package person

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
)

type updateFn func(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error)

// mockRepo implements Repository for tests.
type mockRepo struct {
	findBornBetweenFn   func(ctx context.Context, start, end time.Time) ([]domperson.Person, error)
	findDocumentFn      func(ctx context.Context, dni int64) (bson.M, error)
	countByCountryFn    func(ctx context.Context, country string) (int64, error)
	groupByCountryFn    func(ctx context.Context, field, order string) ([]domperson.Person, error)
	groupDocumentFn     func(ctx context.Context, field, order string) (bson.D, error)
	lookupCountryFn     func(ctx context.Context, dni int64) ([]domperson.Person, error)
	isOlderThanFn       func(ctx context.Context, dni int64, age int) (domperson.Person, error)
	withinFn            func(ctx context.Context, mp geo.MultiPolygon) ([]domperson.Person, error)
	setHobbiesFn        updateFn
	pushHobbiesFn       updateFn
	pullHobbiesFn       updateFn
	addFieldsFn         func(ctx context.Context, patch domperson.HobbyFieldsPatch) (domperson.UpdateResult, error)
	markGoodFrequencyFn func(ctx context.Context, p domperson.Person, minFrequency *int) (domperson.UpdateResult, error)
}

func (m *mockRepo) FindBornBetween(ctx context.Context, start, end time.Time) ([]domperson.Person, error) {
	if m.findBornBetweenFn != nil {
		return m.findBornBetweenFn(ctx, start, end)
	}
	return nil, nil
}

func (m *mockRepo) FindDocumentByDNI(ctx context.Context, dni int64) (bson.M, error) {
	if m.findDocumentFn != nil {
		return m.findDocumentFn(ctx, dni)
	}
	return bson.M{}, nil
}

func (m *mockRepo) CountByCountry(ctx context.Context, country string) (int64, error) {
	if m.countByCountryFn != nil {
		return m.countByCountryFn(ctx, country)
	}
	return 0, nil
}

func (m *mockRepo) GroupByCountry(ctx context.Context, field, order string) ([]domperson.Person, error) {
	if m.groupByCountryFn != nil {
		return m.groupByCountryFn(ctx, field, order)
	}
	return nil, nil
}

func (m *mockRepo) GroupDocumentByCountry(ctx context.Context, field, order string) (bson.D, error) {
	if m.groupDocumentFn != nil {
		return m.groupDocumentFn(ctx, field, order)
	}
	return bson.D{}, nil
}

func (m *mockRepo) LookupCountry(ctx context.Context, dni int64) ([]domperson.Person, error) {
	if m.lookupCountryFn != nil {
		return m.lookupCountryFn(ctx, dni)
	}
	return nil, nil
}

func (m *mockRepo) IsOlderThan(ctx context.Context, dni int64, age int) (domperson.Person, error) {
	if m.isOlderThanFn != nil {
		return m.isOlderThanFn(ctx, dni, age)
	}
	return domperson.Person{}, nil
}

func (m *mockRepo) FindByCurrentLocationWithin(ctx context.Context, mp geo.MultiPolygon) ([]domperson.Person, error) {
	if m.withinFn != nil {
		return m.withinFn(ctx, mp)
	}
	return nil, nil
}

func (m *mockRepo) SetHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	if m.setHobbiesFn != nil {
		return m.setHobbiesFn(ctx, p)
	}
	return domperson.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (m *mockRepo) PushHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	if m.pushHobbiesFn != nil {
		return m.pushHobbiesFn(ctx, p)
	}
	return domperson.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (m *mockRepo) PullHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	if m.pullHobbiesFn != nil {
		return m.pullHobbiesFn(ctx, p)
	}
	return domperson.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (m *mockRepo) AddFieldsToAllHobbies(ctx context.Context, patch domperson.HobbyFieldsPatch) (domperson.UpdateResult, error) {
	if m.addFieldsFn != nil {
		return m.addFieldsFn(ctx, patch)
	}
	return domperson.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (m *mockRepo) MarkGoodFrequencyHobbies(ctx context.Context, p domperson.Person, minFrequency *int) (domperson.UpdateResult, error) {
	if m.markGoodFrequencyFn != nil {
		return m.markGoodFrequencyFn(ctx, p, minFrequency)
	}
	return domperson.UpdateResult{Matched: 1, Modified: 1}, nil
}

type mockAggregates struct {
	groupCalls int
	countCalls int
}

func (m *mockAggregates) GroupDocumentByCountry(context.Context, string, string) (bson.D, error) {
	m.groupCalls++
	return bson.D{{Key: "ok", Value: 1.0}}, nil
}

func (m *mockAggregates) CountByCountry(context.Context, string) (int64, error) {
	m.countCalls++
	return 9, nil
}
