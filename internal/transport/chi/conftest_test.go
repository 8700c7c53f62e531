package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
	batchuc "github.com/kailas-cloud/peopledir/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/peopledir/internal/usecase/health"
)

// --- Mocks ---

type mockPersons struct {
	findBornBetweenFn   func(ctx context.Context, start, end time.Time) ([]domperson.Person, error)
	findDocumentFn      func(ctx context.Context, dni int64) (bson.M, error)
	countByCountryFn    func(ctx context.Context, country string) (int64, error)
	groupByCountryFn    func(ctx context.Context, field, order string) ([]domperson.Person, error)
	groupDocumentFn     func(ctx context.Context, field, order string) (bson.D, error)
	lookupCountryFn     func(ctx context.Context, dni int64) ([]domperson.Person, error)
	isOlderThanFn       func(ctx context.Context, dni int64, age int) (domperson.Person, error)
	withinFn            func(ctx context.Context, mp geo.MultiPolygon) ([]domperson.Person, error)
	hobbyUpdateFn       func(ctx context.Context, op string, p domperson.Person) (domperson.UpdateResult, error)
	addFieldsFn         func(ctx context.Context, patch domperson.HobbyFieldsPatch) (domperson.UpdateResult, error)
	markGoodFrequencyFn func(ctx context.Context, p domperson.Person, minFrequency *int) (domperson.UpdateResult, error)
}

func (m *mockPersons) FindBornBetween(ctx context.Context, start, end time.Time) ([]domperson.Person, error) {
	return m.findBornBetweenFn(ctx, start, end)
}

func (m *mockPersons) FindDocumentByDNI(ctx context.Context, dni int64) (bson.M, error) {
	return m.findDocumentFn(ctx, dni)
}

func (m *mockPersons) CountByCountry(ctx context.Context, country string) (int64, error) {
	return m.countByCountryFn(ctx, country)
}

func (m *mockPersons) GroupByCountry(ctx context.Context, field, order string) ([]domperson.Person, error) {
	return m.groupByCountryFn(ctx, field, order)
}

func (m *mockPersons) GroupDocumentByCountry(ctx context.Context, field, order string) (bson.D, error) {
	return m.groupDocumentFn(ctx, field, order)
}

func (m *mockPersons) LookupCountry(ctx context.Context, dni int64) ([]domperson.Person, error) {
	return m.lookupCountryFn(ctx, dni)
}

func (m *mockPersons) IsOlderThan(ctx context.Context, dni int64, age int) (domperson.Person, error) {
	return m.isOlderThanFn(ctx, dni, age)
}

func (m *mockPersons) FindByCurrentLocationWithin(ctx context.Context, mp geo.MultiPolygon) ([]domperson.Person, error) {
	return m.withinFn(ctx, mp)
}

func (m *mockPersons) SetHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	return m.hobbyUpdateFn(ctx, "set", p)
}

func (m *mockPersons) PushHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	return m.hobbyUpdateFn(ctx, "push", p)
}

func (m *mockPersons) PullHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	return m.hobbyUpdateFn(ctx, "pull", p)
}

func (m *mockPersons) AddFieldsToAllHobbies(ctx context.Context, patch domperson.HobbyFieldsPatch) (domperson.UpdateResult, error) {
	return m.addFieldsFn(ctx, patch)
}

func (m *mockPersons) MarkGoodFrequencyHobbies(
	ctx context.Context, p domperson.Person, minFrequency *int,
) (domperson.UpdateResult, error) {
	return m.markGoodFrequencyFn(ctx, p, minFrequency)
}

type mockBatch struct {
	deleteFn func(ctx context.Context, persons []domperson.Person) (batchuc.Report, error)
	purgeFn  func(ctx context.Context, dnis []int64) (int64, error)
}

func (m *mockBatch) Delete(ctx context.Context, persons []domperson.Person) (batchuc.Report, error) {
	return m.deleteFn(ctx, persons)
}

func (m *mockBatch) Purge(ctx context.Context, dnis []int64) (int64, error) {
	return m.purgeFn(ctx, dnis)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Helpers ---

func newTestServer(persons PersonService, batch BatchDeleter, health HealthChecker) http.Handler {
	return NewServer(persons, batch, health, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
