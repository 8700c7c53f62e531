package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peopledir/internal/domain"
	dombatch "github.com/kailas-cloud/peopledir/internal/domain/batch"
	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
	healthuc "github.com/kailas-cloud/peopledir/internal/usecase/health"
)

// Error codes returned in error bodies.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codePersonNotFound   = "person_not_found"
	codeDuplicateDNI     = "duplicate_dni"
	codeBatchTooLarge    = "batch_too_large"
	codeUnauthorized     = "unauthorized"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the person directory over HTTP.
type Server struct {
	persons       PersonService
	batch         BatchDeleter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(persons PersonService, batch BatchDeleter, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		persons: persons,
		batch:   batch,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrPersonNotFound, http.StatusNotFound, codePersonNotFound),
		validationHandler,
		sentinelHandler(domain.ErrDuplicateDNI, http.StatusConflict, codeDuplicateDNI),
		sentinelHandler(domain.ErrBatchTooLarge, http.StatusRequestEntityTooLarge, codeBatchTooLarge),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/persons", func(r chi.Router) {
		r.Get("/born-between", s.FindBornBetween)
		r.Get("/count", s.CountByCountry)
		r.Get("/groups/country", s.GroupByCountry)
		r.Get("/groups/country/raw", s.GroupDocumentByCountry)
		r.Post("/within", s.FindWithin)
		r.Post("/delete", s.BatchDelete)
		r.Post("/purge", s.BatchPurge)

		r.Get("/{dni}/document", s.FindDocumentByDNI)
		r.Get("/{dni}/country", s.LookupCountry)
		r.Get("/{dni}/older-than/{age}", s.IsOlderThan)

		r.Route("/hobbies", func(r chi.Router) {
			r.Put("/", s.SetHobbies)
			r.Post("/push", s.PushHobbies)
			r.Post("/pull", s.PullHobbies)
			r.Post("/fields", s.AddFieldsToAllHobbies)
			r.Post("/good-frequency", s.MarkGoodFrequencyHobbies)
		})
	})
}

// Handler returns a chi router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

// FindBornBetween handles GET /persons/born-between?start=&end=.
func (s *Server) FindBornBetween(w http.ResponseWriter, r *http.Request) {
	start, err := parseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	end, err := parseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	persons, err := s.persons.FindBornBetween(r.Context(), start, end)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writePersons(w, persons)
}

// FindDocumentByDNI handles GET /persons/{dni}/document.
func (s *Server) FindDocumentByDNI(w http.ResponseWriter, r *http.Request) {
	dni, ok := dniParam(w, r)
	if !ok {
		return
	}
	doc, err := s.persons.FindDocumentByDNI(r.Context(), dni)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeExtJSON(w, doc)
}

// CountByCountry handles GET /persons/count?country=.
func (s *Server) CountByCountry(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	n, err := s.persons.CountByCountry(r.Context(), country)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Country: country, Count: n})
}

// GroupByCountry handles GET /persons/groups/country?field=&order=.
func (s *Server) GroupByCountry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	persons, err := s.persons.GroupByCountry(r.Context(), q.Get("field"), q.Get("order"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writePersons(w, persons)
}

// GroupDocumentByCountry handles GET /persons/groups/country/raw?field=&order=.
func (s *Server) GroupDocumentByCountry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doc, err := s.persons.GroupDocumentByCountry(r.Context(), q.Get("field"), q.Get("order"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeExtJSON(w, doc)
}

// LookupCountry handles GET /persons/{dni}/country.
func (s *Server) LookupCountry(w http.ResponseWriter, r *http.Request) {
	dni, ok := dniParam(w, r)
	if !ok {
		return
	}
	persons, err := s.persons.LookupCountry(r.Context(), dni)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writePersons(w, persons)
}

// IsOlderThan handles GET /persons/{dni}/older-than/{age}.
func (s *Server) IsOlderThan(w http.ResponseWriter, r *http.Request) {
	dni, ok := dniParam(w, r)
	if !ok {
		return
	}
	age, err := strconv.Atoi(chi.URLParam(r, "age"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "age must be an integer")
		return
	}
	p, err := s.persons.IsOlderThan(r.Context(), dni, age)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, personToJSON(p))
}

// FindWithin handles POST /persons/within with a GeoJSON MultiPolygon body.
func (s *Server) FindWithin(w http.ResponseWriter, r *http.Request) {
	var mp geo.MultiPolygon
	if err := json.NewDecoder(r.Body).Decode(&mp); err != nil {
		if errors.Is(err, domain.ErrInvalidPolygon) {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	persons, err := s.persons.FindByCurrentLocationWithin(r.Context(), mp)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writePersons(w, persons)
}

// SetHobbies handles PUT /persons/hobbies.
func (s *Server) SetHobbies(w http.ResponseWriter, r *http.Request) {
	s.updateHobbies(w, r, s.persons.SetHobbies)
}

// PushHobbies handles POST /persons/hobbies/push.
func (s *Server) PushHobbies(w http.ResponseWriter, r *http.Request) {
	s.updateHobbies(w, r, s.persons.PushHobbies)
}

// PullHobbies handles POST /persons/hobbies/pull.
func (s *Server) PullHobbies(w http.ResponseWriter, r *http.Request) {
	s.updateHobbies(w, r, s.persons.PullHobbies)
}

// AddFieldsToAllHobbies handles POST /persons/hobbies/fields.
func (s *Server) AddFieldsToAllHobbies(w http.ResponseWriter, r *http.Request) {
	var req hobbyFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	patch, err := domperson.NewHobbyFieldsPatch(domperson.Ref{DNI: req.DNI, ID: req.ID}, req.Fields.Fields())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	res, err := s.persons.AddFieldsToAllHobbies(r.Context(), patch)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Matched: res.Matched, Modified: res.Modified})
}

// MarkGoodFrequencyHobbies handles POST /persons/hobbies/good-frequency.
func (s *Server) MarkGoodFrequencyHobbies(w http.ResponseWriter, r *http.Request) {
	var req goodFrequencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	p := domperson.Person{ID: req.ID, DNI: req.DNI}
	res, err := s.persons.MarkGoodFrequencyHobbies(r.Context(), p, req.MinFrequency)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Matched: res.Matched, Modified: res.Modified})
}

// BatchDelete handles POST /persons/delete.
func (s *Server) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	persons := make([]domperson.Person, 0, len(req.Persons))
	for i, in := range req.Persons {
		p, err := personFromJSON(in)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, fmt.Sprintf("persons[%d]: %s", i, err))
			return
		}
		persons = append(persons, p)
	}

	report, err := s.batch.Delete(r.Context(), persons)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := batchDeleteResponse{
		Deleted: personsToJSON(report.Deleted),
		Items:   make([]batchResultItem, len(report.Results)),
	}
	for i, res := range report.Results {
		resp.Items[i] = batchResultToJSON(res)
		switch res.Status() {
		case dombatch.StatusMissing:
			resp.Missing++
		case dombatch.StatusError:
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// BatchPurge handles POST /persons/purge.
func (s *Server) BatchPurge(w http.ResponseWriter, r *http.Request) {
	var req batchPurgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	n, err := s.batch.Purge(r.Context(), req.DNIs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchPurgeResponse{Requested: len(req.DNIs), Deleted: n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type hobbyUpdate func(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error)

func (s *Server) updateHobbies(w http.ResponseWriter, r *http.Request, fn hobbyUpdate) {
	var req personJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	p, err := personFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	res, err := fn(r.Context(), p)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Matched: res.Matched, Modified: res.Modified})
}

func dniParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	dni, err := strconv.ParseInt(chi.URLParam(r, "dni"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "dni must be an integer")
		return 0, false
	}
	return dni, true
}

func writePersons(w http.ResponseWriter, persons []domperson.Person) {
	writeJSON(w, http.StatusOK, personListResponse{Items: personsToJSON(persons), Total: len(persons)})
}

// writeExtJSON renders a raw store document as relaxed extended JSON.
func (s *Server) writeExtJSON(w http.ResponseWriter, doc any) {
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		s.handleDomainError(w, fmt.Errorf("encode document: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

var sentinels = []error{
	domain.ErrPersonNotFound,
	domain.ErrInvalidPolygon,
	domain.ErrInvalidArgument,
	domain.ErrDuplicateDNI,
	domain.ErrBatchTooLarge,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrPersonNotFound):
		return codePersonNotFound
	case errors.Is(err, domain.ErrInvalidPolygon), errors.Is(err, domain.ErrInvalidArgument):
		return codeValidationFailed
	case errors.Is(err, domain.ErrDuplicateDNI):
		return codeDuplicateDNI
	case errors.Is(err, domain.ErrBatchTooLarge):
		return codeBatchTooLarge
	default:
		return codeInternalError
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports invalid input with the full message, which only
// describes caller-supplied values.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInvalidArgument) && !errors.Is(err, domain.ErrInvalidPolygon) {
		return false
	}
	writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
