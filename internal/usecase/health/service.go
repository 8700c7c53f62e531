package health

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/peopledir/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the optional cache is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckDatabase = "database"
	CheckCache    = "cache"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db    Pinger
	cache Pinger
}

// New creates a Service. cache can be nil when no aggregate cache is configured.
func New(db, cache Pinger) *Service {
	return &Service{db: db, cache: cache}
}

// Check pings the database and, when present, the cache.
func (s *Service) Check(ctx context.Context) Report {
	log := logger.FromContext(ctx)
	checks := make(map[string]CheckResult, 2)

	status := Healthy
	if err := s.db.Ping(ctx); err != nil {
		log.Warn("Database health check failed", zap.Error(err))
		checks[CheckDatabase] = CheckError
		status = Unhealthy
	} else {
		checks[CheckDatabase] = CheckOK
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			log.Warn("Cache health check failed", zap.Error(err))
			checks[CheckCache] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks[CheckCache] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
