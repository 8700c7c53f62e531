package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/peopledir/internal/domain"
	dombatch "github.com/kailas-cloud/peopledir/internal/domain/batch"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
	"github.com/kailas-cloud/peopledir/internal/logger"
)

// MaxBatchSize is the default maximum number of persons per batch.
const MaxBatchSize = 1000

// Report is the outcome of a batch delete.
type Report struct {
	// Deleted lists the input persons that were removed, in input order.
	Deleted []domperson.Person
	// Results has one entry per processed input person.
	Results []dombatch.Result
}

// Service runs batch mutations over persons.
type Service struct {
	tx           Transactor
	del          PersonDeleter
	inv          Invalidator
	maxBatchSize int
}

// New creates a batch service.
func New(tx Transactor, del PersonDeleter) *Service {
	return &Service{tx: tx, del: del, maxBatchSize: MaxBatchSize}
}

// WithInvalidator sets the cache invalidated after a delete removed anyone.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.inv = inv
	return s
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Delete removes each person by dni, in input order, inside one
// transaction scope. Persons for which nothing was removed are left out of
// Report.Deleted and reported as missing; the input slice is not modified.
// A store error aborts the batch and is returned.
func (s *Service) Delete(ctx context.Context, persons []domperson.Person) (Report, error) {
	if len(persons) > s.maxBatchSize {
		return Report{}, fmt.Errorf("batch size %d exceeds %d: %w", len(persons), s.maxBatchSize, domain.ErrBatchTooLarge)
	}
	if len(persons) == 0 {
		return Report{Deleted: []domperson.Person{}}, nil
	}

	ctx = logger.WithFields(ctx, zap.String("batch_op", "delete"), zap.Int("size", len(persons)))
	log := logger.FromContext(ctx)
	var report Report
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// The scope may re-run this function on transient errors.
		report = Report{
			Deleted: make([]domperson.Person, 0, len(persons)),
			Results: make([]dombatch.Result, 0, len(persons)),
		}
		for _, p := range persons {
			if p.DNI <= 0 {
				report.Results = append(report.Results,
					dombatch.NewError(p.DNI, fmt.Errorf("dni must be positive: %w", domain.ErrInvalidArgument)))
				continue
			}
			n, err := s.del.DeleteByDNI(ctx, p.DNI)
			if err != nil {
				return fmt.Errorf("delete person %d: %w", p.DNI, err)
			}
			if n == 0 {
				report.Results = append(report.Results, dombatch.NewMissing(p.DNI, domain.ErrPersonNotFound))
				continue
			}
			report.Deleted = append(report.Deleted, p)
			report.Results = append(report.Results, dombatch.NewDeleted(p.DNI))
		}
		return nil
	})
	if err != nil {
		log.Error("Batch delete aborted", zap.Error(err))
		return Report{}, fmt.Errorf("batch delete: %w", err)
	}

	if missing := len(persons) - len(report.Deleted); missing > 0 {
		log.Warn("Batch delete skipped persons", zap.Int("skipped", missing))
	}
	if len(report.Deleted) > 0 {
		s.invalidate(ctx)
	}
	return report, nil
}

// Purge removes every person whose dni is listed with one delete-many
// statement and returns how many were removed. Unlike Delete it reports no
// per-item outcome. Every dni must be positive.
func (s *Service) Purge(ctx context.Context, dnis []int64) (int64, error) {
	if len(dnis) > s.maxBatchSize {
		return 0, fmt.Errorf("batch size %d exceeds %d: %w", len(dnis), s.maxBatchSize, domain.ErrBatchTooLarge)
	}
	for _, dni := range dnis {
		if dni <= 0 {
			return 0, fmt.Errorf("dni must be positive, got %d: %w", dni, domain.ErrInvalidArgument)
		}
	}
	if len(dnis) == 0 {
		return 0, nil
	}

	ctx = logger.WithFields(ctx, zap.String("batch_op", "purge"), zap.Int("size", len(dnis)))
	log := logger.FromContext(ctx)
	n, err := s.del.DeleteByDNIs(ctx, dnis)
	if err != nil {
		log.Error("Batch purge failed", zap.Error(err))
		return 0, fmt.Errorf("batch purge: %w", err)
	}
	if missing := int64(len(dnis)) - n; missing > 0 {
		log.Warn("Batch purge skipped persons", zap.Int64("skipped", missing))
	}
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.inv == nil {
		return
	}
	if err := s.inv.Invalidate(ctx); err != nil {
		logger.FromContext(ctx).Warn("Failed to invalidate aggregate cache", zap.Error(err))
	}
}
