package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/rlqty/internal/cache"
	"github.com/andresuchdata/rlqty/internal/dataset"
	"github.com/andresuchdata/rlqty/internal/domain"
	"github.com/andresuchdata/rlqty/internal/pipeline"
	"github.com/andresuchdata/rlqty/internal/pipeline/replenishment"
)

// CacheObserver is told about every cache lookup.
type CacheObserver interface {
	ObserveCache(hit bool)
}

type ReplenishmentService struct {
	orchestrator *pipeline.Orchestrator
	cache        cache.ReportCache
	observer     CacheObserver
}

func NewReplenishmentService(orchestrator *pipeline.Orchestrator, cacheImpl cache.ReportCache, observer CacheObserver) *ReplenishmentService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &ReplenishmentService{orchestrator: orchestrator, cache: cacheImpl, observer: observer}
}

// Calculate loads src and returns its report, served from cache when the same
// inputs were planned with the same options before. cached tells which.
func (s *ReplenishmentService) Calculate(ctx context.Context, src dataset.Source, opts domain.PlanOptions) (report *domain.Report, cached bool, err error) {
	loaded, err := src.Load(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("load datasets: %w", err)
	}

	if loaded.Fingerprint != "" {
		hit, ok, err := s.cache.Get(ctx, loaded.Fingerprint, opts)
		if err != nil {
			log.Warn().Err(err).Msg("replenishment: cache get report failed")
		}
		s.observe(ok)
		if ok {
			return hit, true, nil
		}
	}

	report, err = s.orchestrator.Plan(ctx, loaded.Inputs, opts)
	if err != nil {
		return nil, false, err
	}

	if err := s.cache.Set(ctx, loaded.Fingerprint, report); err != nil {
		log.Warn().Err(err).Msg("replenishment: cache set report failed")
	}
	return report, false, nil
}

// ResolveCalendar resolves the vendor schedule alone, without stock data.
func (s *ReplenishmentService) ResolveCalendar(ctx context.Context, rows []domain.VendorScheduleRow, referenceDate time.Time) ([]domain.VendorScheduleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return replenishment.ResolveSchedule(rows, referenceDate)
}

// InvalidateCache drops every cached report.
func (s *ReplenishmentService) InvalidateCache(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

func (s *ReplenishmentService) observe(hit bool) {
	if s.observer != nil {
		s.observer.ObserveCache(hit)
	}
}
