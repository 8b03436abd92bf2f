package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/rlqty/internal/dataset"
	"github.com/andresuchdata/rlqty/internal/domain"
	"github.com/andresuchdata/rlqty/internal/pipeline/replenishment"
)

// Orchestrator loads the datasets from a source, runs the planner and wraps
// the outcome in a Report.
type Orchestrator struct {
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

// NewOrchestrator creates a new Orchestrator. A nil recorder disables metrics.
func NewOrchestrator(recorder Recorder) *Orchestrator {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Orchestrator{
		recorder: recorder,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Run loads src and plans over it.
func (o *Orchestrator) Run(ctx context.Context, src dataset.Source, opts domain.PlanOptions) (*domain.Report, error) {
	start := o.now()
	loaded, err := src.Load(ctx)
	if err != nil {
		o.recorder.ObserveRun(string(StatusFailed), o.now().Sub(start), 0, 0)
		return nil, fmt.Errorf("load datasets: %w", err)
	}
	return o.Plan(ctx, loaded.Inputs, opts)
}

// Plan runs the planner over already loaded inputs.
func (o *Orchestrator) Plan(ctx context.Context, in replenishment.Inputs, opts domain.PlanOptions) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := o.newID()
	start := o.now()
	logger := log.With().Str("run_id", runID).Logger()

	logger.Info().
		Str("reference_date", opts.ReferenceDate.Format(dateLayout)).
		Int("cycles", opts.Cycles).
		Int("stock_on_hand", len(in.StockOnHand)).
		Int("sales_forecast", len(in.SalesForecast)).
		Int("safety_stock", len(in.SafetyStock)).
		Int("vendor_schedule", len(in.VendorSchedule)).
		Msg("Starting replenishment run")

	out, err := replenishment.Plan(in, opts)
	if err != nil {
		o.recorder.ObserveRun(string(StatusFailed), o.now().Sub(start), 0, 0)
		logger.Error().Err(err).Msg("Replenishment run aborted")
		return nil, err
	}

	for _, s := range out.Skipped {
		logger.Warn().
			Str("product_id", s.ProductID).
			Str("field", s.Field).
			Str("reason", s.Reason).
			Msg("Product skipped")
	}

	if opts.ElapsedMode == "" {
		opts.ElapsedMode = domain.ElapsedCoverage
	}
	report := &domain.Report{
		RunID:       runID,
		Options:     opts,
		Products:    out.Products,
		Included:    out.Included,
		Rows:        out.Rows,
		Skipped:     out.Skipped,
		GeneratedAt: o.now().UTC(),
	}
	if report.Rows == nil {
		report.Rows = []domain.CycleResult{}
	}
	if report.Skipped == nil {
		report.Skipped = []domain.SkippedProduct{}
	}

	elapsed := o.now().Sub(start)
	o.recorder.ObserveRun(string(StatusCompleted), elapsed, out.Included, len(out.Skipped))
	logger.Info().
		Int("products", out.Products).
		Int("included", out.Included).
		Int("skipped", len(out.Skipped)).
		Int("rows", len(out.Rows)).
		Dur("elapsed", elapsed).
		Msg("Replenishment run completed")

	return report, nil
}
