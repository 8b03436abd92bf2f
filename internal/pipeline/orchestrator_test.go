package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/rlqty/internal/dataset"
	"github.com/andresuchdata/rlqty/internal/domain"
	"github.com/andresuchdata/rlqty/internal/pipeline/replenishment"
)

type staticSource struct {
	in  replenishment.Inputs
	err error
}

func (s staticSource) Load(context.Context) (*dataset.Loaded, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dataset.Loaded{Inputs: s.in}, nil
}

type observation struct {
	status            string
	included, skipped int
}

type recorderStub struct {
	runs []observation
}

func (r *recorderStub) ObserveRun(status string, _ time.Duration, included, skipped int) {
	r.runs = append(r.runs, observation{status, included, skipped})
}

func f(v float64) *float64 { return &v }
func intPtr(v int) *int     { return &v }

func sampleInputs() replenishment.Inputs {
	return replenishment.Inputs{
		StockOnHand: []domain.StockOnHandRow{
			{ProductID: "P1", StockOnHand: f(100), OSPO: f(0), OSPR: f(0), OSRL: f(0)},
			{ProductID: "P2", StockOnHand: f(50)},
		},
		SalesForecast: []domain.SalesForecastRow{{ProductID: "P1", AvgDailySales: f(10)}, {ProductID: "P2", AvgDailySales: f(1)}},
		SafetyStock:   []domain.SafetyStockRow{{ProductID: "P1", DOIPolicy: f(5)}, {ProductID: "P2", DOIPolicy: f(2)}},
		VendorSchedule: []domain.VendorScheduleRow{
			{ProductID: "P1", SubmissionDay: "Monday", LeadTimeDays: intPtr(7)},
		},
	}
}

func testOrchestrator(rec Recorder) *Orchestrator {
	o := NewOrchestrator(rec)
	o.now = func() time.Time { return time.Date(2025, time.April, 7, 9, 0, 0, 0, time.UTC) }
	o.newID = func() string { return "run-1" }
	return o
}

func TestOrchestrator_Run(t *testing.T) {
	rec := &recorderStub{}
	opts := domain.PlanOptions{ReferenceDate: time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC), Cycles: 4}

	report, err := testOrchestrator(rec).Run(context.Background(), staticSource{in: sampleInputs()}, opts)
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, domain.ElapsedCoverage, report.Options.ElapsedMode)
	assert.Equal(t, 2, report.Products)
	assert.Equal(t, 1, report.Included)
	assert.Len(t, report.Rows, 4)
	assert.Equal(t, 230.0, report.Rows[0].RLQty)
	assert.Equal(t, []domain.SkippedProduct{{ProductID: "P2", Field: "calendar", Reason: "missing calendar data"}}, report.Skipped)

	assert.Equal(t, []observation{{"completed", 1, 1}}, rec.runs)
}

func TestOrchestrator_Failures(t *testing.T) {
	opts := domain.PlanOptions{ReferenceDate: time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC), Cycles: 4}

	t.Run("source error", func(t *testing.T) {
		rec := &recorderStub{}
		_, err := testOrchestrator(rec).Run(context.Background(), staticSource{err: errors.New("bucket gone")}, opts)
		assert.ErrorContains(t, err, "bucket gone")
		assert.Equal(t, []observation{{"failed", 0, 0}}, rec.runs)
	})

	t.Run("duplicate product aborts", func(t *testing.T) {
		rec := &recorderStub{}
		in := sampleInputs()
		in.SafetyStock = append(in.SafetyStock, domain.SafetyStockRow{ProductID: "P1"})

		_, err := testOrchestrator(rec).Plan(context.Background(), in, opts)
		var dupErr *domain.DuplicateKeyError
		require.ErrorAs(t, err, &dupErr)
		assert.True(t, domain.IsAbort(err))
		assert.Equal(t, []observation{{"failed", 0, 0}}, rec.runs)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := testOrchestrator(nil).Plan(ctx, sampleInputs(), opts)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestOrchestrator_EmptyRowsAreNotNil(t *testing.T) {
	in := sampleInputs()
	in.VendorSchedule = nil

	report, err := testOrchestrator(nil).Plan(context.Background(), in, domain.PlanOptions{Cycles: 1})
	require.NoError(t, err)
	assert.NotNil(t, report.Rows)
	assert.Empty(t, report.Rows)
	assert.Len(t, report.Skipped, 2)
}
