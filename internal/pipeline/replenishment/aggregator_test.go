package replenishment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/rlqty/internal/domain"
)

func TestAggregate_OrdersByCycleThenFirstAppearance(t *testing.T) {
	perCycle := [][]domain.CycleResult{
		{{Cycle: 1, ProductID: "B"}, {Cycle: 1, ProductID: "A"}},
		{{Cycle: 2, ProductID: "B"}, {Cycle: 2, ProductID: "A"}},
	}
	// a misplaced slice must still come out ordered by cycle
	perCycle = append([][]domain.CycleResult{{{Cycle: 3, ProductID: "A"}, {Cycle: 3, ProductID: "B"}}}, perCycle...)

	rows := Aggregate(perCycle)
	require.Len(t, rows, 6)

	var got []string
	for _, r := range rows {
		got = append(got, string(rune('0'+r.Cycle))+r.ProductID)
	}
	assert.Equal(t, []string{"1A", "1B", "2A", "2B", "3A", "3B"}, got)
}

func TestAggregate_KeepsDuplicates(t *testing.T) {
	rows := Aggregate([][]domain.CycleResult{
		{{Cycle: 1, ProductID: "A", RLQty: 1}, {Cycle: 1, ProductID: "A", RLQty: 2}},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, 1.0, rows[0].RLQty)
	assert.Equal(t, 2.0, rows[1].RLQty)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
	assert.Empty(t, Aggregate([][]domain.CycleResult{{}, {}}))
}

func TestPlan_EndToEnd(t *testing.T) {
	in := Inputs{
		StockOnHand: []domain.StockOnHandRow{
			{ProductID: "P1", StockOnHand: f(100), OSPO: f(0), OSPR: f(0), OSRL: f(0)},
			{ProductID: "P2", StockOnHand: f(50), OSPO: f(0), OSPR: f(0), OSRL: f(0)},
			{ProductID: "P3", StockOnHand: f(10)},
		},
		SalesForecast: []domain.SalesForecastRow{
			{ProductID: "P1", AvgDailySales: f(10)},
			{ProductID: "P2", AvgDailySales: f(4)},
			{ProductID: "P3", AvgDailySales: f(1)},
		},
		SafetyStock: []domain.SafetyStockRow{
			{ProductID: "P1", DOIPolicy: f(5)},
			{ProductID: "P2", DOIPolicy: f(7)},
			{ProductID: "P3", DOIPolicy: f(3)},
		},
		VendorSchedule: []domain.VendorScheduleRow{
			{ProductID: "P1", SubmissionDay: "Monday", LeadTimeDays: intPtr(7)},
			{ProductID: "P3", SubmissionDay: "Thursday", LeadTimeDays: intPtr(2)},
		},
	}

	out, err := Plan(in, defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, out.Products)
	assert.Equal(t, 2, out.Included)
	assert.Len(t, out.Rows, DefaultCycles*out.Included)
	assert.Equal(t, []domain.SkippedProduct{
		{ProductID: "P2", Field: "calendar", Reason: "missing calendar data"},
	}, out.Skipped)

	for i, r := range out.Rows {
		assert.Equal(t, i/2+1, r.Cycle)
		assert.Equal(t, []string{"P1", "P3"}[i%2], r.ProductID)
	}
	assert.Equal(t, 230.0, out.Rows[0].RLQty)
	assert.Equal(t, date(2025, time.April, 17), out.Rows[1].OrderDate)
}

func TestPlan_AbortsOnStructuralErrors(t *testing.T) {
	t.Run("bad vendor weekday", func(t *testing.T) {
		_, err := Plan(Inputs{
			StockOnHand:    []domain.StockOnHandRow{{ProductID: "P1", StockOnHand: f(1)}},
			VendorSchedule: []domain.VendorScheduleRow{{ProductID: "P1", SubmissionDay: "Noday", LeadTimeDays: intPtr(1)}},
		}, defaultOptions())
		var schedErr *domain.InvalidScheduleError
		assert.ErrorAs(t, err, &schedErr)
		assert.True(t, domain.IsAbort(err))
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Plan(Inputs{}, defaultOptions())
		var emptyErr *domain.EmptyInputError
		assert.ErrorAs(t, err, &emptyErr)
	})

	t.Run("zero cycles", func(t *testing.T) {
		opts := defaultOptions()
		opts.Cycles = 0
		_, err := Plan(Inputs{}, opts)
		assert.ErrorIs(t, err, domain.ErrInvalidCycleCount)
	})
}
