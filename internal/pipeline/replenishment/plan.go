package replenishment

import (
	"fmt"

	"github.com/andresuchdata/rlqty/internal/domain"
)

// Inputs are the raw planner datasets, with the vendor schedule not yet resolved
type Inputs struct {
	StockOnHand    []domain.StockOnHandRow
	SalesForecast  []domain.SalesForecastRow
	SafetyStock    []domain.SafetyStockRow
	VendorSchedule []domain.VendorScheduleRow
}

// Outcome is what a full planning pass produces
type Outcome struct {
	Rows     []domain.CycleResult
	Skipped  []domain.SkippedProduct
	Products int // products in the joined record set
	Included int // products projected over every cycle
}

// Plan resolves the vendor calendar, joins the datasets, projects every cycle
// and aggregates the results. Calendar and join errors abort the whole plan.
func Plan(in Inputs, opts domain.PlanOptions) (Outcome, error) {
	projector, err := NewProjector(opts)
	if err != nil {
		return Outcome{}, err
	}

	vendors, err := ResolveSchedule(in.VendorSchedule, opts.ReferenceDate)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve vendor calendar: %w", err)
	}

	records, err := Join(domain.Datasets{
		StockOnHand:    in.StockOnHand,
		SalesForecast:  in.SalesForecast,
		SafetyStock:    in.SafetyStock,
		VendorSchedule: vendors,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("join datasets: %w", err)
	}

	projection := projector.Project(records)

	return Outcome{
		Rows:     Aggregate(projection.PerCycle),
		Skipped:  projection.Skipped,
		Products: len(records),
		Included: projection.Included(),
	}, nil
}
