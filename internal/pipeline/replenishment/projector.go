package replenishment

import (
	"fmt"
	"math"

	"github.com/andresuchdata/rlqty/internal/domain"
)

const (
	// DefaultCycles is the number of weekly cycles planned when none is configured
	DefaultCycles = 4

	cycleStepDays = 7
)

// Projection is the projector output: per-cycle results plus products left out
type Projection struct {
	PerCycle [][]domain.CycleResult // index c-1 holds cycle c, in record order
	Skipped  []domain.SkippedProduct
	Errors   []*domain.MissingFieldError
}

// Included returns how many products were projected.
func (p Projection) Included() int {
	if len(p.PerCycle) == 0 {
		return 0
	}
	return len(p.PerCycle[0])
}

// Projector rolls product positions forward over a fixed number of cycles
type Projector struct {
	cycles        int
	elapsedMode   domain.ElapsedMode
	clampNegative bool
}

// NewProjector validates opts and creates a projector.
func NewProjector(opts domain.PlanOptions) (*Projector, error) {
	if opts.Cycles < 1 {
		return nil, fmt.Errorf("%w, got %d", domain.ErrInvalidCycleCount, opts.Cycles)
	}
	mode := opts.ElapsedMode
	switch mode {
	case "":
		mode = domain.ElapsedCoverage
	case domain.ElapsedCoverage, domain.ElapsedLeadTime:
	default:
		return nil, fmt.Errorf("unknown elapsed mode %q", opts.ElapsedMode)
	}
	return &Projector{
		cycles:        opts.Cycles,
		elapsedMode:   mode,
		clampNegative: opts.ClampNegative,
	}, nil
}

// Cycles returns the configured cycle count.
func (p *Projector) Cycles() int {
	return p.cycles
}

// Project runs every complete record through all cycles. Products with missing
// inputs are excluded from every cycle and reported in Skipped.
func (p *Projector) Project(records []domain.UnifiedProductRecord) Projection {
	out := Projection{PerCycle: make([][]domain.CycleResult, p.cycles)}
	for c := range out.PerCycle {
		out.PerCycle[c] = make([]domain.CycleResult, 0, len(records))
	}

	for _, rec := range records {
		chain, err := p.projectProduct(rec)
		if err != nil {
			out.Errors = append(out.Errors, err)
			out.Skipped = append(out.Skipped, err.Skipped())
			continue
		}
		for c, res := range chain {
			out.PerCycle[c] = append(out.PerCycle[c], res)
		}
	}

	return out
}

// projectProduct computes the whole chain for one product or none of it.
func (p *Projector) projectProduct(rec domain.UnifiedProductRecord) ([]domain.CycleResult, *domain.MissingFieldError) {
	pos, err := p.initialPosition(rec)
	if err != nil {
		return nil, err
	}

	chain := make([]domain.CycleResult, 0, p.cycles)
	for c := 1; c <= p.cycles; c++ {
		res := p.step(c, pos)
		if !isFinite(res.NextSOH) || !isFinite(res.MaxStock) || !isFinite(res.RLQty) {
			return nil, &domain.MissingFieldError{
				ProductID: rec.ProductID,
				Field:     "rl_qty",
				Reason:    fmt.Sprintf("non-finite projection in cycle %d", c),
			}
		}
		chain = append(chain, res)
		pos = advance(pos, res)
	}
	return chain, nil
}

// initialPosition builds cycle 1 state, checking required inputs up front.
func (p *Projector) initialPosition(rec domain.UnifiedProductRecord) (domain.ProductPosition, *domain.MissingFieldError) {
	missing := func(field, reason string) *domain.MissingFieldError {
		return &domain.MissingFieldError{ProductID: rec.ProductID, Field: field, Reason: reason}
	}

	switch {
	case rec.Schedule == nil:
		return domain.ProductPosition{}, missing("calendar", "missing calendar data")
	case rec.AvgDailySales == nil:
		return domain.ProductPosition{}, missing("avg_sales", "missing sales data")
	case rec.DOIPolicy == nil:
		return domain.ProductPosition{}, missing("doi_policy", "missing safety stock data")
	case rec.CurrentStock == nil:
		return domain.ProductPosition{}, missing("stock_on_hand", "missing stock on hand")
	}

	coverage := rec.Schedule.CoverageDayCount()
	elapsed := coverage
	if p.elapsedMode == domain.ElapsedLeadTime {
		elapsed = float64(rec.Schedule.LeadTimeDays)
	}

	return domain.ProductPosition{
		ProductID:     rec.ProductID,
		CurrentStock:  *rec.CurrentStock,
		OSPO:          valueOrZero(rec.OSPO),
		OSPR:          valueOrZero(rec.OSPR),
		OSRL:          valueOrZero(rec.OSRL),
		AvgDailySales: *rec.AvgDailySales,
		DOIPolicy:     *rec.DOIPolicy,
		CoverageDays:  coverage,
		ElapsedDays:   elapsed,
		OrderDate:     rec.Schedule.OrderDate,
	}, nil
}

// step computes a single cycle from the current position
func (p *Projector) step(cycle int, pos domain.ProductPosition) domain.CycleResult {
	// 1. Stock left when the next inbound lands
	nextSOH := pos.CurrentStock + pos.OSPO - pos.AvgDailySales*pos.ElapsedDays

	// 2. Ceiling = sales over the coverage span plus the DOI policy days
	maxStock := pos.AvgDailySales * (pos.CoverageDays + pos.DOIPolicy)

	// 3. Order what is needed to reach the ceiling
	rlQty := maxStock - nextSOH - pos.OSPO - pos.OSPR - pos.OSRL
	if p.clampNegative && rlQty < 0 {
		rlQty = 0
	}

	return domain.CycleResult{
		Cycle:     cycle,
		ProductID: pos.ProductID,
		OrderDate: pos.OrderDate,
		NextSOH:   nextSOH,
		MaxStock:  maxStock,
		RLQty:     rlQty,
	}
}

// advance returns the position for the next cycle: this cycle's order becomes
// the incoming PO and the projected SOH becomes current stock. OSPR and OSRL hold.
func advance(pos domain.ProductPosition, res domain.CycleResult) domain.ProductPosition {
	next := pos
	next.OSPO = res.RLQty
	next.CurrentStock = res.NextSOH
	next.OrderDate = pos.OrderDate.AddDate(0, 0, cycleStepDays)
	return next
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
