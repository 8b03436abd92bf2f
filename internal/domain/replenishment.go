package domain

import "time"

// VendorScheduleRow is a raw vendor schedule entry before calendar resolution
type VendorScheduleRow struct {
	ProductID     string
	SubmissionDay string // Ideal RL submission weekday name
	LeadTimeDays  *int   // JI, nil when the cell is blank
}

// VendorScheduleRecord is a vendor schedule entry with its resolved calendar
type VendorScheduleRecord struct {
	ProductID       string        `json:"product_id"`
	SubmissionDay   string        `json:"submission_day"`
	LeadTimeDays    int           `json:"lead_time_days"`
	OrderDate       time.Time     `json:"order_date"`
	InboundDate     time.Time     `json:"inbound_date"`
	NextInboundDate time.Time     `json:"next_inbound_date"`
	CoverageDays    time.Duration `json:"-"`
}

// CoverageDayCount returns the coverage span in whole days.
func (r VendorScheduleRecord) CoverageDayCount() float64 {
	return r.CoverageDays.Hours() / 24
}

// StockOnHandRow is one reference SOH entry. Nil quantities mean the cell was blank.
type StockOnHandRow struct {
	ProductID   string
	StockOnHand *float64 // stock_wh
	OSPO        *float64 // outstanding purchase order
	OSPR        *float64 // outstanding purchase receipt
	OSRL        *float64 // outstanding replenishment
}

// SalesForecastRow holds the forecast average daily sales for a product
type SalesForecastRow struct {
	ProductID     string
	AvgDailySales *float64
}

// SafetyStockRow holds the days-of-inventory policy for a product
type SafetyStockRow struct {
	ProductID string
	DOIPolicy *float64
}

// Datasets groups the four planner inputs
type Datasets struct {
	StockOnHand    []StockOnHandRow
	SalesForecast  []SalesForecastRow
	SafetyStock    []SafetyStockRow
	VendorSchedule []VendorScheduleRecord
}

// UnifiedProductRecord is the left join of SOH with the other datasets.
// Fields from unmatched datasets stay nil so "no data" can be told apart from zero.
type UnifiedProductRecord struct {
	ProductID     string
	StockOnHand   *float64
	OSPO          *float64
	OSPR          *float64
	OSRL          *float64
	AvgDailySales *float64
	DOIPolicy     *float64
	Schedule      *VendorScheduleRecord
	CurrentStock  *float64

	InSalesForecast bool
	InSafetyStock   bool
}

// ProductPosition is the state a product carries from one cycle into the next
type ProductPosition struct {
	ProductID     string
	CurrentStock  float64
	OSPO          float64
	OSPR          float64
	OSRL          float64
	AvgDailySales float64
	DOIPolicy     float64
	CoverageDays  float64
	ElapsedDays   float64
	OrderDate     time.Time
}

// CycleResult is the projection for one product in one cycle
type CycleResult struct {
	Cycle     int       `json:"cycle"`
	ProductID string    `json:"product_id"`
	OrderDate time.Time `json:"order_date"`
	NextSOH   float64   `json:"next_soh"`
	MaxStock  float64   `json:"max_stock"`
	RLQty     float64   `json:"rl_qty"`
}

// SkippedProduct reports a product left out of the projection
type SkippedProduct struct {
	ProductID string `json:"product_id"`
	Field     string `json:"field"`
	Reason    string `json:"reason"`
}

// ElapsedMode selects how many days of sales are depleted per cycle
type ElapsedMode string

const (
	ElapsedCoverage ElapsedMode = "coverage"  // order date to next inbound date
	ElapsedLeadTime ElapsedMode = "lead_time" // order date to inbound date
)

// PlanOptions controls a projection run
type PlanOptions struct {
	ReferenceDate time.Time   `json:"reference_date"`
	Cycles        int         `json:"cycles"`
	ElapsedMode   ElapsedMode `json:"elapsed_mode"`
	ClampNegative bool        `json:"clamp_negative"`
}

// Report is the outcome of one planner run
type Report struct {
	RunID       string           `json:"run_id"`
	Options     PlanOptions      `json:"options"`
	Products    int              `json:"products"`
	Included    int              `json:"included"`
	Rows        []CycleResult    `json:"rows"`
	Skipped     []SkippedProduct `json:"skipped"`
	GeneratedAt time.Time        `json:"generated_at"`
}
