package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/rlqty/internal/dataset"
	"github.com/andresuchdata/rlqty/internal/domain"
	"github.com/andresuchdata/rlqty/internal/pipeline/replenishment"
)

const (
	stockOnHandQuery = `
		SELECT product_id, stock_on_hand, ospo, ospr, osrl
		FROM stock_on_hand
		ORDER BY product_id`
	salesForecastQuery = `
		SELECT product_id, avg_daily_sales
		FROM sales_forecast`
	safetyStockQuery = `
		SELECT product_id, doi_policy
		FROM safety_stock`
	vendorScheduleQuery = `
		SELECT product_id, ideal_submission_day, lead_time_days
		FROM vendor_schedule`
)

const schema = `
CREATE TABLE IF NOT EXISTS stock_on_hand (
	product_id    TEXT PRIMARY KEY,
	stock_on_hand DOUBLE PRECISION,
	ospo          DOUBLE PRECISION,
	ospr          DOUBLE PRECISION,
	osrl          DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS sales_forecast (
	product_id      TEXT PRIMARY KEY,
	avg_daily_sales DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS safety_stock (
	product_id TEXT PRIMARY KEY,
	doi_policy DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS vendor_schedule (
	product_id           TEXT PRIMARY KEY,
	ideal_submission_day TEXT,
	lead_time_days       INTEGER
);`

type stockOnHandRow struct {
	ProductID   string          `db:"product_id"`
	StockOnHand sql.NullFloat64 `db:"stock_on_hand"`
	OSPO        sql.NullFloat64 `db:"ospo"`
	OSPR        sql.NullFloat64 `db:"ospr"`
	OSRL        sql.NullFloat64 `db:"osrl"`
}

type salesForecastRow struct {
	ProductID     string          `db:"product_id"`
	AvgDailySales sql.NullFloat64 `db:"avg_daily_sales"`
}

type safetyStockRow struct {
	ProductID string          `db:"product_id"`
	DOIPolicy sql.NullFloat64 `db:"doi_policy"`
}

type vendorScheduleRow struct {
	ProductID     string         `db:"product_id"`
	SubmissionDay sql.NullString `db:"ideal_submission_day"`
	LeadTimeDays  sql.NullInt64  `db:"lead_time_days"`
}

// DatasetRepository stores the four planner inputs in Postgres tables.
type DatasetRepository struct {
	db *DB
}

func NewDatasetRepository(db *DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Load implements dataset.Source. Tables are read concurrently, bounded by
// the pool semaphore. No fingerprint is produced, so results are not cached.
func (r *DatasetRepository) Load(ctx context.Context) (*dataset.Loaded, error) {
	var (
		soh      []stockOnHandRow
		sales    []salesForecastRow
		safety   []safetyStockRow
		schedule []vendorScheduleRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.selectAll(gctx, &soh, stockOnHandQuery, dataset.KindStockOnHand) })
	g.Go(func() error { return r.selectAll(gctx, &sales, salesForecastQuery, dataset.KindSalesForecast) })
	g.Go(func() error { return r.selectAll(gctx, &safety, safetyStockQuery, dataset.KindSafetyStock) })
	g.Go(func() error { return r.selectAll(gctx, &schedule, vendorScheduleQuery, dataset.KindVendorSchedule) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("stock_on_hand", len(soh)).
		Int("sales_forecast", len(sales)).
		Int("safety_stock", len(safety)).
		Int("vendor_schedule", len(schedule)).
		Msg("Loaded datasets from database")

	return &dataset.Loaded{Inputs: toInputs(soh, sales, safety, schedule)}, nil
}

func (r *DatasetRepository) selectAll(ctx context.Context, dest interface{}, query string, kind dataset.Kind) error {
	return r.db.withSlot(ctx, func() error {
		if err := r.db.SelectContext(ctx, dest, query); err != nil {
			return fmt.Errorf("failed to query %s: %w", kind, err)
		}
		return nil
	})
}

// EnsureSchema creates the dataset tables when missing.
func (r *DatasetRepository) EnsureSchema(ctx context.Context) error {
	return r.db.withSlot(ctx, func() error {
		if _, err := r.db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to create dataset tables: %w", err)
		}
		return nil
	})
}

// Replace swaps the stored datasets for in within one transaction.
func (r *DatasetRepository) Replace(ctx context.Context, in replenishment.Inputs) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "TRUNCATE stock_on_hand, sales_forecast, safety_stock, vendor_schedule"); err != nil {
			return fmt.Errorf("failed to clear dataset tables: %w", err)
		}

		// 1. Stock on hand
		for _, row := range in.StockOnHand {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO stock_on_hand (product_id, stock_on_hand, ospo, ospr, osrl) VALUES ($1, $2, $3, $4, $5)",
				row.ProductID, row.StockOnHand, row.OSPO, row.OSPR, row.OSRL); err != nil {
				return fmt.Errorf("failed to insert stock_on_hand %s: %w", row.ProductID, err)
			}
		}

		// 2. Sales forecast
		for _, row := range in.SalesForecast {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO sales_forecast (product_id, avg_daily_sales) VALUES ($1, $2)",
				row.ProductID, row.AvgDailySales); err != nil {
				return fmt.Errorf("failed to insert sales_forecast %s: %w", row.ProductID, err)
			}
		}

		// 3. Safety stock
		for _, row := range in.SafetyStock {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO safety_stock (product_id, doi_policy) VALUES ($1, $2)",
				row.ProductID, row.DOIPolicy); err != nil {
				return fmt.Errorf("failed to insert safety_stock %s: %w", row.ProductID, err)
			}
		}

		// 4. Vendor schedule
		for _, row := range in.VendorSchedule {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO vendor_schedule (product_id, ideal_submission_day, lead_time_days) VALUES ($1, $2, $3)",
				row.ProductID, row.SubmissionDay, row.LeadTimeDays); err != nil {
				return fmt.Errorf("failed to insert vendor_schedule %s: %w", row.ProductID, err)
			}
		}
		return nil
	})
}

func toInputs(soh []stockOnHandRow, sales []salesForecastRow, safety []safetyStockRow, schedule []vendorScheduleRow) replenishment.Inputs {
	in := replenishment.Inputs{
		StockOnHand:    make([]domain.StockOnHandRow, 0, len(soh)),
		SalesForecast:  make([]domain.SalesForecastRow, 0, len(sales)),
		SafetyStock:    make([]domain.SafetyStockRow, 0, len(safety)),
		VendorSchedule: make([]domain.VendorScheduleRow, 0, len(schedule)),
	}
	for _, r := range soh {
		in.StockOnHand = append(in.StockOnHand, domain.StockOnHandRow{
			ProductID:   r.ProductID,
			StockOnHand: nullFloat(r.StockOnHand),
			OSPO:        nullFloat(r.OSPO),
			OSPR:        nullFloat(r.OSPR),
			OSRL:        nullFloat(r.OSRL),
		})
	}
	for _, r := range sales {
		in.SalesForecast = append(in.SalesForecast, domain.SalesForecastRow{ProductID: r.ProductID, AvgDailySales: nullFloat(r.AvgDailySales)})
	}
	for _, r := range safety {
		in.SafetyStock = append(in.SafetyStock, domain.SafetyStockRow{ProductID: r.ProductID, DOIPolicy: nullFloat(r.DOIPolicy)})
	}
	for _, r := range schedule {
		row := domain.VendorScheduleRow{ProductID: r.ProductID, SubmissionDay: r.SubmissionDay.String}
		if r.LeadTimeDays.Valid {
			lead := int(r.LeadTimeDays.Int64)
			row.LeadTimeDays = &lead
		}
		in.VendorSchedule = append(in.VendorSchedule, row)
	}
	return in
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var _ dataset.Source = (*DatasetRepository)(nil)
