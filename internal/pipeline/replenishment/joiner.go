package replenishment

import (
	"strings"

	"github.com/andresuchdata/rlqty/internal/domain"
)

// Dataset names used in errors and logs
const (
	DatasetStockOnHand    = "stock_on_hand"
	DatasetSalesForecast  = "sales_forecast"
	DatasetSafetyStock    = "safety_stock"
	DatasetVendorSchedule = "vendor_schedule"
)

// Join left-joins sales forecast, safety stock and vendor schedule onto the
// stock-on-hand rows by product id. Output order follows the SOH rows.
func Join(ds domain.Datasets) ([]domain.UnifiedProductRecord, error) {
	if len(ds.StockOnHand) == 0 {
		return nil, &domain.EmptyInputError{Dataset: DatasetStockOnHand}
	}

	sales, err := indexRows(DatasetSalesForecast, ds.SalesForecast, func(r domain.SalesForecastRow) string { return r.ProductID })
	if err != nil {
		return nil, err
	}
	safety, err := indexRows(DatasetSafetyStock, ds.SafetyStock, func(r domain.SafetyStockRow) string { return r.ProductID })
	if err != nil {
		return nil, err
	}
	vendors, err := indexRows(DatasetVendorSchedule, ds.VendorSchedule, func(r domain.VendorScheduleRecord) string { return r.ProductID })
	if err != nil {
		return nil, err
	}

	records := make([]domain.UnifiedProductRecord, 0, len(ds.StockOnHand))
	seen := make(map[string]struct{}, len(ds.StockOnHand))

	for _, soh := range ds.StockOnHand {
		productID := strings.TrimSpace(soh.ProductID)
		if productID == "" {
			return nil, &domain.MissingFieldError{Field: "product_id", Reason: "stock on hand row without product_id"}
		}
		if _, dup := seen[productID]; dup {
			return nil, &domain.DuplicateKeyError{Dataset: DatasetStockOnHand, ProductID: productID}
		}
		seen[productID] = struct{}{}

		rec := domain.UnifiedProductRecord{
			ProductID:   productID,
			StockOnHand: soh.StockOnHand,
			OSPO:        soh.OSPO,
			OSPR:        soh.OSPR,
			OSRL:        soh.OSRL,
		}

		if s, ok := sales[productID]; ok {
			rec.InSalesForecast = true
			rec.AvgDailySales = s.AvgDailySales
		}
		if s, ok := safety[productID]; ok {
			rec.InSafetyStock = true
			rec.DOIPolicy = s.DOIPolicy
		}
		if v, ok := vendors[productID]; ok {
			rec.Schedule = &v
		}

		// Outstanding quantities default to zero for SOH products; SOH itself does not.
		if soh.StockOnHand != nil {
			current := *soh.StockOnHand + valueOrZero(soh.OSPO) + valueOrZero(soh.OSPR) + valueOrZero(soh.OSRL)
			rec.CurrentStock = &current
		}

		records = append(records, rec)
	}

	return records, nil
}

func indexRows[T any](dataset string, rows []T, key func(T) string) (map[string]T, error) {
	index := make(map[string]T, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(key(row))
		if id == "" {
			return nil, &domain.MissingFieldError{
				Field:  "product_id",
				Reason: strings.ReplaceAll(dataset, "_", " ") + " row without product_id",
			}
		}
		if _, dup := index[id]; dup {
			return nil, &domain.DuplicateKeyError{Dataset: dataset, ProductID: id}
		}
		index[id] = row
	}
	return index, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
