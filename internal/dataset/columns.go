package dataset

import (
	"fmt"
	"strings"
)

// Kind identifies one of the four planner inputs
type Kind string

const (
	KindStockOnHand    Kind = "stock_on_hand"
	KindSalesForecast  Kind = "sales_forecast"
	KindSafetyStock    Kind = "safety_stock"
	KindVendorSchedule Kind = "vendor_schedule"
)

// Kinds lists every input kind in load order.
var Kinds = []Kind{KindStockOnHand, KindSalesForecast, KindSafetyStock, KindVendorSchedule}

// ParseKind accepts the kind name or its common short form.
func ParseKind(s string) (Kind, error) {
	switch normalizeColumnName(s) {
	case "stockonhand", "soh", "referencesoh":
		return KindStockOnHand, nil
	case "salesforecast", "sales":
		return KindSalesForecast, nil
	case "safetystock", "safety":
		return KindSafetyStock, nil
	case "vendorschedule", "vendor", "vendordetails":
		return KindVendorSchedule, nil
	}
	return "", fmt.Errorf("unknown dataset kind %q", s)
}

// semantic field -> accepted column headers
var columnAliases = map[string][]string{
	"product_id":           {"product_id", "product", "sku", "item_id"},
	"stock_on_hand":        {"stock_wh", "stock_on_hand", "soh", "stock"},
	"ospo":                 {"ospo_qty", "ospo"},
	"ospr":                 {"ospr_qty", "ospr"},
	"osrl":                 {"osrl_qty", "osrl"},
	"avg_sales":            {"avg_sales", "avg_daily_sales", "daily_sales"},
	"doi_policy":           {"doi_policy", "doi"},
	"ideal_submission_day": {"Ideal RL submission", "ideal_submission_day", "submission_day", "order_day"},
	"lead_time_days":       {"JI", "lead_time_days", "lead_time"},
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	// BOM from spreadsheet exports
	name = strings.TrimPrefix(name, "\ufeff")
	return columnNameSanitizer.Replace(name)
}

// columnIndex maps semantic fields to positions in a header row
type columnIndex map[string]int

func indexHeader(header []string) columnIndex {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeColumnName(h)
		if _, ok := normalized[key]; !ok {
			normalized[key] = i
		}
	}

	idx := make(columnIndex, len(columnAliases))
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := normalized[normalizeColumnName(alias)]; ok {
				idx[field] = i
				break
			}
		}
	}
	return idx
}

func (ci columnIndex) require(kind Kind, fields ...string) error {
	var missing []string
	for _, f := range fields {
		if _, ok := ci[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required columns %s", kind, strings.Join(missing, ", "))
	}
	return nil
}

func (ci columnIndex) get(record []string, field string) string {
	i, ok := ci[field]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
