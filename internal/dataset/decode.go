package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/andresuchdata/rlqty/internal/domain"
	"github.com/andresuchdata/rlqty/internal/pipeline/replenishment"
)

// ReadCSV reads all records of a CSV stream, header included.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Decode maps raw records (header first) of the given kind into inputs.
// Only the slice for that kind is filled.
func Decode(kind Kind, records [][]string, into *replenishment.Inputs) error {
	if len(records) == 0 {
		return fmt.Errorf("%s: file is empty", kind)
	}
	cols := indexHeader(records[0])
	body := records[1:]

	switch kind {
	case KindStockOnHand:
		rows, err := decodeStockOnHand(cols, body)
		into.StockOnHand = rows
		return err
	case KindSalesForecast:
		rows, err := decodeSalesForecast(cols, body)
		into.SalesForecast = rows
		return err
	case KindSafetyStock:
		rows, err := decodeSafetyStock(cols, body)
		into.SafetyStock = rows
		return err
	case KindVendorSchedule:
		rows, err := decodeVendorSchedule(cols, body)
		into.VendorSchedule = rows
		return err
	}
	return fmt.Errorf("unknown dataset kind %q", kind)
}

func decodeStockOnHand(cols columnIndex, body [][]string) ([]domain.StockOnHandRow, error) {
	if err := cols.require(KindStockOnHand, "product_id", "stock_on_hand"); err != nil {
		return nil, err
	}

	rows := make([]domain.StockOnHandRow, 0, len(body))
	for i, rec := range body {
		if isBlank(rec) {
			continue
		}
		row := domain.StockOnHandRow{ProductID: cols.get(rec, "product_id")}
		var err error
		if row.StockOnHand, err = parseNonNegative(cols.get(rec, "stock_on_hand")); err != nil {
			return nil, rowError(KindStockOnHand, i, "stock_on_hand", err)
		}
		if row.OSPO, err = parseNonNegative(cols.get(rec, "ospo")); err != nil {
			return nil, rowError(KindStockOnHand, i, "ospo", err)
		}
		if row.OSPR, err = parseNonNegative(cols.get(rec, "ospr")); err != nil {
			return nil, rowError(KindStockOnHand, i, "ospr", err)
		}
		if row.OSRL, err = parseNonNegative(cols.get(rec, "osrl")); err != nil {
			return nil, rowError(KindStockOnHand, i, "osrl", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeSalesForecast(cols columnIndex, body [][]string) ([]domain.SalesForecastRow, error) {
	if err := cols.require(KindSalesForecast, "product_id", "avg_sales"); err != nil {
		return nil, err
	}

	rows := make([]domain.SalesForecastRow, 0, len(body))
	for i, rec := range body {
		if isBlank(rec) {
			continue
		}
		avg, err := parseNonNegative(cols.get(rec, "avg_sales"))
		if err != nil {
			return nil, rowError(KindSalesForecast, i, "avg_sales", err)
		}
		rows = append(rows, domain.SalesForecastRow{ProductID: cols.get(rec, "product_id"), AvgDailySales: avg})
	}
	return rows, nil
}

func decodeSafetyStock(cols columnIndex, body [][]string) ([]domain.SafetyStockRow, error) {
	if err := cols.require(KindSafetyStock, "product_id", "doi_policy"); err != nil {
		return nil, err
	}

	rows := make([]domain.SafetyStockRow, 0, len(body))
	for i, rec := range body {
		if isBlank(rec) {
			continue
		}
		doi, err := parseNonNegative(cols.get(rec, "doi_policy"))
		if err != nil {
			return nil, rowError(KindSafetyStock, i, "doi_policy", err)
		}
		rows = append(rows, domain.SafetyStockRow{ProductID: cols.get(rec, "product_id"), DOIPolicy: doi})
	}
	return rows, nil
}

func decodeVendorSchedule(cols columnIndex, body [][]string) ([]domain.VendorScheduleRow, error) {
	if err := cols.require(KindVendorSchedule, "product_id", "ideal_submission_day", "lead_time_days"); err != nil {
		return nil, err
	}

	rows := make([]domain.VendorScheduleRow, 0, len(body))
	for i, rec := range body {
		if isBlank(rec) {
			continue
		}
		productID := cols.get(rec, "product_id")
		raw := cols.get(rec, "lead_time_days")
		lead, err := parseLeadTime(raw)
		if err != nil {
			return nil, &domain.InvalidScheduleError{
				ProductID: productID,
				Field:     "lead_time_days",
				Value:     raw,
				Reason:    fmt.Sprintf("row %d: %v", i+2, err),
			}
		}
		rows = append(rows, domain.VendorScheduleRow{
			ProductID:     productID,
			SubmissionDay: cols.get(rec, "ideal_submission_day"),
			LeadTimeDays:  lead,
		})
	}
	return rows, nil
}

// parseQuantity parses a numeric cell; blank cells are absent (nil).
func parseQuantity(v string) (*float64, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" || strings.EqualFold(v, "nan") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", v)
	}
	return &f, nil
}

// parseNonNegative is parseQuantity for stock, outstanding and rate cells,
// none of which can go below zero in a source file.
func parseNonNegative(v string) (*float64, error) {
	q, err := parseQuantity(v)
	if err != nil || q == nil {
		return q, err
	}
	if *q < 0 {
		return nil, fmt.Errorf("negative quantity %q", strings.TrimSpace(v))
	}
	return q, nil
}

// parseLeadTime parses a whole number of days; "7" and "7.0" are both accepted.
func parseLeadTime(v string) (*int, error) {
	q, err := parseQuantity(v)
	if err != nil || q == nil {
		return nil, err
	}
	if *q != math.Trunc(*q) {
		return nil, fmt.Errorf("lead time %q is not a whole number of days", v)
	}
	n := int(*q)
	return &n, nil
}

func rowError(kind Kind, i int, field string, err error) error {
	// +2: header row and 1-based numbering
	return fmt.Errorf("%s row %d: %s: %w", kind, i+2, field, err)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
