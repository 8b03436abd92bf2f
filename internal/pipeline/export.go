package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/rlqty/internal/domain"
)

const dateLayout = "2006-01-02"

// ResultHeader is the column order of the results file.
var ResultHeader = []string{"cycle", "product_id", "order_date", "next_soh", "max_stock", "rl_qty"}

// SkippedHeader is the column order of the skipped products file.
var SkippedHeader = []string{"product_id", "field", "reason"}

// WriteResultsCSV writes one line per cycle result, header first.
func WriteResultsCSV(w io.Writer, rows []domain.CycleResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ResultHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Cycle),
			r.ProductID,
			r.OrderDate.Format(dateLayout),
			formatQuantity(r.NextSOH),
			formatQuantity(r.MaxStock),
			formatQuantity(r.RLQty),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSkippedCSV writes the skipped products, header first.
func WriteSkippedCSV(w io.Writer, skipped []domain.SkippedProduct) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(SkippedHeader); err != nil {
		return err
	}
	for _, s := range skipped {
		if err := writer.Write([]string{s.ProductID, s.Field, s.Reason}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// EncodeResultsCSV renders the results file in memory.
func EncodeResultsCSV(rows []domain.CycleResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteReportCSV writes the results table and, when products were skipped, a
// blank line followed by the skipped table.
func WriteReportCSV(w io.Writer, report *domain.Report) error {
	if err := WriteResultsCSV(w, report.Rows); err != nil {
		return err
	}
	if len(report.Skipped) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return WriteSkippedCSV(w, report.Skipped)
}

// EncodeReportCSV renders WriteReportCSV in memory.
func EncodeReportCSV(report *domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteReportCSV(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReportFiles are the paths written by WriteReportFiles.
type ReportFiles struct {
	Results string
	Skipped string
}

// WriteReportFiles writes the results and skipped files of a report into dir,
// named after the reference date and run id.
func WriteReportFiles(dir string, report *domain.Report) (ReportFiles, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ReportFiles{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := ReportBaseName(report)
	files := ReportFiles{
		Results: filepath.Join(dir, base+".csv"),
		Skipped: filepath.Join(dir, base+"_skipped.csv"),
	}

	if err := writeFile(files.Results, func(w io.Writer) error { return WriteResultsCSV(w, report.Rows) }); err != nil {
		return ReportFiles{}, err
	}
	if err := writeFile(files.Skipped, func(w io.Writer) error { return WriteSkippedCSV(w, report.Skipped) }); err != nil {
		return ReportFiles{}, err
	}
	return files, nil
}

// ReportBaseName is rl_qty_<yyyymmdd>_<run id prefix>.
func ReportBaseName(report *domain.Report) string {
	id := report.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("rl_qty_%s_%s", report.Options.ReferenceDate.Format("20060102"), id)
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// formatQuantity prints the shortest decimal that round-trips to v.
func formatQuantity(v float64) string {
	return decimal.NewFromFloat(v).String()
}
