package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/rlqty/internal/config"
	"github.com/andresuchdata/rlqty/internal/dataset"
	"github.com/andresuchdata/rlqty/internal/domain"
	"github.com/andresuchdata/rlqty/internal/pipeline"
	"github.com/andresuchdata/rlqty/internal/pipeline/replenishment"
	"github.com/andresuchdata/rlqty/internal/repository/postgres"
)

const (
	formatCSV  = "csv"
	formatJSON = "json"
)

// plannerOptions applies flags over the PLANNER_* configuration.
func plannerOptions(c *cli.Context, cfg config.PlannerConfig) (domain.PlanOptions, error) {
	if c.IsSet("reference-date") {
		cfg.ReferenceDate = c.String("reference-date")
	}
	if c.IsSet("cycles") {
		cfg.Cycles = c.Int("cycles")
	}
	if c.IsSet("elapsed-mode") {
		cfg.ElapsedMode = c.String("elapsed-mode")
	}
	if c.IsSet("clamp-negative") {
		cfg.ClampNegative = c.Bool("clamp-negative")
	}
	return cfg.Options(time.Now())
}

func checkFormat(format string) error {
	if format != formatCSV && format != formatJSON {
		return fmt.Errorf("unknown format %q, want csv or json", format)
	}
	return nil
}

func calculateAction(c *cli.Context) error {
	cfg := config.Load()
	format := c.String("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	opts, err := plannerOptions(c, cfg.Planner)
	if err != nil {
		return err
	}

	src, cleanup, err := openSource(c, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := pipeline.NewOrchestrator(nil).Run(c.Context, src, opts)
	if err != nil {
		return err
	}

	if err := writeOutput(c, func(w io.Writer) error { return encodeReport(w, report, format) }); err != nil {
		return err
	}

	if dir := c.String("out-dir"); dir != "" {
		files, err := pipeline.WriteReportFiles(dir, report)
		if err != nil {
			return err
		}
		log.Info().Str("results", files.Results).Str("skipped", files.Skipped).Msg("Report files written")
	}

	if key := c.String("upload-key"); key != "" {
		store, err := newObjectStorage(cfg.Storage)
		if err != nil {
			return err
		}
		data, err := pipeline.EncodeResultsCSV(report.Rows)
		if err != nil {
			return err
		}
		if err := store.UploadObject(c.Context, key, data, "text/csv"); err != nil {
			return err
		}
		log.Info().Str("key", key).Int("bytes", len(data)).Msg("Report uploaded")
	}

	if len(report.Skipped) > 0 {
		log.Warn().Int("skipped", len(report.Skipped)).Msg("Some products were left out of the plan")
	}
	return nil
}

func encodeReport(w io.Writer, report *domain.Report, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return pipeline.WriteReportCSV(w, report)
}

// writeOutput sends to --output, or to the app writer when unset.
func writeOutput(c *cli.Context, write func(io.Writer) error) error {
	path := c.String("output")
	if path == "" || path == "-" {
		return write(c.App.Writer)
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func resolveAction(c *cli.Context) error {
	format := c.String("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	ref, err := config.ParseReferenceDate(c.String("reference-date"), time.Now())
	if err != nil {
		return err
	}

	path := c.String("vendor-schedule")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	records, err := dataset.ReadRecords(path, content)
	if err != nil {
		return fmt.Errorf("%w: %w", dataset.ErrMalformedInput, err)
	}
	var in replenishment.Inputs
	if err := dataset.Decode(dataset.KindVendorSchedule, records, &in); err != nil {
		return fmt.Errorf("%w: %w", dataset.ErrMalformedInput, err)
	}

	calendar, err := replenishment.ResolveSchedule(in.VendorSchedule, ref)
	if err != nil {
		return err
	}

	if format == formatJSON {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(calendar)
	}

	w := csv.NewWriter(c.App.Writer)
	if err := w.Write([]string{"product_id", "ideal_submission_day", "lead_time_days", "order_date", "inbound_date", "next_inbound_date", "coverage_days"}); err != nil {
		return err
	}
	for _, r := range calendar {
		if err := w.Write([]string{
			r.ProductID,
			r.SubmissionDay,
			strconv.Itoa(r.LeadTimeDays),
			r.OrderDate.Format(config.ReferenceDateLayout),
			r.InboundDate.Format(config.ReferenceDateLayout),
			r.NextInboundDate.Format(config.ReferenceDateLayout),
			strconv.FormatFloat(r.CoverageDayCount(), 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func importAction(c *cli.Context) error {
	db, ok := c.Context.Value(dbKey).(*postgres.DB)
	if !ok {
		return fmt.Errorf("database connection not initialised")
	}

	b, err := dataset.DirBundle(c.String("dir"), nil)
	if err != nil {
		return err
	}
	loaded, err := b.Load(c.Context)
	if err != nil {
		return err
	}

	repo := postgres.NewDatasetRepository(db)
	if c.Bool("create-schema") {
		if err := repo.EnsureSchema(c.Context); err != nil {
			return err
		}
	}
	if err := repo.Replace(c.Context, loaded.Inputs); err != nil {
		return err
	}

	log.Info().
		Int("stock_on_hand", len(loaded.Inputs.StockOnHand)).
		Int("sales_forecast", len(loaded.Inputs.SalesForecast)).
		Int("safety_stock", len(loaded.Inputs.SafetyStock)).
		Int("vendor_schedule", len(loaded.Inputs.VendorSchedule)).
		Msg("Datasets imported")
	return nil
}
