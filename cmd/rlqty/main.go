package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/rlqty/internal/config"
	"github.com/andresuchdata/rlqty/internal/dataset"
	"github.com/andresuchdata/rlqty/internal/domain"
	"github.com/andresuchdata/rlqty/internal/repository/postgres"
	"github.com/andresuchdata/rlqty/pkg/logger"
)

type contextKey string

const dbKey contextKey = "db"

func plannerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "reference-date",
			Usage:   "Reference date as YYYY-MM-DD (default: today)",
			EnvVars: []string{"PLANNER_REFERENCE_DATE"},
		},
		&cli.IntFlag{
			Name:    "cycles",
			Usage:   "Number of replenishment cycles to project",
			EnvVars: []string{"PLANNER_CYCLES"},
		},
		&cli.StringFlag{
			Name:    "elapsed-mode",
			Usage:   "Days consumed between cycles: coverage or lead_time",
			EnvVars: []string{"PLANNER_ELAPSED_MODE"},
		},
		&cli.BoolFlag{
			Name:    "clamp-negative",
			Usage:   "Floor negative replenishment quantities at zero",
			EnvVars: []string{"PLANNER_CLAMP_NEGATIVE"},
		},
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Usage:   "Where to read datasets from: local, s3, drive or postgres",
			Value:   sourceLocal,
			EnvVars: []string{"RLQTY_SOURCE"},
		},
		&cli.StringFlag{
			Name:    "dir",
			Usage:   "Directory holding stock_on_hand, sales_forecast, safety_stock and vendor_schedule files",
			Value:   ".",
			EnvVars: []string{"RLQTY_INPUT_DIR"},
		},
		&cli.StringFlag{Name: "stock-on-hand", Usage: "Stock on hand file, overrides --dir lookup"},
		&cli.StringFlag{Name: "sales-forecast", Usage: "Sales forecast file, overrides --dir lookup"},
		&cli.StringFlag{Name: "safety-stock", Usage: "Safety stock file, overrides --dir lookup"},
		&cli.StringFlag{Name: "vendor-schedule", Usage: "Vendor schedule file, overrides --dir lookup"},
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "Object key prefix for --source s3",
			EnvVars: []string{"STORAGE_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "folder-id",
			Usage:   "Drive folder id for --source drive",
			EnvVars: []string{"DRIVE_FOLDER_ID"},
		},
	}
}

func newDBFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dir",
			Usage:   "Directory holding the four dataset files",
			Value:   ".",
			EnvVars: []string{"RLQTY_INPUT_DIR"},
		},
		&cli.BoolFlag{
			Name:  "create-schema",
			Usage: "Create the dataset tables if they do not exist",
			Value: true,
		},
	}
}

func initDB(c *cli.Context) error {
	db, err := postgres.NewDB(&config.Load().Database)
	if err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func setup(c *cli.Context) error {
	cfg := config.Load()
	logger.SetFormat(cfg.Log.Format)
	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger.SetLevel(level)
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "rlqty",
		Usage: "Project multi-cycle replenishment quantities",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:  "calculate",
				Usage: "Compute replenishment quantities for every product and cycle",
				Flags: append(append(sourceFlags(), plannerFlags()...),
					&cli.StringFlag{
						Name:    "format",
						Usage:   "Output format: csv or json",
						Value:   formatCSV,
						EnvVars: []string{"RLQTY_FORMAT"},
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the result table here instead of stdout",
					},
					&cli.StringFlag{
						Name:    "out-dir",
						Usage:   "Also write dated result and skipped-product CSV files into this directory",
						EnvVars: []string{"APP_DATA_DIR"},
					},
					&cli.StringFlag{
						Name:  "upload-key",
						Usage: "Upload the result CSV to object storage under this key",
					},
				),
				Action: calculateAction,
			},
			{
				Name:  "resolve",
				Usage: "Print the resolved order calendar of a vendor schedule file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "reference-date",
						Usage:   "Reference date as YYYY-MM-DD (default: today)",
						EnvVars: []string{"PLANNER_REFERENCE_DATE"},
					},
					&cli.StringFlag{
						Name:     "vendor-schedule",
						Usage:    "Vendor schedule CSV or XLSX file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: csv or json",
						Value: formatCSV,
					},
				},
				Action: resolveAction,
			},
			{
				Name:   "import-db",
				Usage:  "Load the four dataset files from a directory into Postgres",
				Flags:  newDBFlags(),
				Before: initDB,
				After:  closeDB,
				Action: importAction,
			},
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Could not load .env file")
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Error().Err(err).Msg("rlqty failed")
		os.Exit(exitCode(err))
	}
}

// exitCode separates invalid input data (2) from operational failures (1).
func exitCode(err error) int {
	if domain.IsAbort(err) || errors.Is(err, dataset.ErrMalformedInput) {
		return 2
	}
	return 1
}
