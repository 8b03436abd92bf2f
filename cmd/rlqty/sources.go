package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/rlqty/internal/config"
	"github.com/andresuchdata/rlqty/internal/dataset"
	"github.com/andresuchdata/rlqty/internal/drive"
	"github.com/andresuchdata/rlqty/internal/repository/postgres"
	"github.com/andresuchdata/rlqty/internal/storage"
)

const (
	sourceLocal    = "local"
	sourceS3       = "s3"
	sourceDrive    = "drive"
	sourcePostgres = "postgres"
)

// openSource builds the dataset source selected by --source. The returned
// cleanup func is never nil.
func openSource(c *cli.Context, cfg *config.Config) (dataset.Source, func(), error) {
	noop := func() {}

	switch c.String("source") {
	case sourceLocal:
		b, err := dataset.DirBundle(c.String("dir"), map[dataset.Kind]string{
			dataset.KindStockOnHand:    c.String("stock-on-hand"),
			dataset.KindSalesForecast:  c.String("sales-forecast"),
			dataset.KindSafetyStock:    c.String("safety-stock"),
			dataset.KindVendorSchedule: c.String("vendor-schedule"),
		})
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil

	case sourceS3:
		store, err := newObjectStorage(cfg.Storage)
		if err != nil {
			return nil, noop, err
		}
		prefix := cfg.Storage.Prefix
		if c.IsSet("prefix") {
			prefix = c.String("prefix")
		}
		return dataset.ObjectSource{Store: store, Prefix: prefix}, noop, nil

	case sourceDrive:
		svc, err := drive.NewService(c.Context, cfg.Drive.CredentialsJSON, cfg.Drive.CredentialsFile)
		if err != nil {
			return nil, noop, err
		}
		folderID := c.String("folder-id")
		if folderID == "" && cfg.Drive.FolderPath != "" {
			folderID, err = svc.FindFolderByPath(c.Context, cfg.Drive.FolderPath)
			if err != nil {
				return nil, noop, err
			}
		}
		if folderID == "" {
			return nil, noop, fmt.Errorf("drive source needs --folder-id or DRIVE_FOLDER_PATH")
		}
		dir, err := os.MkdirTemp(cfg.App.DownloadDir, "drive-")
		if err != nil {
			return nil, noop, fmt.Errorf("create download dir: %w", err)
		}
		cleanup := func() {
			if err := os.RemoveAll(dir); err != nil {
				log.Warn().Err(err).Str("dir", dir).Msg("Failed to remove download dir")
			}
		}
		return dataset.DriveSource{Downloader: drive.NewDownloader(svc), FolderID: folderID, Dir: dir}, cleanup, nil

	case sourcePostgres:
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		return postgres.NewDatasetRepository(db), func() { db.Close() }, nil
	}

	return nil, noop, fmt.Errorf("unknown source %q, want local, s3, drive or postgres", c.String("source"))
}

func newObjectStorage(cfg config.StorageConfig) (*storage.MinioClient, error) {
	return storage.NewMinioClient(storage.MinioConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
}
