package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// fileService is the part of Service the downloader needs.
type fileService interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// Downloader pulls dataset files out of a Drive folder.
type Downloader struct {
	service fileService
}

// NewDownloader creates a new Downloader.
func NewDownloader(s *Service) *Downloader {
	return &Downloader{service: s}
}

// DownloadFolder downloads all non-trashed CSV and XLSX files of folderID into
// dir and returns their local paths. Workbooks are kept as-is; the dataset
// readers understand both formats.
func (d *Downloader) DownloadFolder(ctx context.Context, folderID, dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.service.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ext := strings.ToLower(filepath.Ext(f.Name))
		if f.MimeType == folderMimeType || (ext != ".csv" && ext != ".xlsx") {
			continue
		}

		localPath := filepath.Join(dir, filepath.Base(f.Name))
		if err := d.downloadTo(ctx, f, localPath); err != nil {
			return nil, err
		}
		log.Debug().Str("file", f.Name).Str("path", localPath).Msg("Downloaded drive file")
		localPaths = append(localPaths, localPath)
	}

	return localPaths, nil
}

func (d *Downloader) downloadTo(ctx context.Context, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer out.Close()

	if err := d.service.DownloadFile(ctx, f.ID, out); err != nil {
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return nil
}
