package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFiles struct {
	files    []*File
	contents map[string]string
}

func (f fakeFiles) ListFiles(_ context.Context, _ string) ([]*File, error) {
	return f.files, nil
}

func (f fakeFiles) DownloadFile(_ context.Context, fileID string, w io.Writer) error {
	content, ok := f.contents[fileID]
	if !ok {
		return fmt.Errorf("not found: %s", fileID)
	}
	_, err := io.WriteString(w, content)
	return err
}

func TestDownloader_DownloadFolder(t *testing.T) {
	svc := fakeFiles{
		files: []*File{
			{ID: "1", Name: "stock_on_hand.csv"},
			{ID: "2", Name: "vendor_schedule.XLSX"},
			{ID: "3", Name: "notes.pdf"},
			{ID: "4", Name: "archive.csv", MimeType: folderMimeType},
		},
		contents: map[string]string{"1": "product_id\n", "2": "PK"},
	}
	dir := filepath.Join(t.TempDir(), "nested")

	paths, err := (&Downloader{service: svc}).DownloadFolder(context.Background(), "folder", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "stock_on_hand.csv"),
		filepath.Join(dir, "vendor_schedule.XLSX"),
	}, paths)

	got, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "product_id\n", string(got))
}

func TestDownloader_Errors(t *testing.T) {
	d := &Downloader{service: fakeFiles{files: []*File{{ID: "9", Name: "sales.csv"}}}}

	_, err := d.DownloadFolder(context.Background(), "folder", "")
	assert.Error(t, err)

	_, err = d.DownloadFolder(context.Background(), "folder", t.TempDir())
	assert.ErrorContains(t, err, "sales.csv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.DownloadFolder(ctx, "folder", t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `Sales\'s plan`, escapeQuery("Sales's plan"))
}
