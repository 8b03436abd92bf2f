package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/rlqty/internal/domain"
)

func TestWriteResultsCSV(t *testing.T) {
	a, b := 0.1, 0.2
	rows := []domain.CycleResult{
		{Cycle: 1, ProductID: "P1", OrderDate: time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC), NextSOH: -40, MaxStock: 190, RLQty: 230},
		{Cycle: 2, ProductID: "P1", OrderDate: time.Date(2025, time.April, 21, 0, 0, 0, 0, time.UTC), NextSOH: a + b, MaxStock: 62.7, RLQty: -90.125},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, rows))

	assert.Equal(t, strings.Join([]string{
		"cycle,product_id,order_date,next_soh,max_stock,rl_qty",
		"1,P1,2025-04-14,-40,190,230",
		"2,P1,2025-04-21,0.30000000000000004,62.7,-90.125",
		"",
	}, "\n"), buf.String())
}

func TestWriteResultsCSV_EmptyHasHeader(t *testing.T) {
	out, err := EncodeResultsCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "cycle,product_id,order_date,next_soh,max_stock,rl_qty\n", string(out))
}

func TestWriteSkippedCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSkippedCSV(&buf, []domain.SkippedProduct{
		{ProductID: "P2", Field: "calendar", Reason: "missing calendar data"},
	}))
	assert.Equal(t, "product_id,field,reason\nP2,calendar,missing calendar data\n", buf.String())
}

func TestWriteReportCSV(t *testing.T) {
	report := &domain.Report{
		Rows: []domain.CycleResult{
			{Cycle: 1, ProductID: "P1", OrderDate: time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC), NextSOH: -40, MaxStock: 190, RLQty: 230},
		},
		Skipped: []domain.SkippedProduct{
			{ProductID: "P2", Field: "calendar", Reason: "missing calendar data"},
		},
	}

	out, err := EncodeReportCSV(report)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"cycle,product_id,order_date,next_soh,max_stock,rl_qty",
		"1,P1,2025-04-14,-40,190,230",
		"",
		"product_id,field,reason",
		"P2,calendar,missing calendar data",
		"",
	}, "\n"), string(out))

	report.Skipped = nil
	out, err = EncodeReportCSV(report)
	require.NoError(t, err)
	assert.Equal(t, "cycle,product_id,order_date,next_soh,max_stock,rl_qty\n1,P1,2025-04-14,-40,190,230\n", string(out))
}

func TestWriteReportFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	report := &domain.Report{
		RunID:   "0b7e6a3c-1111-2222-3333-444455556666",
		Options: domain.PlanOptions{ReferenceDate: time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC)},
		Rows:    []domain.CycleResult{{Cycle: 1, ProductID: "P1"}},
	}

	files, err := WriteReportFiles(dir, report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rl_qty_20250407_0b7e6a3c.csv"), files.Results)

	content, err := os.ReadFile(files.Results)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "cycle,product_id"))

	content, err = os.ReadFile(files.Skipped)
	require.NoError(t, err)
	assert.Equal(t, "product_id,field,reason\n", string(content))
}
