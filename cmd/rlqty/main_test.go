package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/rlqty/internal/dataset"
	"github.com/andresuchdata/rlqty/internal/domain"
)

func writeInputs(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"stock_on_hand.csv":   "product_id,stock_on_hand,ospo,ospr,osrl\nP1,100,0,0,0\nP2,50,,,\n",
		"sales_forecast.csv":  "product_id,avg_sales\nP1,10\n",
		"safety_stock.csv":    "product_id,doi_policy\nP1,5\nP2,3\n",
		"vendor_schedule.csv": "product_id,ideal_submission_day,lead_time_days\nP1,Monday,7\nP2,Friday,3\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("APP_DATA_DIR", t.TempDir())
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"rlqty", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestCalculate_CSV(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)
	outDir := t.TempDir()

	out, err := run(t, "calculate", "--dir", dir, "--reference-date", "2025-04-07", "--cycles", "3", "--out-dir", outDir)
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewBufferString(out))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, []string{"cycle", "product_id", "order_date", "next_soh", "max_stock", "rl_qty"}, records[0])
	assert.Equal(t, "P1", records[1][1])
	assert.Equal(t, "2025-04-14", records[1][2])
	assert.Equal(t, []string{"product_id", "field", "reason"}, records[4])
	assert.Equal(t, []string{"P2", "avg_sales", "missing sales data"}, records[5])

	files, err := filepath.Glob(filepath.Join(outDir, "rl_qty_20250407_*.csv"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestCalculate_OutputFile(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)
	target := filepath.Join(t.TempDir(), "report.json")

	out, err := run(t, "calculate", "--dir", dir, "--reference-date", "2025-04-07", "--format", "json", "--output", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"product_id": "P1"`)
	assert.Contains(t, string(data), `"avg_sales"`)
}

func TestCalculate_Errors(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)

	_, err := run(t, "calculate", "--dir", dir, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "calculate", "--dir", dir, "--source", "ftp")
	assert.ErrorContains(t, err, "unknown source")

	_, err = run(t, "calculate", "--dir", dir, "--cycles", "0")
	assert.ErrorIs(t, err, domain.ErrInvalidCycleCount)
	assert.Equal(t, 2, exitCode(err))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor_schedule.csv"), []byte("product_id,ideal_submission_day,lead_time_days\nP1,Monday,seven\n"), 0o644))
	_, err = run(t, "calculate", "--dir", dir)
	assert.ErrorIs(t, err, dataset.ErrMalformedInput)
	assert.Equal(t, 2, exitCode(err))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)

	out, err := run(t, "resolve", "--vendor-schedule", filepath.Join(dir, "vendor_schedule.csv"), "--reference-date", "2025-04-07")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"P1", "Monday", "7", "2025-04-14", "2025-04-21", "2025-04-28", "14"}, records[1])
	assert.Equal(t, []string{"P2", "Friday", "3", "2025-04-18", "2025-04-21", "2025-04-24", "6"}, records[2])
}
