package replenishment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/rlqty/internal/domain"
)

func f(v float64) *float64 { return &v }

func vendorRecord(t *testing.T, productID, weekday string, lead int) domain.VendorScheduleRecord {
	t.Helper()
	recs, err := ResolveSchedule([]domain.VendorScheduleRow{
		{ProductID: productID, SubmissionDay: weekday, LeadTimeDays: intPtr(lead)},
	}, date(2025, time.April, 7))
	require.NoError(t, err)
	return recs[0]
}

func TestJoin_LeftJoinOnStockOnHand(t *testing.T) {
	ds := domain.Datasets{
		StockOnHand: []domain.StockOnHandRow{
			{ProductID: "P1", StockOnHand: f(100), OSPO: f(5), OSPR: f(3), OSRL: f(2)},
			{ProductID: "P2", StockOnHand: f(40)},
			{ProductID: "P3"},
		},
		SalesForecast: []domain.SalesForecastRow{
			{ProductID: "P2", AvgDailySales: f(0)},
			{ProductID: "P1", AvgDailySales: f(10)},
			{ProductID: "P404", AvgDailySales: f(1)},
		},
		SafetyStock: []domain.SafetyStockRow{
			{ProductID: "P1", DOIPolicy: f(5)},
			{ProductID: "P3", DOIPolicy: nil},
		},
		VendorSchedule: []domain.VendorScheduleRecord{
			vendorRecord(t, "P1", "Monday", 7),
		},
	}

	records, err := Join(ds)
	require.NoError(t, err)
	require.Len(t, records, 3)

	p1, p2, p3 := records[0], records[1], records[2]
	assert.Equal(t, []string{"P1", "P2", "P3"}, []string{p1.ProductID, p2.ProductID, p3.ProductID})

	require.NotNil(t, p1.CurrentStock)
	assert.Equal(t, 110.0, *p1.CurrentStock)
	assert.Equal(t, 10.0, *p1.AvgDailySales)
	assert.Equal(t, 5.0, *p1.DOIPolicy)
	require.NotNil(t, p1.Schedule)
	assert.Equal(t, 7, p1.Schedule.LeadTimeDays)

	// outstanding quantities count as zero, but stay absent on the record
	require.NotNil(t, p2.CurrentStock)
	assert.Equal(t, 40.0, *p2.CurrentStock)
	assert.Nil(t, p2.OSPO)
	assert.True(t, p2.InSalesForecast)
	require.NotNil(t, p2.AvgDailySales)
	assert.Equal(t, 0.0, *p2.AvgDailySales)
	assert.False(t, p2.InSafetyStock)
	assert.Nil(t, p2.DOIPolicy)
	assert.Nil(t, p2.Schedule)

	assert.Nil(t, p3.CurrentStock)
	assert.True(t, p3.InSafetyStock)
	assert.Nil(t, p3.DOIPolicy)
	assert.False(t, p3.InSalesForecast)
}

func TestJoin_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		ds      domain.Datasets
		dataset string
	}{
		{
			name: "duplicate in stock on hand",
			ds: domain.Datasets{StockOnHand: []domain.StockOnHandRow{
				{ProductID: "P1", StockOnHand: f(1)},
				{ProductID: " P1", StockOnHand: f(2)},
			}},
			dataset: DatasetStockOnHand,
		},
		{
			name: "duplicate in sales forecast",
			ds: domain.Datasets{
				StockOnHand:   []domain.StockOnHandRow{{ProductID: "P1", StockOnHand: f(1)}},
				SalesForecast: []domain.SalesForecastRow{{ProductID: "P7"}, {ProductID: "P7"}},
			},
			dataset: DatasetSalesForecast,
		},
		{
			name: "duplicate in safety stock",
			ds: domain.Datasets{
				StockOnHand: []domain.StockOnHandRow{{ProductID: "P1", StockOnHand: f(1)}},
				SafetyStock: []domain.SafetyStockRow{{ProductID: "P1"}, {ProductID: "P1"}},
			},
			dataset: DatasetSafetyStock,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Join(tc.ds)
			var dupErr *domain.DuplicateKeyError
			require.ErrorAs(t, err, &dupErr)
			assert.Equal(t, tc.dataset, dupErr.Dataset)
		})
	}

	t.Run("empty stock on hand", func(t *testing.T) {
		_, err := Join(domain.Datasets{SalesForecast: []domain.SalesForecastRow{{ProductID: "P1"}}})
		var emptyErr *domain.EmptyInputError
		require.ErrorAs(t, err, &emptyErr)
		assert.Equal(t, DatasetStockOnHand, emptyErr.Dataset)
	})

	blankIDs := []struct {
		name string
		ds   domain.Datasets
	}{
		{"stock on hand", domain.Datasets{StockOnHand: []domain.StockOnHandRow{{ProductID: "  "}}}},
		{"sales forecast", domain.Datasets{
			StockOnHand:   []domain.StockOnHandRow{{ProductID: "P1", StockOnHand: f(1)}},
			SalesForecast: []domain.SalesForecastRow{{ProductID: "", AvgDailySales: f(3)}},
		}},
		{"safety stock", domain.Datasets{
			StockOnHand: []domain.StockOnHandRow{{ProductID: "P1", StockOnHand: f(1)}},
			SafetyStock: []domain.SafetyStockRow{{ProductID: " ", DOIPolicy: f(2)}},
		}},
		{"vendor schedule", domain.Datasets{
			StockOnHand:    []domain.StockOnHandRow{{ProductID: "P1", StockOnHand: f(1)}},
			VendorSchedule: []domain.VendorScheduleRecord{{ProductID: ""}},
		}},
	}
	for _, tc := range blankIDs {
		t.Run("blank product id in "+tc.name, func(t *testing.T) {
			_, err := Join(tc.ds)
			var missErr *domain.MissingFieldError
			require.ErrorAs(t, err, &missErr)
			assert.Equal(t, "product_id", missErr.Field)
			assert.Contains(t, missErr.Reason, tc.name)
			assert.True(t, domain.IsAbort(err))
		})
	}
}
