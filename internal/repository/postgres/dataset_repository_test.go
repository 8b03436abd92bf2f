package postgres

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInputs_NullsBecomeAbsent(t *testing.T) {
	in := toInputs(
		[]stockOnHandRow{{
			ProductID:   "P1",
			StockOnHand: sql.NullFloat64{Float64: 100, Valid: true},
			OSPO:        sql.NullFloat64{Float64: 0, Valid: true},
		}},
		[]salesForecastRow{{ProductID: "P1"}},
		[]safetyStockRow{{ProductID: "P1", DOIPolicy: sql.NullFloat64{Float64: 5, Valid: true}}},
		[]vendorScheduleRow{
			{ProductID: "P1", SubmissionDay: sql.NullString{String: "Monday", Valid: true}, LeadTimeDays: sql.NullInt64{Int64: 7, Valid: true}},
			{ProductID: "P2"},
		},
	)

	require.Len(t, in.StockOnHand, 1)
	assert.Equal(t, 100.0, *in.StockOnHand[0].StockOnHand)
	require.NotNil(t, in.StockOnHand[0].OSPO)
	assert.Equal(t, 0.0, *in.StockOnHand[0].OSPO)
	assert.Nil(t, in.StockOnHand[0].OSPR)

	assert.Nil(t, in.SalesForecast[0].AvgDailySales)
	assert.Equal(t, 5.0, *in.SafetyStock[0].DOIPolicy)

	require.Len(t, in.VendorSchedule, 2)
	assert.Equal(t, 7, *in.VendorSchedule[0].LeadTimeDays)
	assert.Equal(t, "", in.VendorSchedule[1].SubmissionDay)
	assert.Nil(t, in.VendorSchedule[1].LeadTimeDays)
}
