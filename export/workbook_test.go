package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"plantmaint/models"
	"plantmaint/stats"
)

func TestFilename(t *testing.T) {
	day := time.Date(2024, 3, 5, 17, 0, 0, 0, time.UTC)
	assert.Equal(t, "Dashboard_PCM_5-3-2024.xlsx", Filename("PCM", day))
	assert.Equal(t, "Dashboard_PCM_25-12-2023.xlsx", Filename("PCM", time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)))
}

func sampleSummary(now time.Time) stats.Summary {
	created := now.Add(-10 * time.Hour)
	closed := now
	orders := []models.ServiceOrder{
		{Status: models.OrderOpen, Technician: "Ana", ServiceType: "Elétrica", CreatedAt: &created},
		{Status: models.OrderClosed, Technician: "Ana", ServiceType: "Elétrica", CreatedAt: &created, UpdatedAt: &closed},
		{Status: models.OrderPending, Technician: "João", ServiceType: "Mecânica", CreatedAt: &created},
	}
	return stats.Summarize(orders, now)
}

func TestWriteWorkbook(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleSummary(now), Meta{SuiteName: "PCM", GeneratedAt: now, PeriodDays: 30}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetGeneral, SheetTechnicians, SheetStatus, SheetServices, SheetTrend}, f.GetSheetList())

	general, err := f.GetRows(SheetGeneral)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "Value"}, general[0])
	assert.Equal(t, []string{"Total Orders", "3"}, general[1])
	assert.Equal(t, []string{"Average Closure Time (hours)", "10"}, general[5])
	assert.Equal(t, []string{"Completion Rate (%)", "33"}, general[6])
	assert.Equal(t, []string{"Period", "Last 30 days"}, general[7])
	assert.Equal(t, []string{"Sector", "All sectors"}, general[8])

	techs, err := f.GetRows(SheetTechnicians)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Technician", "Completed", "Pending", "Open"},
		{"Ana", "1", "0", "1"},
		{"João", "0", "1", "0"},
	}, techs)

	status, err := f.GetRows(SheetStatus)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Status", "Orders"}, {"Open", "1"}, {"Pending", "1"}, {"Closed", "1"}}, status)

	services, err := f.GetRows(SheetServices)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Service Type", "Orders"}, {"Elétrica", "2"}, {"Mecânica", "1"}}, services)

	trend, err := f.GetRows(SheetTrend)
	require.NoError(t, err)
	require.Len(t, trend, 1+stats.TrendMonths)
	assert.Equal(t, []string{"Oct", "0"}, trend[1])
	assert.Equal(t, []string{"Mar", "3"}, trend[6])
}

func TestNoAverageShowsNA(t *testing.T) {
	f, err := Build(stats.Summarize(nil, time.Now()), Meta{SuiteName: "PCM"})
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(SheetGeneral, "B6")
	require.NoError(t, err)
	assert.Equal(t, "N/A", v)
}
