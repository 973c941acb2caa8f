package handlers

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"plantmaint/config"
	"plantmaint/export"
	"plantmaint/metrics"
	"plantmaint/models"
	"plantmaint/services"
)

func TestDashboardSummaryHandler(t *testing.T) {
	h := newHarness(t)
	h.createOrder(newOrder("OS-001", "Carlos"))
	closed := h.createOrder(newOrder("OS-002", "Ana"))
	h.do(http.MethodPost, "/api/orders/status", h.admin, models.OrderStatusRequest{ID: closed.ID, Status: "closed"})
	h.createTask("Lubrificação", "Compressor 01", "Mensal", time.Now().AddDate(0, 0, -1))

	rec := h.do(http.MethodGet, "/api/dashboard?period=30", h.tech, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var d services.Dashboard
	decodeBody(t, rec, &d)
	assert.Equal(t, 2, d.Total)
	assert.Equal(t, 1, d.Open)
	assert.Equal(t, 1, d.Closed)
	assert.Equal(t, 50, d.CompletionRate)
	assert.Equal(t, 30, d.Query.PeriodDays)
	require.NotNil(t, d.Tasks)
	assert.Equal(t, 1, d.Tasks.Overdue)

	rec = h.do(http.MethodGet, "/api/dashboard?sector=Nenhum", h.tech, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &d)
	assert.Zero(t, d.Total)

	rec = h.do(http.MethodGet, "/api/dashboard?period=-1", h.tech, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardExportHandler(t *testing.T) {
	h := newHarness(t)
	h.createOrder(newOrder("OS-001", "Carlos"))

	rec := h.do(http.MethodGet, "/api/dashboard/export", h.tech, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	disposition := rec.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, `attachment; filename="Dashboard_PCM_`), disposition)
	assert.True(t, strings.HasSuffix(disposition, `.xlsx"`), disposition)
	assert.Equal(t, strconv.Itoa(rec.Body.Len()), rec.Header().Get("Content-Length"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{
		export.SheetGeneral, export.SheetTechnicians, export.SheetStatus, export.SheetServices, export.SheetTrend,
	}, f.GetSheetList())
	total, err := f.GetCellValue(export.SheetGeneral, "B2")
	require.NoError(t, err)
	assert.Equal(t, "1", total)

	var logs struct {
		Logs []models.AuditLog `json:"logs"`
	}
	rec = h.do(http.MethodGet, "/api/admin/audit", h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &logs)
	var exported bool
	for _, l := range logs.Logs {
		if l.Action == models.AuditDashboardExport {
			exported = true
			assert.Equal(t, h.tech.User.ID, l.UserID)
		}
	}
	assert.True(t, exported)
}

func TestDashboardExportQuotesFilename(t *testing.T) {
	h := newHarness(t)
	h.router = NewRouter(&config.Config{App: config.AppConfig{SuiteName: "Planta Sul"}}, h.repo, h.identity, metrics.New(), nil)
	h.createOrder(newOrder("OS-001", "Carlos"))

	rec := h.do(http.MethodGet, "/api/dashboard/export", h.tech, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	kind, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", kind)
	assert.Equal(t, export.Filename("Planta Sul", time.Now()), params["filename"])
}
