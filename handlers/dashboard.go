package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"plantmaint/apperr"
	"plantmaint/export"
	"plantmaint/services"
)

type DashboardHandler struct {
	dash              *services.DashboardService
	suiteName         string
	defaultPeriodDays int
}

func NewDashboardHandler(dash *services.DashboardService, suiteName string, defaultPeriodDays int) *DashboardHandler {
	return &DashboardHandler{
		dash:              dash,
		suiteName:         suiteName,
		defaultPeriodDays: defaultPeriodDays,
	}
}

func (h *DashboardHandler) query(r *http.Request) (services.DashboardQuery, error) {
	days, err := queryInt(r, "period", h.defaultPeriodDays)
	if err != nil {
		return services.DashboardQuery{}, err
	}
	return services.DashboardQuery{PeriodDays: days, Sector: r.URL.Query().Get("sector")}, nil
}

// Summary returns every dashboard view for the period and sector.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q, err := h.query(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	d, err := h.dash.Refresh(r.Context(), q)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Export downloads the dashboard as an .xlsx workbook.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	q, err := h.query(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	d, err := h.dash.Refresh(r.Context(), q)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	var buf bytes.Buffer
	err = export.Write(&buf, d.Summary, export.Meta{
		SuiteName:   h.suiteName,
		GeneratedAt: d.GeneratedAt,
		PeriodDays:  q.PeriodDays,
		Sector:      q.Sector,
	})
	if err != nil {
		log.WithError(err).Error("❌ Failed to build dashboard workbook")
		writeError(w, "Failed to build workbook", http.StatusInternalServerError)
		return
	}

	filename := export.Filename(h.suiteName, d.GeneratedAt)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.WithError(err).Error("❌ Failed to write dashboard workbook")
		return
	}

	h.dash.RecordExport(r.Context(), user.ID, filename)
	log.WithFields(log.Fields{"user": user.Email, "file": filename}).Info("📊 Dashboard exported")
}
