// Package export renders the dashboard as an .xlsx workbook, one simple
// label/value sheet per dashboard view.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"plantmaint/stats"
)

// Sheet names, in workbook order.
const (
	SheetGeneral     = "General Statistics"
	SheetTechnicians = "Technician Performance"
	SheetStatus      = "General Status"
	SheetServices    = "Frequent Services"
	SheetTrend       = "Monthly Trend"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Meta describes the scope the summary was computed for.
type Meta struct {
	SuiteName   string
	GeneratedAt time.Time
	PeriodDays  int
	Sector      string
}

// Filename is Dashboard_<suite>_<D>-<M>-<YYYY>.xlsx, without zero padding.
func Filename(suite string, day time.Time) string {
	return fmt.Sprintf("Dashboard_%s_%d-%d-%d.xlsx", suite, day.Day(), int(day.Month()), day.Year())
}

// Build lays the summary out as a workbook.
func Build(s stats.Summary, meta Meta) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetGeneral); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetTechnicians, SheetStatus, SheetServices, SheetTrend} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	w := sheetWriter{f: f, header: header}
	w.table(SheetGeneral, []interface{}{"Metric", "Value"}, generalRows(s, meta))
	w.table(SheetTechnicians, []interface{}{"Technician", "Completed", "Pending", "Open"}, technicianRows(s))
	w.table(SheetStatus, []interface{}{"Status", "Orders"}, seriesRows(s.GeneralStatus))
	w.table(SheetServices, []interface{}{"Service Type", "Orders"}, seriesRows(s.FrequentServices))
	w.table(SheetTrend, []interface{}{"Month", "Orders"}, seriesRows(s.MonthlyTrend))
	if w.err != nil {
		f.Close()
		return nil, w.err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the workbook and writes it to out.
func Write(out io.Writer, s stats.Summary, meta Meta) error {
	f, err := Build(s, meta)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func generalRows(s stats.Summary, meta Meta) [][]interface{} {
	var avg interface{} = "N/A"
	if s.HasAverageTime {
		avg = s.AverageTimeHours
	}
	period := "All time"
	if meta.PeriodDays > 0 {
		period = fmt.Sprintf("Last %d days", meta.PeriodDays)
	}
	sector := meta.Sector
	if sector == "" {
		sector = "All sectors"
	}
	return [][]interface{}{
		{"Total Orders", s.Total},
		{"Open", s.Open},
		{"Pending", s.Pending},
		{"Closed", s.Closed},
		{"Average Closure Time (hours)", avg},
		{"Completion Rate (%)", s.CompletionRate},
		{"Period", period},
		{"Sector", sector},
		{"Generated At", meta.GeneratedAt.Format("02/01/2006 15:04")},
	}
}

func technicianRows(s stats.Summary) [][]interface{} {
	names := stats.TechnicianNames(s.Technicians)
	rows := make([][]interface{}, 0, len(names))
	for _, name := range names {
		t := s.Technicians[name]
		rows = append(rows, []interface{}{name, t.Completed, t.Pending, t.Open})
	}
	return rows
}

func seriesRows(series stats.Series) [][]interface{} {
	rows := make([][]interface{}, 0, series.Len())
	for i, label := range series.Labels {
		rows = append(rows, []interface{}{label, series.Values[i]})
	}
	return rows
}

// sheetWriter keeps the first error so the table calls read straight.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) table(sheet string, header []interface{}, rows [][]interface{}) {
	if w.err != nil {
		return
	}
	w.row(sheet, 1, header)
	for i, r := range rows {
		w.row(sheet, i+2, r)
	}
	if w.err != nil {
		return
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetColWidth(sheet, "A", "A", 32)
}

func (w *sheetWriter) row(sheet string, n int, values []interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}
