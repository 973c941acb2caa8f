package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"plantmaint/db"
	"plantmaint/metrics"
	"plantmaint/models"
	"plantmaint/stats"
)

// DashboardQuery scopes the dashboard. PeriodDays 0 means all time.
type DashboardQuery struct {
	PeriodDays int    `json:"periodDays"`
	Sector     string `json:"sector"`
}

func (q DashboardQuery) filter(now time.Time) db.OrderFilter {
	f := db.OrderFilter{Sector: q.Sector}
	if q.PeriodDays > 0 {
		start := now.AddDate(0, 0, -q.PeriodDays)
		f.StartDate = &start
	}
	return f
}

// Dashboard is one computed snapshot. Sequence orders snapshots: a higher
// sequence was started later.
type Dashboard struct {
	Sequence    uint64         `json:"sequence"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Query       DashboardQuery `json:"query"`
	stats.Summary
	Tasks  *TaskCounts           `json:"tasks,omitempty"`
	Orders []models.ServiceOrder `json:"orders,omitempty"`
}

// DashboardService computes dashboard snapshots.
type DashboardService struct {
	repo    *db.Repository
	tasks   *TaskService
	clock   Clock
	metrics *metrics.Metrics
	seq     atomic.Uint64
}

func NewDashboardService(repo *db.Repository, tasks *TaskService, clock Clock, m *metrics.Metrics) *DashboardService {
	return &DashboardService{repo: repo, tasks: tasks, clock: clock, metrics: m}
}

// NextSequence reserves the sequence number of a refresh about to start.
func (s *DashboardService) NextSequence() uint64 {
	return s.seq.Add(1)
}

// Refresh fetches orders and tasks in parallel and computes every view.
// Nothing is computed unless both fetches succeed.
func (s *DashboardService) Refresh(ctx context.Context, q DashboardQuery) (*Dashboard, error) {
	return s.RefreshSeq(ctx, s.NextSequence(), q)
}

// RefreshSeq is Refresh with a sequence reserved by the caller through
// NextSequence.
func (s *DashboardService) RefreshSeq(ctx context.Context, seq uint64, q DashboardQuery) (*Dashboard, error) {
	start := time.Now()
	now := s.clock.now()

	var (
		orders []models.ServiceOrder
		tasks  []models.PreventiveTask
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.repo.ListOrders(gctx, q.filter(now))
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = s.repo.ListTasks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := CountDueStates(s.tasks.views(ctx, tasks, TaskFilter{}))
	d := &Dashboard{
		Sequence:    seq,
		GeneratedAt: now,
		Query:       q,
		Summary:     stats.Summarize(orders, now),
		Tasks:       &counts,
	}
	s.metrics.DashboardRefreshed(time.Since(start))
	return d, nil
}

// FromOrders builds an order-only snapshot from a live order list.
func (s *DashboardService) FromOrders(orders []models.ServiceOrder, q DashboardQuery) *Dashboard {
	now := s.clock.now()
	return &Dashboard{
		Sequence:    s.NextSequence(),
		GeneratedAt: now,
		Query:       q,
		Summary:     stats.Summarize(orders, now),
		Orders:      orders,
	}
}

// Filter returns the store predicates for q as of now.
func (s *DashboardService) Filter(q DashboardQuery) db.OrderFilter {
	return q.filter(s.clock.now())
}

// Board holds the latest dashboard snapshot. Snapshots that arrive after a
// newer one are dropped.
type Board struct {
	mu     sync.RWMutex
	latest *Dashboard
}

// Offer installs d unless the board already holds the same or a later
// sequence. It reports whether d was installed.
func (b *Board) Offer(d *Dashboard) bool {
	if d == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest != nil && d.Sequence <= b.latest.Sequence {
		return false
	}
	b.latest = d
	return true
}

// Latest returns the held snapshot, or nil before the first Offer.
func (b *Board) Latest() *Dashboard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}

// RecordExport audits a workbook download.
func (s *DashboardService) RecordExport(ctx context.Context, userID, filename string) {
	s.metrics.Exported()
	s.repo.LogAudit(ctx, userID, models.AuditDashboardExport, filename)
}
