// Package stats derives dashboard statistics from service orders. Every
// function here is pure: the result depends only on the arguments.
package stats

import (
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"plantmaint/models"
)

// Tally counts orders per status bucket. Orders whose status matches no
// bucket are only counted in Total.
type Tally struct {
	Open    int `json:"open"`
	Pending int `json:"pending"`
	Closed  int `json:"closed"`
	Total   int `json:"total"`
}

// TechnicianTally is one technician's share of the status buckets.
type TechnicianTally struct {
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Open      int `json:"open"`
}

// Series is a chart-ready pair of parallel label and value sequences.
type Series struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// Len returns the number of points in the series.
func (s Series) Len() int { return len(s.Labels) }

// DefaultTopServices is how many service types FrequentServices keeps.
const DefaultTopServices = 5

// TrendMonths is the width of the MonthlyTrend window.
const TrendMonths = 6

var monthAbbrev = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// CountStatuses tallies orders by normalized status.
func CountStatuses(orders []models.ServiceOrder) Tally {
	t := Tally{Total: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case models.OrderOpen:
			t.Open++
		case models.OrderPending:
			t.Pending++
		case models.OrderClosed:
			t.Closed++
		}
	}
	return t
}

// AverageClosureHours is the mean time from creation to last update over
// closed orders that carry both timestamps, rounded half up to whole hours.
// ok is false when no order qualifies.
func AverageClosureHours(orders []models.ServiceOrder) (hours int, ok bool) {
	var totalMs float64
	closed := 0
	for _, o := range orders {
		if o.Status != models.OrderClosed || o.CreatedAt == nil || o.UpdatedAt == nil {
			continue
		}
		totalMs += float64(o.UpdatedAt.Sub(*o.CreatedAt).Milliseconds())
		closed++
	}
	if closed == 0 {
		return 0, false
	}
	avg := totalMs / float64(closed) / float64(time.Hour/time.Millisecond)
	return int(math.Floor(avg + 0.5)), true
}

// CompletionRate is the closed share of all orders as a whole percentage.
func CompletionRate(t Tally) int {
	if t.Total == 0 {
		return 0
	}
	return int(math.Floor(float64(t.Closed)*100/float64(t.Total) + 0.5))
}

// TechnicianPerformance groups orders by technician. Orders without a
// technician are skipped; an order with an unmatched status still creates
// the technician's entry but adds to none of its counts.
func TechnicianPerformance(orders []models.ServiceOrder) map[string]TechnicianTally {
	perf := make(map[string]TechnicianTally)
	for _, o := range orders {
		if o.Technician == "" {
			continue
		}
		tt := perf[o.Technician]
		switch o.Status {
		case models.OrderClosed:
			tt.Completed++
		case models.OrderPending:
			tt.Pending++
		case models.OrderOpen:
			tt.Open++
		}
		perf[o.Technician] = tt
	}
	return perf
}

// TechnicianNames returns the keys of perf in alphabetical order.
func TechnicianNames(perf map[string]TechnicianTally) []string {
	names := make([]string, 0, len(perf))
	for name := range perf {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GeneralStatus projects a tally onto a fixed Open, Pending, Closed series.
func GeneralStatus(t Tally) Series {
	return Series{
		Labels: []string{"Open", "Pending", "Closed"},
		Values: []int{t.Open, t.Pending, t.Closed},
	}
}

// FrequentServices ranks service types by occurrence, keeping the top n.
// Ties keep the order in which a type first appeared.
func FrequentServices(orders []models.ServiceOrder, n int) Series {
	counts := make(map[string]int)
	var seen []string
	for _, o := range orders {
		if o.ServiceType == "" {
			continue
		}
		if _, ok := counts[o.ServiceType]; !ok {
			seen = append(seen, o.ServiceType)
		}
		counts[o.ServiceType]++
	}

	sort.SliceStable(seen, func(i, j int) bool {
		return counts[seen[i]] > counts[seen[j]]
	})
	if n >= 0 && len(seen) > n {
		seen = seen[:n]
	}

	s := Series{Labels: make([]string, 0, len(seen)), Values: make([]int, 0, len(seen))}
	for _, st := range seen {
		s.Labels = append(s.Labels, st)
		s.Values = append(s.Values, counts[st])
	}
	return s
}

// MonthlyTrend counts orders per creation month over the month containing
// now and the five before it, oldest first. Months are taken in now's
// location. Orders without a creation timestamp are skipped.
func MonthlyTrend(orders []models.ServiceOrder, now time.Time) Series {
	loc := now.Location()
	y, m, _ := now.Date()

	index := make(map[int]int, TrendMonths)
	s := Series{Labels: make([]string, TrendMonths), Values: make([]int, TrendMonths)}
	for i := 0; i < TrendMonths; i++ {
		month := time.Date(y, m-time.Month(TrendMonths-1-i), 1, 0, 0, 0, 0, loc)
		index[monthKey(month)] = i
		s.Labels[i] = monthAbbrev[month.Month()-1]
	}

	for _, o := range orders {
		if o.CreatedAt == nil {
			log.WithField("order_id", o.ID).Debug("order without createdAt left out of monthly trend")
			continue
		}
		if i, ok := index[monthKey(o.CreatedAt.In(loc))]; ok {
			s.Values[i]++
		}
	}
	return s
}

func monthKey(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// Summary bundles every dashboard view computed from one order list.
type Summary struct {
	Tally
	AverageTimeHours int                        `json:"averageTimeHours"`
	HasAverageTime   bool                       `json:"hasAverageTime"`
	CompletionRate   int                        `json:"completionRate"`
	Technicians      map[string]TechnicianTally `json:"technicians"`
	GeneralStatus    Series                     `json:"generalStatus"`
	FrequentServices Series                     `json:"frequentServices"`
	MonthlyTrend     Series                     `json:"monthlyTrend"`
}

// Summarize computes all dashboard views for orders as of now.
func Summarize(orders []models.ServiceOrder, now time.Time) Summary {
	tally := CountStatuses(orders)
	avg, ok := AverageClosureHours(orders)
	return Summary{
		Tally:            tally,
		AverageTimeHours: avg,
		HasAverageTime:   ok,
		CompletionRate:   CompletionRate(tally),
		Technicians:      TechnicianPerformance(orders),
		GeneralStatus:    GeneralStatus(tally),
		FrequentServices: FrequentServices(orders, DefaultTopServices),
		MonthlyTrend:     MonthlyTrend(orders, now),
	}
}
