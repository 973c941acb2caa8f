package services

import (
	"strings"

	"plantmaint/models"
)

// LocalFilter is the second filtering pass over orders already fetched
// with server-side predicates. Zero fields are ignored; the rest are ANDed.
type LocalFilter struct {
	Search          string
	Status          models.OrderStatus
	Technician      string
	Priority        models.Priority
	ServiceDateFrom string
	ServiceDateTo   string
}

// Match reports whether o passes every set criterion. The serviceDate
// bounds only apply to orders that have a serviceDate.
func (f LocalFilter) Match(o models.ServiceOrder) bool {
	if f.Search != "" && !matchesSearch(o, strings.ToLower(f.Search)) {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.Technician != "" && o.Technician != f.Technician {
		return false
	}
	if f.Priority != "" && o.Priority != f.Priority {
		return false
	}
	if o.ServiceDate != "" {
		if f.ServiceDateFrom != "" && o.ServiceDate < f.ServiceDateFrom {
			return false
		}
		if f.ServiceDateTo != "" && o.ServiceDate > f.ServiceDateTo {
			return false
		}
	}
	return true
}

func matchesSearch(o models.ServiceOrder, needle string) bool {
	for _, field := range []string{o.OrderNumber, o.Equipment, o.Technician, o.Requester, o.Sector} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Apply returns the orders that match, in their input order.
func (f LocalFilter) Apply(orders []models.ServiceOrder) []models.ServiceOrder {
	out := make([]models.ServiceOrder, 0, len(orders))
	for _, o := range orders {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	return out
}
