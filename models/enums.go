package models

import (
	"strings"
	"time"
)

// OrderStatus is the normalized status bucket of a service order.
type OrderStatus string

const (
	OrderOpen    OrderStatus = "open"
	OrderPending OrderStatus = "pending"
	OrderClosed  OrderStatus = "closed"
	// OrderUnknown marks a stored status that matches no synonym.
	OrderUnknown OrderStatus = "unknown"
)

var orderStatusSynonyms = map[string]OrderStatus{
	"aberta":       OrderOpen,
	"pendente":     OrderPending,
	"em andamento": OrderPending,
	"fechada":      OrderClosed,
	"concluída":    OrderClosed,
}

// NormalizeOrderStatus maps stored status text onto a bucket,
// case-insensitively. Anything outside the synonym table is OrderUnknown.
func NormalizeOrderStatus(s string) OrderStatus {
	if st, ok := orderStatusSynonyms[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st
	}
	return OrderUnknown
}

// ParseOrderStatus accepts either stored text or a bucket name
// ("open", "pending", "closed").
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case OrderOpen, OrderPending, OrderClosed:
		return st, true
	}
	st := NormalizeOrderStatus(s)
	return st, st != OrderUnknown
}

// Label is the text written to the store for a status.
func (s OrderStatus) Label() string {
	switch s {
	case OrderOpen:
		return "Aberta"
	case OrderPending:
		return "Pendente"
	case OrderClosed:
		return "Fechada"
	}
	return ""
}

// Priority of a service order.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var prioritySynonyms = map[string]Priority{
	"baixa":   PriorityLow,
	"low":     PriorityLow,
	"normal":  PriorityNormal,
	"média":   PriorityMedium,
	"media":   PriorityMedium,
	"medium":  PriorityMedium,
	"alta":    PriorityHigh,
	"high":    PriorityHigh,
	"urgente": PriorityUrgent,
	"urgent":  PriorityUrgent,
}

// ParsePriority normalizes priority text. Empty text is Normal.
func ParsePriority(s string) (Priority, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityNormal, true
	}
	p, ok := prioritySynonyms[s]
	return p, ok
}

// Label is the text written to the store for a priority.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Baixa"
	case PriorityNormal:
		return "Normal"
	case PriorityMedium:
		return "Média"
	case PriorityHigh:
		return "Alta"
	case PriorityUrgent:
		return "Urgente"
	}
	return ""
}

// Frequency is the recurrence period of a preventive task.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiannual Frequency = "semiannual"
	FrequencyAnnual     Frequency = "annual"
)

var frequencySynonyms = map[string]Frequency{
	"daily":      FrequencyDaily,
	"diária":     FrequencyDaily,
	"diaria":     FrequencyDaily,
	"weekly":     FrequencyWeekly,
	"semanal":    FrequencyWeekly,
	"monthly":    FrequencyMonthly,
	"mensal":     FrequencyMonthly,
	"quarterly":  FrequencyQuarterly,
	"trimestral": FrequencyQuarterly,
	"semiannual": FrequencySemiannual,
	"semestral":  FrequencySemiannual,
	"annual":     FrequencyAnnual,
	"anual":      FrequencyAnnual,
}

// ParseFrequency normalizes frequency text.
func ParseFrequency(s string) (Frequency, bool) {
	f, ok := frequencySynonyms[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}

// Label is the display name of a frequency.
func (f Frequency) Label() string {
	switch f {
	case FrequencyDaily:
		return "Diária"
	case FrequencyWeekly:
		return "Semanal"
	case FrequencyMonthly:
		return "Mensal"
	case FrequencyQuarterly:
		return "Trimestral"
	case FrequencySemiannual:
		return "Semestral"
	case FrequencyAnnual:
		return "Anual"
	}
	return string(f)
}

// TaskStatus is the stored status of a preventive task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pendente"
	TaskCompleted TaskStatus = "concluida"
)

// NormalizeTaskStatus maps stored text onto a task status. Anything that is
// not a completed spelling counts as pending.
func NormalizeTaskStatus(s string) TaskStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "concluida", "concluída", "completed":
		return TaskCompleted
	}
	return TaskPending
}

// DueState is a task's urgency relative to a given day.
type DueState string

const (
	DueOverdue   DueState = "overdue"
	DueSoon      DueState = "due_soon"
	DuePending   DueState = "pending"
	DueCompleted DueState = "completed"
)

// ParseDueState accepts English names and the Portuguese filter values
// (vencida, proxima, pendente, concluida).
func ParseDueState(s string) (DueState, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overdue", "vencida":
		return DueOverdue, true
	case "due_soon", "proxima", "próxima":
		return DueSoon, true
	case "pending", "pendente":
		return DuePending, true
	case "completed", "concluida", "concluída":
		return DueCompleted, true
	}
	return "", false
}

// EquipmentStatus is the operating state of an asset.
type EquipmentStatus string

const (
	EquipmentActive      EquipmentStatus = "active"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentInactive    EquipmentStatus = "inactive"
)

// ParseEquipmentStatus normalizes equipment status text. Empty is active.
func ParseEquipmentStatus(s string) (EquipmentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active", "ativo":
		return EquipmentActive, true
	case "maintenance", "manutenção", "manutencao":
		return EquipmentMaintenance, true
	case "inactive", "inativo":
		return EquipmentInactive, true
	}
	return "", false
}

// ParseDate parses a calendar date. It accepts YYYY-MM-DD and RFC 3339;
// the result is midnight UTC of that civil date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := ts.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
