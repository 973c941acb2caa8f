// Package schedule implements the preventive task state machine: due-state
// classification and rolling a task forward by its frequency.
package schedule

import (
	"math"
	"time"

	"plantmaint/apperr"
	"plantmaint/models"
)

// DueSoonDays is the inclusive window, in days from today, in which a task
// counts as due soon.
const DueSoonDays = 7

// PreventiveServiceType is the service type of orders raised from a task.
const PreventiveServiceType = "Preventiva"

// today returns the civil date of now as midnight UTC, the same
// representation models.ParseDate produces.
func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil is the number of calendar days from now's date to next's date.
// Time of day is ignored.
func DaysUntil(next, now time.Time) int {
	y, m, d := next.Date()
	nextDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(nextDay.Sub(today(now)).Hours() / 24))
}

// Classify returns the due-state of task as of now. A missing or malformed
// nextDate classifies as pending.
func Classify(task models.PreventiveTask, now time.Time) models.DueState {
	if task.Status == models.TaskCompleted {
		return models.DueCompleted
	}
	next, ok := task.ParseNextDate()
	if !ok {
		return models.DuePending
	}
	switch diff := DaysUntil(next, now); {
	case diff < 0:
		return models.DueOverdue
	case diff <= DueSoonDays:
		return models.DueSoon
	default:
		return models.DuePending
	}
}

// AddMonths moves t by n calendar months. When the day does not exist in
// the target month it is clamped to that month's last day, so Jan 31 plus
// one month is Feb 28 (or 29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(monthStart time.Time) int {
	return monthStart.AddDate(0, 1, -1).Day()
}

// NextDate advances prev by one period of f. Unknown frequencies advance by
// one month.
func NextDate(prev time.Time, f models.Frequency) time.Time {
	switch f {
	case models.FrequencyDaily:
		return prev.AddDate(0, 0, 1)
	case models.FrequencyWeekly:
		return prev.AddDate(0, 0, 7)
	case models.FrequencyQuarterly:
		return AddMonths(prev, 3)
	case models.FrequencySemiannual:
		return AddMonths(prev, 6)
	case models.FrequencyAnnual:
		return AddMonths(prev, 12)
	default:
		return AddMonths(prev, 1)
	}
}

// Completion is the single update written when a task is marked done.
type Completion struct {
	Status            models.TaskStatus
	CompletedAt       time.Time
	LastCompletedDate string
	NextDate          string
}

// Fields returns the record fields of the update.
func (c Completion) Fields() map[string]interface{} {
	return map[string]interface{}{
		"status":            string(c.Status),
		"completedAt":       c.CompletedAt,
		"lastCompletedDate": c.LastCompletedDate,
		"nextDate":          c.NextDate,
	}
}

// Apply returns task with the completion applied.
func (c Completion) Apply(task models.PreventiveTask) models.PreventiveTask {
	completedAt := c.CompletedAt
	task.Status = c.Status
	task.CompletedAt = &completedAt
	task.LastCompletedDate = c.LastCompletedDate
	task.NextDate = c.NextDate
	return task
}

// Complete computes the completion of task at now. The new due date is one
// period after the previous due date, not after now. A task whose nextDate
// does not parse is rejected.
func Complete(task models.PreventiveTask, now time.Time) (Completion, error) {
	prev, ok := task.ParseNextDate()
	if !ok {
		return Completion{}, apperr.Validation("nextDate", "task has no valid due date")
	}
	return Completion{
		Status:            models.TaskCompleted,
		CompletedAt:       now,
		LastCompletedDate: models.FormatDate(prev),
		NextDate:          models.FormatDate(NextDate(prev, task.Frequency)),
	}, nil
}

// Reopen starts the next cycle of a completed task. A completed task goes
// back to pending once its advanced due date is inside the due-soon window
// (or already past), but never on the same day it was completed.
func Reopen(task models.PreventiveTask, now time.Time) (models.PreventiveTask, bool) {
	if task.Status != models.TaskCompleted {
		return task, false
	}
	next, ok := task.ParseNextDate()
	if !ok {
		return task, false
	}
	if task.CompletedAt != nil && !today(task.CompletedAt.In(now.Location())).Before(today(now)) {
		return task, false
	}
	if DaysUntil(next, now) > DueSoonDays {
		return task, false
	}
	task.Status = models.TaskPending
	return task, true
}

// OrderDraft pre-fills a corrective order for task. The order is not linked
// to the task beyond the copied fields and TaskID.
func OrderDraft(task models.PreventiveTask) models.ServiceOrder {
	desc := task.Description
	if desc == "" {
		desc = task.Name
	}
	return models.ServiceOrder{
		Status:             models.OrderOpen,
		StatusText:         models.OrderOpen.Label(),
		Priority:           models.PriorityNormal,
		ServiceType:        PreventiveServiceType,
		Equipment:          task.Equipment,
		ProblemDescription: "Manutenção Preventiva: " + desc,
		TaskID:             task.ID,
	}
}
