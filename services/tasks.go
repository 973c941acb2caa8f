package services

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"plantmaint/apperr"
	"plantmaint/db"
	"plantmaint/metrics"
	"plantmaint/models"
	"plantmaint/schedule"
)

// TaskView is a preventive task with its state as of the listing.
type TaskView struct {
	models.PreventiveTask
	DueState       models.DueState `json:"dueState"`
	DaysUntil      *int            `json:"daysUntil,omitempty"`
	FrequencyLabel string          `json:"frequencyLabel"`
}

// TaskFilter narrows the task list. Zero fields are ignored.
type TaskFilter struct {
	DueState  models.DueState
	Equipment string
}

// TaskCounts is the number of tasks per due-state.
type TaskCounts struct {
	Overdue   int `json:"overdue"`
	DueSoon   int `json:"dueSoon"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

func (c *TaskCounts) add(state models.DueState) {
	switch state {
	case models.DueOverdue:
		c.Overdue++
	case models.DueSoon:
		c.DueSoon++
	case models.DuePending:
		c.Pending++
	case models.DueCompleted:
		c.Completed++
	}
}

// CountDueStates classifies every task as of the given views.
func CountDueStates(views []TaskView) TaskCounts {
	var c TaskCounts
	for _, v := range views {
		c.add(v.DueState)
	}
	return c
}

// TaskService runs the preventive schedule.
type TaskService struct {
	repo    *db.Repository
	clock   Clock
	metrics *metrics.Metrics
}

func NewTaskService(repo *db.Repository, clock Clock, m *metrics.Metrics) *TaskService {
	return &TaskService{repo: repo, clock: clock, metrics: m}
}

// List returns the tasks matching f, earliest due first. Completed tasks
// whose next cycle has come due are reopened and written back first.
func (s *TaskService) List(ctx context.Context, f TaskFilter) ([]TaskView, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, tasks, f), nil
}

func (s *TaskService) views(ctx context.Context, tasks []models.PreventiveTask, f TaskFilter) []TaskView {
	now := s.clock.now()
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		if reopened, ok := schedule.Reopen(t, now); ok {
			err := s.repo.UpdateTask(ctx, t.ID, map[string]interface{}{"status": string(models.TaskPending)})
			if err != nil {
				log.WithError(err).WithField("task_id", t.ID).Warn("failed to reopen preventive task")
			} else {
				s.metrics.TaskReopened()
				t = reopened
			}
		}

		v := TaskView{
			PreventiveTask: t,
			DueState:       schedule.Classify(t, now),
			FrequencyLabel: t.Frequency.Label(),
		}
		if next, ok := t.ParseNextDate(); ok {
			days := schedule.DaysUntil(next, now)
			v.DaysUntil = &days
		}

		if f.DueState != "" && v.DueState != f.DueState {
			continue
		}
		if f.Equipment != "" && !strings.EqualFold(t.Equipment, f.Equipment) {
			continue
		}
		views = append(views, v)
	}
	return views
}

// Create stores a new pending task.
func (s *TaskService) Create(ctx context.Context, req models.TaskRequest) (*models.PreventiveTask, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	freq, ok := models.ParseFrequency(req.Frequency)
	if !ok {
		return nil, apperr.Validation("frequency", "unknown frequency "+req.Frequency)
	}
	next, ok := models.ParseDate(req.NextDate)
	if !ok {
		return nil, apperr.Validation("nextDate", "nextDate must be a date in YYYY-MM-DD format")
	}

	task := models.PreventiveTask{
		Name:        req.Name,
		Equipment:   req.Equipment,
		Frequency:   freq,
		NextDate:    models.FormatDate(next),
		Description: req.Description,
		Status:      models.TaskPending,
	}
	id, err := s.repo.CreateTask(ctx, task)
	if err != nil {
		return nil, err
	}
	return s.repo.GetTask(ctx, id)
}

// Complete marks a task done and rolls its due date forward one period in
// a single write. Completing an already completed task is a conflict.
func (s *TaskService) Complete(ctx context.Context, userID, id string) (*models.PreventiveTask, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskCompleted {
		return nil, &apperr.ValidationError{Field: "status", Message: "task is already completed", Conflict: true}
	}

	c, err := schedule.Complete(*task, s.clock.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTask(ctx, id, c.Fields()); err != nil {
		return nil, err
	}
	s.metrics.TaskCompleted()
	s.repo.LogAudit(ctx, userID, models.AuditTaskCompleted,
		fmt.Sprintf("%s completed for %s, next due %s", task.Name, c.LastCompletedDate, c.NextDate))

	done := c.Apply(*task)
	return &done, nil
}

// OrderDraft pre-fills an order for a task. When an equipment record with
// the task's equipment name exists, its id, location and sector are copied.
func (s *TaskService) OrderDraft(ctx context.Context, id string) (*models.ServiceOrder, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	draft := schedule.OrderDraft(*task)

	items, err := s.repo.ListEquipment(ctx, "", "")
	if err != nil {
		log.WithError(err).WithField("task_id", id).Warn("equipment lookup failed for order draft")
		return &draft, nil
	}
	for _, e := range items {
		if strings.EqualFold(e.Name, task.Equipment) {
			draft.EquipmentID = e.ID
			draft.Location = e.Location
			draft.Sector = e.Sector
			break
		}
	}
	return &draft, nil
}
