package handlers

import (
	"net/http"

	"plantmaint/apperr"
	"plantmaint/models"
	"plantmaint/services"
)

type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List returns preventive tasks with their due-state. Filters: due
// (overdue, due_soon, pending, completed or the Portuguese names) and
// equipment.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	f := services.TaskFilter{Equipment: r.URL.Query().Get("equipment")}
	if raw := r.URL.Query().Get("due"); raw != "" {
		state, ok := models.ParseDueState(raw)
		if !ok {
			apperr.Write(w, apperr.Validation("due", "unknown due state "+raw))
			return
		}
		f.DueState = state
	}

	views, err := h.tasks.List(r.Context(), f)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":  views,
		"count":  len(views),
		"counts": services.CountDueStates(views),
	})
}

// Create schedules a new preventive task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req models.TaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.tasks.Create(r.Context(), req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Complete marks a task done and rolls it to its next due date.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.IDRequest
	if !decode(w, r, &req) {
		return
	}
	if err := services.Validate(req); err != nil {
		apperr.Write(w, err)
		return
	}

	task, err := h.tasks.Complete(r.Context(), user.ID, req.ID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// OrderDraft returns a pre-filled order for a task. Nothing is stored.
func (h *TaskHandler) OrderDraft(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	draft, err := h.tasks.OrderDraft(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}
