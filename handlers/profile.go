package handlers

import (
	"net/http"

	"plantmaint/apperr"
	"plantmaint/models"
	"plantmaint/services"
)

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	users  *services.UserService
	orders *services.OrderService
}

func NewProfileHandler(users *services.UserService, orders *services.OrderService) *ProfileHandler {
	return &ProfileHandler{users: users, orders: orders}
}

// Update replaces the caller's profile details and returns the user.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.ProfileRequest
	if !decode(w, r, &req) {
		return
	}
	updated, err := h.users.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Stats summarises the orders the caller opened.
func (h *ProfileHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.orders.UserStats(r.Context(), user.ID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
