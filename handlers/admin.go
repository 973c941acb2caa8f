package handlers

import (
	"net/http"

	"plantmaint/apperr"
	"plantmaint/auth"
	"plantmaint/models"
	"plantmaint/services"
)

type AdminHandler struct {
	users    *services.UserService
	identity auth.Identity
	audit    Auditor
}

func NewAdminHandler(users *services.UserService, identity auth.Identity, audit Auditor) *AdminHandler {
	return &AdminHandler{
		users:    users,
		identity: identity,
		audit:    audit,
	}
}

// GetUsers returns all users
func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	users, err := h.users.List(r.Context())
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// SetRole changes a user's role.
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.RoleRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.users.SetRole(r.Context(), admin.ID, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ResetPasswordRequest represents password reset request
type ResetPasswordRequest struct {
	UserID      string `json:"userId" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// ResetPassword sets another user's password without the current one.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := services.Validate(req); err != nil {
		apperr.Write(w, err)
		return
	}

	if err := h.identity.ChangePassword(r.Context(), req.UserID, req.NewPassword); err != nil {
		apperr.Write(w, err)
		return
	}
	h.audit.LogAudit(r.Context(), admin.ID, models.AuditPasswordChanged, "reset for "+req.UserID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset"})
}

// AuditLog returns the newest audit entries; limit defaults to 100.
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	logs, err := h.users.AuditLog(r.Context(), limit)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}
