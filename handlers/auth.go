package handlers

import (
	"errors"
	"net/http"

	"plantmaint/apperr"
	"plantmaint/auth"
	"plantmaint/metrics"
	"plantmaint/middleware"
	"plantmaint/models"
	"plantmaint/services"
)

type AuthHandler struct {
	identity auth.Identity
	audit    Auditor
	metrics  *metrics.Metrics
}

func NewAuthHandler(identity auth.Identity, audit Auditor, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		audit:    audit,
		metrics:  m,
	}
}

func (h *AuthHandler) fail(w http.ResponseWriter, err error) {
	var ae *apperr.AuthError
	if errors.As(err, &ae) {
		h.metrics.AuthFailed(ae.Code)
	}
	apperr.Write(w, err)
}

// Register creates an account and returns its first session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Password != req.ConfirmPassword {
		apperr.Write(w, apperr.Validation("confirmPassword", auth.ErrPasswordMismatch.Error()))
		return
	}

	sess, err := h.identity.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	sess, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req models.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	if err := services.Validate(req); err != nil {
		apperr.Write(w, err)
		return
	}

	sess, err := h.identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Logout revokes the token the request was made with.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	token, ok := middleware.GetTokenFromContext(r.Context())
	if !ok {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	if err := h.identity.Logout(r.Context(), token); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword confirms the current password and sets a new one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := services.Validate(req); err != nil {
		apperr.Write(w, err)
		return
	}
	if err := auth.ValidatePasswordChange(req.NewPassword, req.ConfirmPassword); err != nil {
		field := "newPassword"
		if errors.Is(err, auth.ErrPasswordMismatch) {
			field = "confirmPassword"
		}
		apperr.Write(w, &apperr.ValidationError{Field: field, Message: err.Error(), Err: err})
		return
	}

	if err := h.identity.Reauthenticate(r.Context(), user.ID, req.CurrentPassword); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.identity.ChangePassword(r.Context(), user.ID, req.NewPassword); err != nil {
		h.fail(w, err)
		return
	}
	h.audit.LogAudit(r.Context(), user.ID, models.AuditPasswordChanged, user.Email)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}
