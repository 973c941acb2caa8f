package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantmaint/models"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/api/admin/users", "/api/admin/audit"} {
		rec := h.do(http.MethodGet, path, h.tech, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	rec := h.do(http.MethodGet, "/api/admin/users", h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []models.User
	decodeBody(t, rec, &users)
	assert.Len(t, users, 2)
}

func TestSetRoleHandler(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/admin/users/role", h.admin, models.RoleRequest{UserID: h.admin.User.ID, Role: models.RoleTechnician})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/admin/users/role", h.admin, models.RoleRequest{UserID: h.tech.User.ID, Role: "OWNER"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "role", errorBody(t, rec)["field"])

	rec = h.do(http.MethodPost, "/api/admin/users/role", h.admin, models.RoleRequest{UserID: "missing", Role: models.RoleManager})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/admin/users/role", h.admin, models.RoleRequest{UserID: h.tech.User.ID, Role: models.RoleAdmin})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/users", h.tech, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetPasswordHandler(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/admin/users/reset-password", h.admin, ResetPasswordRequest{UserID: h.tech.User.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/admin/users/reset-password", h.admin, ResetPasswordRequest{UserID: h.tech.User.ID, NewPassword: "Trocada42"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/auth/login", nil, models.LoginRequest{Email: "tec@plant.com", Password: "Trocada42"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
