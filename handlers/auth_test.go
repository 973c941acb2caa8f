package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantmaint/auth"
	"plantmaint/models"
)

func TestRegisterHandler(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/auth/register", nil, models.RegisterRequest{
		Email: "novo@plant.com", Password: "Segura123", ConfirmPassword: "Outra123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "confirmPassword", errorBody(t, rec)["field"])

	rec = h.do(http.MethodPost, "/api/auth/register", nil, models.RegisterRequest{
		Email: "tec@plant.com", Password: "Segura123", ConfirmPassword: "Segura123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := errorBody(t, rec)
	assert.Equal(t, "auth/email-already-in-use", body["code"])
	assert.Equal(t, "Este e-mail já está cadastrado.", body["error"])

	rec = h.do(http.MethodPost, "/api/auth/register", nil, models.RegisterRequest{
		Email: "novo@plant.com", Password: "Segura123", ConfirmPassword: "Segura123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sess auth.Session
	decodeBody(t, rec, &sess)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, models.RoleTechnician, sess.User.Role)
}

func TestLoginMeLogout(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/auth/login", nil, models.LoginRequest{Email: "tec@plant.com", Password: "Errada123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Senha incorreta.", errorBody(t, rec)["error"])

	rec = h.do(http.MethodPost, "/api/auth/login", nil, models.LoginRequest{Email: "tec@plant.com", Password: "Segura123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var sess auth.Session
	decodeBody(t, rec, &sess)

	rec = h.do(http.MethodGet, "/api/auth/me", &sess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	decodeBody(t, rec, &me)
	assert.Equal(t, "tec@plant.com", me.Email)

	rec = h.do(http.MethodPost, "/api/auth/refresh", nil, models.RefreshRequest{RefreshToken: sess.RefreshToken})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/logout", &sess, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/auth/me", &sess, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordHandler(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/auth/change-password", h.tech, models.ChangePasswordRequest{
		CurrentPassword: "Segura123", NewPassword: "NovaSenha9", ConfirmPassword: "NovaSenha8",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "confirmPassword", errorBody(t, rec)["field"])

	rec = h.do(http.MethodPost, "/api/auth/change-password", h.tech, models.ChangePasswordRequest{
		CurrentPassword: "Segura123", NewPassword: "fraca", ConfirmPassword: "fraca",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "newPassword", errorBody(t, rec)["field"])

	rec = h.do(http.MethodPost, "/api/auth/change-password", h.tech, models.ChangePasswordRequest{
		CurrentPassword: "Errada123", NewPassword: "NovaSenha9", ConfirmPassword: "NovaSenha9",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "auth/wrong-password", errorBody(t, rec)["code"])

	rec = h.do(http.MethodPost, "/api/auth/change-password", h.tech, models.ChangePasswordRequest{
		CurrentPassword: "Segura123", NewPassword: "NovaSenha9", ConfirmPassword: "NovaSenha9",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/login", nil, models.LoginRequest{Email: "tec@plant.com", Password: "NovaSenha9"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
