package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantmaint/models"
	"plantmaint/services"
)

func TestUpdateProfileHandler(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/auth/profile", h.tech, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/profile", nil, models.ProfileRequest{FirstName: "Ana"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/profile", h.tech, models.ProfileRequest{
		FirstName:  "Ana",
		LastName:   "Souza",
		Phone:      "(11) 98888-7777",
		Department: "Manutenção",
		Position:   "Eletricista",
		EmployeeID: "M-0042",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user models.User
	decodeBody(t, rec, &user)
	assert.Equal(t, "Ana Souza", user.DisplayName)
	assert.Equal(t, "M-0042", user.EmployeeID)

	rec = h.do(http.MethodGet, "/api/auth/me", h.tech, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	decodeBody(t, rec, &me)
	assert.Equal(t, "Ana Souza", me.DisplayName)
	assert.Equal(t, "Manutenção", me.Department)
	assert.Equal(t, "Eletricista", me.Position)
	assert.Equal(t, models.RoleTechnician, me.Role)

	long := make([]byte, 61)
	for i := range long {
		long[i] = 'a'
	}
	rec = h.do(http.MethodPost, "/api/auth/profile", h.tech, models.ProfileRequest{FirstName: string(long)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "firstName", errorBody(t, rec)["field"])
}

func TestUserStatsHandler(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/auth/me/stats", h.tech, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var empty services.UserOrderStats
	decodeBody(t, rec, &empty)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Recent)

	var ids []string
	for i := 1; i <= 6; i++ {
		ids = append(ids, h.createOrder(newOrder(fmt.Sprintf("OS-%03d", i), "Carlos")).ID)
	}
	rec = h.do(http.MethodPost, "/api/orders/status", h.admin, models.OrderStatusRequest{ID: ids[0], Status: "Fechada"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPost, "/api/orders/status", h.admin, models.OrderStatusRequest{ID: ids[1], Status: "pending"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/orders/create", h.admin, newOrder("OS-100", "Carlos"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodGet, "/api/auth/me/stats", h.tech, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats services.UserOrderStats
	decodeBody(t, rec, &stats)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 5, stats.Pending)
	require.Len(t, stats.Recent, 5)
	for _, o := range stats.Recent {
		assert.Equal(t, h.tech.User.ID, o.CreatedBy)
	}

	rec = h.do(http.MethodGet, "/api/auth/me/stats", h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &stats)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, 1, stats.Pending)
}
