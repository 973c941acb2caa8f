package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantmaint/models"
)

func TestUserSetRole(t *testing.T) {
	repo := newTestRepo()
	svc := NewUserService(repo)

	adminID, err := repo.CreateUser(bg, models.User{Email: "admin@plant.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	techID, err := repo.CreateUser(bg, models.User{Email: "tec@plant.com", Role: models.RoleTechnician})
	require.NoError(t, err)

	user, err := svc.SetRole(bg, adminID, models.RoleRequest{UserID: techID, Role: models.RoleManager})
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, user.Role)

	stored, err := repo.GetUser(bg, techID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, stored.Role)

	_, err = svc.SetRole(bg, adminID, models.RoleRequest{UserID: adminID, Role: models.RoleTechnician})
	requireValidation(t, err, "userId")

	_, err = svc.SetRole(bg, adminID, models.RoleRequest{UserID: techID, Role: "ROOT"})
	requireValidation(t, err, "role")

	_, err = svc.SetRole(bg, adminID, models.RoleRequest{UserID: "ghost", Role: models.RoleManager})
	assert.Error(t, err)

	users, err := svc.List(bg)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	logs, err := svc.AuditLog(bg, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "tec@plant.com: TECHNICIAN -> MANAGER", logs[0].Details)
}

func TestUserUpdateProfile(t *testing.T) {
	repo := newTestRepo()
	svc := NewUserService(repo)

	id, err := repo.CreateUser(bg, models.User{Email: "ana.souza@plant.com", DisplayName: "ana.souza", Role: models.RoleTechnician})
	require.NoError(t, err)

	user, err := svc.UpdateProfile(bg, id, models.ProfileRequest{
		FirstName:  " Ana ",
		LastName:   "Souza",
		Department: "Manutenção",
		EmployeeID: "M-0042",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", user.DisplayName)
	assert.Equal(t, "Ana", user.FirstName)

	stored, err := repo.GetUser(bg, id)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", stored.DisplayName)
	assert.Equal(t, "Manutenção", stored.Department)
	assert.Equal(t, "M-0042", stored.EmployeeID)
	assert.Equal(t, models.RoleTechnician, stored.Role)

	// Clearing the names falls back to the e-mail local part.
	user, err = svc.UpdateProfile(bg, id, models.ProfileRequest{Phone: "1234"})
	require.NoError(t, err)
	assert.Equal(t, "ana.souza", user.DisplayName)
	stored, err = repo.GetUser(bg, id)
	require.NoError(t, err)
	assert.Empty(t, stored.Department)
	assert.Equal(t, "1234", stored.Phone)

	logs, err := svc.AuditLog(bg, 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, models.AuditProfileUpdated, logs[0].Action)

	_, err = svc.UpdateProfile(bg, id, models.ProfileRequest{Position: strings.Repeat("x", 61)})
	requireValidation(t, err, "position")

	_, err = svc.UpdateProfile(bg, "ghost", models.ProfileRequest{FirstName: "X"})
	assert.Error(t, err)
}
