package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantmaint/models"
)

func TestEquipmentSaveListSearch(t *testing.T) {
	svc := NewEquipmentService(newTestRepo())

	for _, req := range []models.EquipmentRequest{
		{Name: "Torno CNC", Model: "T-200", Sector: "Produção"},
		{Name: "compressor", Serial: "SN-77", Sector: "Produção", Status: "manutenção"},
		{Name: "Bomba", Location: "Casa de bombas", Sector: "Utilidades", Status: "inactive"},
	} {
		_, err := svc.Save(bg, req)
		require.NoError(t, err)
	}

	all, err := svc.List(bg, EquipmentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Bomba", "compressor", "Torno CNC"}, []string{all[0].Name, all[1].Name, all[2].Name})

	prod, err := svc.List(bg, EquipmentFilter{Sector: "Produção"})
	require.NoError(t, err)
	assert.Len(t, prod, 2)

	maint, err := svc.List(bg, EquipmentFilter{Status: models.EquipmentMaintenance})
	require.NoError(t, err)
	require.Len(t, maint, 1)
	assert.Equal(t, "compressor", maint[0].Name)

	found, err := svc.List(bg, EquipmentFilter{Search: "sn-77"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = svc.Save(bg, models.EquipmentRequest{Name: "x", Status: "quebrado"})
	requireValidation(t, err, "status")
	_, err = svc.Save(bg, models.EquipmentRequest{Model: "no name"})
	requireValidation(t, err, "name")
}

func TestEquipmentUpdateHistoryDelete(t *testing.T) {
	repo := newTestRepo()
	svc := NewEquipmentService(repo)
	orders := NewOrderService(repo, nil)

	eq, err := svc.Save(bg, models.EquipmentRequest{Name: "Prensa"})
	require.NoError(t, err)

	updated, err := svc.Save(bg, models.EquipmentRequest{ID: eq.ID, Name: "Prensa hidráulica", Notes: "revisada"})
	require.NoError(t, err)
	assert.Equal(t, eq.ID, updated.ID)
	assert.Equal(t, "revisada", updated.Notes)

	for _, n := range []string{"OS-1", "OS-2"} {
		req := orderReq(n)
		req.EquipmentID = eq.ID
		_, err := orders.Create(bg, "u1", req)
		require.NoError(t, err)
	}
	_, err = orders.Create(bg, "u1", orderReq("OS-3"))
	require.NoError(t, err)

	history, err := svc.History(bg, eq.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "OS-2", history[0].OrderNumber)

	require.NoError(t, svc.Delete(bg, "u1", eq.ID))
	_, err = svc.History(bg, eq.ID)
	assert.Error(t, err)
	assert.Error(t, svc.Delete(bg, "u1", eq.ID))

	logs, err := repo.ListAuditLogs(bg, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AuditEquipmentDelete, logs[0].Action)
}

func TestReferenceListsSeedOnFirstRead(t *testing.T) {
	svc := NewReferenceService(newTestRepo())

	sectors, err := svc.Sectors(bg, true)
	require.NoError(t, err)
	assert.Len(t, sectors, 7)

	maintainers, err := svc.Maintainers(bg, false)
	require.NoError(t, err)
	assert.Len(t, maintainers, 5)

	again, err := svc.Sectors(bg, false)
	require.NoError(t, err)
	assert.Len(t, again, 7, "seeding happens once")
}
