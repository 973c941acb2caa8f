package services

import (
	"context"
	"fmt"
	"strings"

	"plantmaint/apperr"
	"plantmaint/db"
	"plantmaint/models"
)

// EquipmentFilter narrows the equipment list.
type EquipmentFilter struct {
	Status models.EquipmentStatus
	Sector string
	Search string
}

// EquipmentService manages assets and their maintenance history.
type EquipmentService struct {
	repo *db.Repository
}

func NewEquipmentService(repo *db.Repository) *EquipmentService {
	return &EquipmentService{repo: repo}
}

// List returns equipment sorted by name. Search matches name, model,
// serial and location, case-insensitively.
func (s *EquipmentService) List(ctx context.Context, f EquipmentFilter) ([]models.Equipment, error) {
	items, err := s.repo.ListEquipment(ctx, f.Status, f.Sector)
	if err != nil {
		return nil, err
	}
	if f.Search == "" {
		return items, nil
	}

	needle := strings.ToLower(f.Search)
	out := items[:0]
	for _, e := range items {
		for _, field := range []string{e.Name, e.Model, e.Serial, e.Location} {
			if strings.Contains(strings.ToLower(field), needle) {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

// Save creates or replaces an asset.
func (s *EquipmentService) Save(ctx context.Context, req models.EquipmentRequest) (*models.Equipment, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	status, ok := models.ParseEquipmentStatus(req.Status)
	if !ok {
		return nil, apperr.Validation("status", "unknown equipment status "+req.Status)
	}

	id, err := s.repo.SaveEquipment(ctx, models.Equipment{
		ID:              req.ID,
		Name:            req.Name,
		Model:           req.Model,
		Serial:          req.Serial,
		Status:          status,
		Location:        req.Location,
		Sector:          req.Sector,
		LastMaintenance: req.LastMaintenance,
		NextMaintenance: req.NextMaintenance,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetEquipment(ctx, id)
}

// Delete removes an asset. Its orders keep their copied fields.
func (s *EquipmentService) Delete(ctx context.Context, userID, id string) error {
	e, err := s.repo.GetEquipment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteEquipment(ctx, id); err != nil {
		return err
	}
	s.repo.LogAudit(ctx, userID, models.AuditEquipmentDelete, fmt.Sprintf("equipment %s (%s) deleted", e.Name, id))
	return nil
}

// History returns the orders raised against an asset, newest first.
func (s *EquipmentService) History(ctx context.Context, id string) ([]models.ServiceOrder, error) {
	if _, err := s.repo.GetEquipment(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.EquipmentHistory(ctx, id)
}
