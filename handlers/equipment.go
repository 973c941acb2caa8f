package handlers

import (
	"net/http"

	"plantmaint/apperr"
	"plantmaint/models"
	"plantmaint/services"
)

type EquipmentHandler struct {
	equipment *services.EquipmentService
}

func NewEquipmentHandler(equipment *services.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{equipment: equipment}
}

// List returns equipment filtered by status, sector and search text.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	f := services.EquipmentFilter{Sector: q.Get("sector"), Search: q.Get("search")}
	if raw := q.Get("status"); raw != "" {
		st, ok := models.ParseEquipmentStatus(raw)
		if !ok {
			apperr.Write(w, apperr.Validation("status", "unknown equipment status "+raw))
			return
		}
		f.Status = st
	}

	items, err := h.equipment.List(r.Context(), f)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"equipment": items,
		"count":     len(items),
	})
}

// History returns the orders raised against one asset.
func (h *EquipmentHandler) History(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	orders, err := h.equipment.History(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// Save creates or replaces an asset.
func (h *EquipmentHandler) Save(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req models.EquipmentRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.equipment.Save(r.Context(), req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, item)
}

// Delete removes an asset.
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.equipment.Delete(r.Context(), user.ID, req.ID); err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Equipment deleted"})
}
