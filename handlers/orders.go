package handlers

import (
	"net/http"

	"plantmaint/apperr"
	"plantmaint/db"
	"plantmaint/models"
	"plantmaint/services"
)

type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// orderQuery reads the list filters. Technician, sector, equipment and the
// creation date range go to the store; the rest run locally.
func orderQuery(r *http.Request) (services.OrderQuery, error) {
	q := r.URL.Query()
	var out services.OrderQuery

	start, err := queryDate(r, "startDate", false)
	if err != nil {
		return out, err
	}
	end, err := queryDate(r, "endDate", true)
	if err != nil {
		return out, err
	}
	out.Server = db.OrderFilter{
		Technician:  q.Get("technician"),
		Sector:      q.Get("sector"),
		EquipmentID: q.Get("equipmentId"),
		StartDate:   start,
		EndDate:     end,
	}

	out.Local = services.LocalFilter{
		Search:          q.Get("search"),
		ServiceDateFrom: q.Get("serviceDateFrom"),
		ServiceDateTo:   q.Get("serviceDateTo"),
	}
	if raw := q.Get("status"); raw != "" {
		st, ok := models.ParseOrderStatus(raw)
		if !ok {
			return out, apperr.Validation("status", "unknown status "+raw)
		}
		out.Local.Status = st
	}
	if raw := q.Get("priority"); raw != "" {
		p, ok := models.ParsePriority(raw)
		if !ok {
			return out, apperr.Validation("priority", "unknown priority "+raw)
		}
		out.Local.Priority = p
	}
	return out, nil
}

// List returns the orders matching the query, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q, err := orderQuery(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	orders, err := h.orders.List(r.Context(), q)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// Get returns one order.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Recent returns the newest orders for the home screen.
func (h *OrderHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	orders, err := h.orders.Recent(r.Context())
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// Create opens a new order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.OrderRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orders.Create(r.Context(), user.ID, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// Update edits an order.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.UpdateOrderRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orders.Update(r.Context(), user.ID, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus moves an order to a new status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.OrderStatusRequest
	if !decode(w, r, &req) {
		return
	}
	if err := services.Validate(req); err != nil {
		apperr.Write(w, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), user.ID, req.ID, req.Status)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
