package handlers

import (
	"net/http"

	"plantmaint/apperr"
	"plantmaint/services"
)

type ReferenceHandler struct {
	refs *services.ReferenceService
}

func NewReferenceHandler(refs *services.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{refs: refs}
}

func activeOnly(r *http.Request) bool {
	return r.URL.Query().Get("active") == "true"
}

func (h *ReferenceHandler) Sectors(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	sectors, err := h.refs.Sectors(r.Context(), activeOnly(r))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sectors": sectors})
}

func (h *ReferenceHandler) Maintainers(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	maintainers, err := h.refs.Maintainers(r.Context(), activeOnly(r))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"maintainers": maintainers})
}
