package api

import (
	"net/http"

	"github.com/erazemk/nalog/internal/model"
	"github.com/erazemk/nalog/internal/store"
	"github.com/erazemk/nalog/internal/workflow"
)

// RecordsHandler exposes the order and demo workflow.
type RecordsHandler struct {
	Workflow *workflow.Service
}

type transitionRequest struct {
	Status model.Status `json:"status"`
}

type transitionsResponse struct {
	RecordID int64          `json:"record_id"`
	Status   model.Status   `json:"status"`
	Version  int            `json:"version"`
	Allowed  []model.Status `json:"allowed"`
}

// Create handles POST /api/records.
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req workflow.CreateInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WarehouseID <= 0 {
		jsonError(w, http.StatusBadRequest, "warehouse_id required")
		return
	}

	rec, err := h.Workflow.Create(r.Context(), GetClaims(r.Context()).UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, rec)
}

// List handles GET /api/records?kind=&status=&warehouse_id=&owner_id=.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.RecordFilter{
		Kind:   model.Kind(q.Get("kind")),
		Status: model.Status(q.Get("status")),
	}
	if f.Kind != "" && !f.Kind.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid kind")
		return
	}
	if f.Status != "" && !f.Status.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	var ok bool
	if f.WarehouseID, ok = queryID(r, "warehouse_id"); !ok {
		jsonError(w, http.StatusBadRequest, "invalid warehouse_id")
		return
	}
	if f.OwnerUserID, ok = queryID(r, "owner_id"); !ok {
		jsonError(w, http.StatusBadRequest, "invalid owner_id")
		return
	}

	records, err := h.Workflow.List(r.Context(), GetClaims(r.Context()).UserID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	jsonResponse(w, http.StatusOK, records)
}

// Get handles GET /api/records/{id}. It is the way to learn whether a
// transition whose response was lost actually committed.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	rec, err := h.Workflow.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// Transitions handles GET /api/records/{id}/transitions.
func (h *RecordsHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	rec, allowed, err := h.Workflow.AllowedTransitions(r.Context(), GetClaims(r.Context()).UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, transitionsResponse{
		RecordID: rec.ID,
		Status:   rec.Status,
		Version:  rec.Version,
		Allowed:  allowed,
	})
}

// Transition handles POST /api/records/{id}/transitions and returns the
// updated record.
func (h *RecordsHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		jsonError(w, http.StatusBadRequest, "status required")
		return
	}

	rec, err := h.Workflow.Transition(r.Context(), GetClaims(r.Context()).UserID, id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// Update handles PATCH /api/records/{id}.
func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var patch model.RecordPatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Workflow.Edit(r.Context(), GetClaims(r.Context()).UserID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/records/{id}.
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	if err := h.Workflow.Delete(r.Context(), GetClaims(r.Context()).UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "record deleted"})
}
