package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/nalog/internal/model"
	"github.com/erazemk/nalog/internal/store"
)

// WarehousesHandler handles warehouse endpoints.
type WarehousesHandler struct {
	DB *sql.DB
}

type createWarehouseRequest struct {
	Name   string `json:"name"`
	TeamID *int64 `json:"team_id"`
}

// List handles GET /api/warehouses.
func (h *WarehousesHandler) List(w http.ResponseWriter, r *http.Request) {
	warehouses, err := store.ListWarehouses(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if warehouses == nil {
		warehouses = []model.Warehouse{}
	}
	jsonResponse(w, http.StatusOK, warehouses)
}

// Create handles POST /api/warehouses.
func (h *WarehousesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWarehouseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.TeamID != nil {
		team, err := store.GetTeam(r.Context(), h.DB, *req.TeamID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if team == nil {
			jsonError(w, http.StatusBadRequest, "team not found")
			return
		}
	}

	wh, err := store.CreateWarehouse(r.Context(), h.DB, req.Name, req.TeamID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("warehouse created", "user", GetClaims(r.Context()).Username, "warehouse", wh.Name)
	jsonResponse(w, http.StatusCreated, wh)
}

// Get handles GET /api/warehouses/{id}.
func (h *WarehousesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid warehouse id")
		return
	}

	wh, err := store.GetWarehouse(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if wh == nil {
		jsonError(w, http.StatusNotFound, "warehouse not found")
		return
	}
	jsonResponse(w, http.StatusOK, wh)
}
