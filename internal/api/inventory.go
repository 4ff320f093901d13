package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/nalog/internal/model"
	"github.com/erazemk/nalog/internal/store"
)

// InventoryHandler handles stock levels and the in/out history.
type InventoryHandler struct {
	DB *sql.DB
}

type addStockRequest struct {
	WarehouseID int64  `json:"warehouse_id"`
	ItemID      int64  `json:"item_id"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes"`
}

// List handles GET /api/inventory?warehouse_id=.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	warehouseID, ok := queryID(r, "warehouse_id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid warehouse_id")
		return
	}

	inventory, err := store.ListInventory(r.Context(), h.DB, warehouseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if inventory == nil {
		inventory = []model.InventoryItem{}
	}
	jsonResponse(w, http.StatusOK, inventory)
}

// AddStock handles POST /api/inventory/stock.
func (h *InventoryHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req addStockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ItemID <= 0 || req.WarehouseID <= 0 || req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id, warehouse_id, and quantity are required and must be positive")
		return
	}

	claims := GetClaims(r.Context())
	var userID *int64
	if claims != nil {
		userID = &claims.UserID
	}

	err := store.AddStock(r.Context(), h.DB, req.WarehouseID, req.ItemID, req.Quantity, req.Notes, userID)
	switch {
	case errors.Is(err, store.ErrWarehouseNotFound), errors.Is(err, store.ErrItemNotFound), errors.Is(err, store.ErrInvalidQuantity):
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, r, err)
		return
	}

	slog.Info("stock received", "user", claims.Username, "warehouse_id", req.WarehouseID,
		"item_id", req.ItemID, "quantity", req.Quantity)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "stock added"})
}

// Movements handles GET /api/inventory/movements?warehouse_id=&item_id=&record_id=.
func (h *InventoryHandler) Movements(w http.ResponseWriter, r *http.Request) {
	var f store.MovementFilter
	for name, dst := range map[string]*int64{
		"warehouse_id": &f.WarehouseID,
		"item_id":      &f.ItemID,
		"record_id":    &f.RecordID,
	} {
		id, ok := queryID(r, name)
		if !ok {
			jsonError(w, http.StatusBadRequest, "invalid "+name)
			return
		}
		*dst = id
	}

	moves, err := store.ListMovements(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if moves == nil {
		moves = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, moves)
}
