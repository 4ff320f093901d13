package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/nalog/internal/model"
	"github.com/erazemk/nalog/internal/workflow"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, wf *workflow.Service) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	teamsHandler := &TeamsHandler{DB: db}
	warehousesHandler := &WarehousesHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	inventoryHandler := &InventoryHandler{DB: db}
	recordsHandler := &RecordsHandler{Workflow: wf}
	commentsHandler := &CommentsHandler{Workflow: wf}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireStaff := RequireRole(model.RoleAdmin, model.RoleModerator)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Teams (admin only).
	mux.Handle("GET /api/teams", authMW(requireAdmin(http.HandlerFunc(teamsHandler.List))))
	mux.Handle("POST /api/teams", authMW(requireAdmin(http.HandlerFunc(teamsHandler.Create))))
	mux.Handle("GET /api/teams/{id}/members", authMW(requireAdmin(http.HandlerFunc(teamsHandler.ListMembers))))
	mux.Handle("PUT /api/teams/{id}/members/{userID}", authMW(requireAdmin(http.HandlerFunc(teamsHandler.PutMember))))

	// Warehouses: read (all roles), write (admin).
	mux.Handle("GET /api/warehouses", authMW(http.HandlerFunc(warehousesHandler.List)))
	mux.Handle("POST /api/warehouses", authMW(requireAdmin(http.HandlerFunc(warehousesHandler.Create))))
	mux.Handle("GET /api/warehouses/{id}", authMW(http.HandlerFunc(warehousesHandler.Get)))

	// Items: read (all roles), write (admin).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("GET /api/items/{id}/history", authMW(requireStaff(http.HandlerFunc(itemsHandler.GetHistory))))

	// Inventory: read (all), receipts (admin), movement history (admin, moderator).
	mux.Handle("GET /api/inventory", authMW(http.HandlerFunc(inventoryHandler.List)))
	mux.Handle("POST /api/inventory/stock", authMW(requireAdmin(http.HandlerFunc(inventoryHandler.AddStock))))
	mux.Handle("GET /api/inventory/movements", authMW(requireStaff(http.HandlerFunc(inventoryHandler.Movements))))

	// Records: workflow permissions are checked per record by the service.
	mux.Handle("POST /api/records", authMW(http.HandlerFunc(recordsHandler.Create)))
	mux.Handle("GET /api/records", authMW(http.HandlerFunc(recordsHandler.List)))
	mux.Handle("GET /api/records/{id}", authMW(http.HandlerFunc(recordsHandler.Get)))
	mux.Handle("PATCH /api/records/{id}", authMW(http.HandlerFunc(recordsHandler.Update)))
	mux.Handle("DELETE /api/records/{id}", authMW(http.HandlerFunc(recordsHandler.Delete)))
	mux.Handle("GET /api/records/{id}/transitions", authMW(http.HandlerFunc(recordsHandler.Transitions)))
	mux.Handle("POST /api/records/{id}/transitions", authMW(http.HandlerFunc(recordsHandler.Transition)))

	// Comments.
	mux.Handle("GET /api/records/{id}/comments", authMW(http.HandlerFunc(commentsHandler.List)))
	mux.Handle("POST /api/records/{id}/comments", authMW(http.HandlerFunc(commentsHandler.Create)))
	mux.Handle("PUT /api/records/{id}/comments/{commentID}", authMW(http.HandlerFunc(commentsHandler.Update)))
	mux.Handle("DELETE /api/records/{id}/comments/{commentID}", authMW(http.HandlerFunc(commentsHandler.Delete)))

	return LoggingMiddleware(mux)
}
