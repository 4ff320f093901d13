package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/nalog/internal/auth"
	"github.com/erazemk/nalog/internal/db"
	"github.com/erazemk/nalog/internal/model"
	"github.com/erazemk/nalog/internal/notify"
	"github.com/erazemk/nalog/internal/store"
	"github.com/erazemk/nalog/internal/workflow"
)

const testJWTSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	svc := workflow.NewService(database, notify.Log{})
	t.Cleanup(func() { svc.Close(context.Background()) })
	router := NewRouter(database, testJWTSecret, svc)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, database
}

// createUser stores a user with password "password" and returns a login token.
func createUser(t *testing.T, server *httptest.Server, database *sql.DB, username string, role model.Role) string {
	t.Helper()
	auth.PasswordCost = bcrypt.MinCost
	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if _, err := store.CreateUser(context.Background(), database, username, hash, role); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"username": username, "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var data []byte
	if body != nil {
		data, _ = json.Marshal(body)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends a request and decodes the JSON response into out when non-nil.
func do(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

// seedStock creates a warehouse and an item with the given stock through the API.
func seedStock(t *testing.T, server *httptest.Server, adminToken string, quantity int) (warehouseID, itemID int64) {
	t.Helper()
	var wh model.Warehouse
	if code := do(t, "POST", server.URL+"/api/warehouses", adminToken, map[string]any{"name": "Central"}, &wh); code != http.StatusCreated {
		t.Fatalf("create warehouse: %d", code)
	}
	var item model.Item
	if code := do(t, "POST", server.URL+"/api/items", adminToken, map[string]any{"code": "LP-1", "name": "Laptop"}, &item); code != http.StatusCreated {
		t.Fatalf("create item: %d", code)
	}
	code := do(t, "POST", server.URL+"/api/inventory/stock", adminToken, map[string]any{
		"warehouse_id": wh.ID, "item_id": item.ID, "quantity": quantity,
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("add stock: %d", code)
	}
	return wh.ID, item.ID
}

func TestLoginEndpoint(t *testing.T) {
	server, database := newTestServer(t)
	createUser(t, server, database, "admin", model.RoleAdmin)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := http.Get(server.URL + "/api/records")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a request ID header")
	}
	resp.Body.Close()
}

func TestRequestIDIsEchoed(t *testing.T) {
	server, _ := newTestServer(t)

	req, _ := http.NewRequest("GET", server.URL+"/api/items", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected request ID abc-123, got %q", got)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server, database := newTestServer(t)
	token := createUser(t, server, database, "ana", model.RoleUser)

	if code := do(t, "POST", server.URL+"/api/auth/logout", token, nil, nil); code != http.StatusOK {
		t.Fatalf("logout: %d", code)
	}
	if code := do(t, "GET", server.URL+"/api/items", token, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", code)
	}
}

func TestDeletedUserTokenRejected(t *testing.T) {
	server, database := newTestServer(t)
	adminToken := createUser(t, server, database, "admin", model.RoleAdmin)
	userToken := createUser(t, server, database, "ana", model.RoleUser)

	if code := do(t, "DELETE", server.URL+"/api/users/2", adminToken, nil, nil); code != http.StatusOK {
		t.Fatalf("delete user: %d", code)
	}
	if code := do(t, "GET", server.URL+"/api/items", userToken, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 for deleted user, got %d", code)
	}
}

func TestRoleBasedAccess(t *testing.T) {
	server, database := newTestServer(t)
	createUser(t, server, database, "user1", model.RoleUser)

	userToken, _ := auth.GenerateToken(testJWTSecret, 1, "user1", model.RoleUser)

	code := do(t, "POST", server.URL+"/api/items", userToken, map[string]string{"name": "Test"}, nil)
	if code != http.StatusForbidden {
		t.Errorf("expected 403 for user creating item, got %d", code)
	}

	if code := do(t, "GET", server.URL+"/api/users", userToken, nil, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for user accessing users, got %d", code)
	}

	if code := do(t, "GET", server.URL+"/api/inventory/movements", userToken, nil, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for user reading movements, got %d", code)
	}
}

func TestCreateUserValidation(t *testing.T) {
	server, database := newTestServer(t)
	adminToken := createUser(t, server, database, "admin", model.RoleAdmin)

	code := do(t, "POST", server.URL+"/api/users", adminToken, map[string]string{
		"username": "eve", "password": "longenough", "role": "root",
	}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", code)
	}

	code = do(t, "POST", server.URL+"/api/users", adminToken, map[string]string{
		"username": "admin", "password": "longenough", "role": "user",
	}, nil)
	if code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", code)
	}
}

func TestRecordWorkflowAPI(t *testing.T) {
	server, database := newTestServer(t)
	adminToken := createUser(t, server, database, "admin", model.RoleAdmin)
	modToken := createUser(t, server, database, "mod", model.RoleModerator)
	userToken := createUser(t, server, database, "ana", model.RoleUser)
	whID, itemID := seedStock(t, server, adminToken, 10)

	var rec model.Record
	code := do(t, "POST", server.URL+"/api/records", userToken, map[string]any{
		"kind":         "order",
		"warehouse_id": whID,
		"title":        "Laptops for sales",
		"metadata":     map[string]string{"receiver": "Ana"},
		"line_items":   []map[string]any{{"item_id": itemID, "quantity": 3}},
	}, &rec)
	if code != http.StatusCreated {
		t.Fatalf("create record: %d", code)
	}
	if rec.Status != model.StatusRequested {
		t.Fatalf("expected requested, got %q", rec.Status)
	}
	base := server.URL + "/api/records/" + itoa(rec.ID)

	var allowed transitionsResponse
	do(t, "GET", base+"/transitions", modToken, nil, &allowed)
	if len(allowed.Allowed) != 2 || allowed.Allowed[0] != model.StatusApproved {
		t.Errorf("unexpected allowed transitions for moderator: %+v", allowed)
	}
	if allowed.RecordID != rec.ID || allowed.Status != model.StatusRequested || allowed.Version != rec.Version {
		t.Errorf("transitions response does not describe the record it was computed from: %+v", allowed)
	}

	var apiErr errorBody
	code = do(t, "POST", base+"/transitions", userToken, map[string]string{"status": "approved"}, &apiErr)
	if code != http.StatusForbidden || apiErr.Code != workflow.CodeForbidden {
		t.Errorf("expected 403 FORBIDDEN for owner approval, got %d %+v", code, apiErr)
	}

	for _, step := range []struct {
		token  string
		status model.Status
	}{
		{modToken, model.StatusApproved},
		{adminToken, model.StatusConfirmedByShipper},
		{adminToken, model.StatusShipmentCompleted},
	} {
		code = do(t, "POST", base+"/transitions", step.token, map[string]string{"status": string(step.status)}, &rec)
		if code != http.StatusOK {
			t.Fatalf("transition to %s: %d", step.status, code)
		}
		if rec.Status != step.status {
			t.Fatalf("expected %s, got %s", step.status, rec.Status)
		}
	}

	apiErr = errorBody{}
	code = do(t, "POST", base+"/transitions", adminToken, map[string]string{"status": "shipmentCompleted"}, &apiErr)
	if code != http.StatusUnprocessableEntity || apiErr.Code != workflow.CodeInvalidTransition {
		t.Errorf("expected 422 INVALID_TRANSITION for repeated shipment, got %d %+v", code, apiErr)
	}

	var inv []model.InventoryItem
	do(t, "GET", server.URL+"/api/inventory?warehouse_id="+itoa(whID), userToken, nil, &inv)
	if len(inv) != 1 || inv[0].QuantityOnHand != 7 {
		t.Errorf("expected 7 on hand, got %+v", inv)
	}

	var got model.Record
	do(t, "GET", base, userToken, nil, &got)
	if len(got.History) != 3 {
		t.Errorf("expected 3 history entries, got %d", len(got.History))
	}

	var moves []model.Movement
	do(t, "GET", server.URL+"/api/inventory/movements?record_id="+itoa(rec.ID), adminToken, nil, &moves)
	if len(moves) != 1 || moves[0].Delta != -3 {
		t.Errorf("expected one -3 movement, got %+v", moves)
	}
}

func TestInsufficientStockAPI(t *testing.T) {
	server, database := newTestServer(t)
	adminToken := createUser(t, server, database, "admin", model.RoleAdmin)
	modToken := createUser(t, server, database, "mod", model.RoleModerator)
	whID, itemID := seedStock(t, server, adminToken, 3)

	var rec model.Record
	do(t, "POST", server.URL+"/api/records", adminToken, map[string]any{
		"kind":         "demo",
		"warehouse_id": whID,
		"line_items":   []map[string]any{{"item_id": itemID, "quantity": 5}},
	}, &rec)
	base := server.URL + "/api/records/" + itoa(rec.ID) + "/transitions"

	do(t, "POST", base, modToken, map[string]string{"status": "approved"}, nil)
	do(t, "POST", base, adminToken, map[string]string{"status": "confirmedByShipper"}, nil)

	var apiErr errorBody
	code := do(t, "POST", base, adminToken, map[string]string{"status": "shipmentCompleted"}, &apiErr)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if apiErr.Code != workflow.CodeInsufficientStock {
		t.Errorf("expected INSUFFICIENT_STOCK, got %q", apiErr.Code)
	}
	if apiErr.Error != "insufficient stock for item Laptop (have 3, need 5)" {
		t.Errorf("unexpected message %q", apiErr.Error)
	}
	if apiErr.Details["have"] != float64(3) || apiErr.Details["need"] != float64(5) {
		t.Errorf("unexpected details %+v", apiErr.Details)
	}
}

func TestRecordNotFoundAPI(t *testing.T) {
	server, database := newTestServer(t)
	token := createUser(t, server, database, "ana", model.RoleUser)

	var apiErr errorBody
	code := do(t, "GET", server.URL+"/api/records/999", token, nil, &apiErr)
	if code != http.StatusNotFound || apiErr.Code != workflow.CodeNotFound {
		t.Errorf("expected 404 RECORD_NOT_FOUND, got %d %+v", code, apiErr)
	}

	if code := do(t, "GET", server.URL+"/api/records/abc", token, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", code)
	}
}

func TestEditAndCommentsAPI(t *testing.T) {
	server, database := newTestServer(t)
	adminToken := createUser(t, server, database, "admin", model.RoleAdmin)
	userToken := createUser(t, server, database, "ana", model.RoleUser)
	otherToken := createUser(t, server, database, "bor", model.RoleUser)
	whID, itemID := seedStock(t, server, adminToken, 10)

	var rec model.Record
	do(t, "POST", server.URL+"/api/records", userToken, map[string]any{
		"kind":         "order",
		"warehouse_id": whID,
		"line_items":   []map[string]any{{"item_id": itemID, "quantity": 1}},
	}, &rec)
	base := server.URL + "/api/records/" + itoa(rec.ID)

	code := do(t, "PATCH", base, userToken, map[string]any{"memo": "urgent"}, &rec)
	if code != http.StatusOK || rec.Memo != "urgent" || rec.Version != 2 {
		t.Errorf("owner edit: %d %+v", code, rec)
	}
	if code := do(t, "PATCH", base, otherToken, map[string]any{"memo": "mine"}, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for other user edit, got %d", code)
	}

	var c model.Comment
	if code := do(t, "POST", base+"/comments", otherToken, map[string]string{"content": "seen"}, &c); code != http.StatusCreated {
		t.Fatalf("create comment: %d", code)
	}
	commentURL := base + "/comments/" + itoa(c.ID)
	if code := do(t, "PUT", commentURL, userToken, map[string]string{"content": "edited"}, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 editing someone else's comment, got %d", code)
	}
	if code := do(t, "DELETE", commentURL, adminToken, nil, nil); code != http.StatusOK {
		t.Errorf("expected admin to delete comment, got %d", code)
	}

	var comments []model.Comment
	do(t, "GET", base+"/comments", userToken, nil, &comments)
	if len(comments) != 0 {
		t.Errorf("expected no comments, got %d", len(comments))
	}

	if code := do(t, "DELETE", base, userToken, nil, nil); code != http.StatusOK {
		t.Errorf("expected owner delete to succeed, got %d", code)
	}
	if code := do(t, "GET", base, userToken, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", code)
	}
}

func TestTeamsAPI(t *testing.T) {
	server, database := newTestServer(t)
	adminToken := createUser(t, server, database, "admin", model.RoleAdmin)
	createUser(t, server, database, "ana", model.RoleUser)

	var team model.Team
	if code := do(t, "POST", server.URL+"/api/teams", adminToken, map[string]string{"name": "North"}, &team); code != http.StatusCreated {
		t.Fatalf("create team: %d", code)
	}

	teamBase := server.URL + "/api/teams/" + itoa(team.ID)
	code := do(t, "PUT", teamBase+"/members/2", adminToken, map[string]any{"role": "moderator"}, nil)
	if code != http.StatusOK {
		t.Fatalf("put member: %d", code)
	}
	if code := do(t, "PUT", teamBase+"/members/2", adminToken, map[string]any{"role": "owner"}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", code)
	}

	var members []model.Membership
	do(t, "GET", teamBase+"/members", adminToken, nil, &members)
	if len(members) != 1 || members[0].Role == nil || *members[0].Role != model.RoleModerator {
		t.Errorf("unexpected members %+v", members)
	}
}

func TestUserDetailAndPasswordChange(t *testing.T) {
	server, database := newTestServer(t)
	adminToken := createUser(t, server, database, "admin", model.RoleAdmin)
	userToken := createUser(t, server, database, "frank", model.RoleUser)

	frank, _ := store.GetUserByUsername(context.Background(), database, "frank")
	team, _ := store.CreateTeam(context.Background(), database, "Field")
	code := do(t, "PUT", server.URL+"/api/teams/"+itoa(team.ID)+"/members/"+itoa(frank.ID), adminToken,
		map[string]any{"role": "moderator"}, nil)
	if code != http.StatusOK {
		t.Fatalf("put member: %d", code)
	}

	var detail struct {
		Username    string             `json:"username"`
		Memberships []model.Membership `json:"memberships"`
	}
	if code := do(t, "GET", server.URL+"/api/users/"+itoa(frank.ID), adminToken, nil, &detail); code != http.StatusOK {
		t.Fatalf("get user: %d", code)
	}
	if detail.Username != "frank" || len(detail.Memberships) != 1 {
		t.Fatalf("unexpected user detail %+v", detail)
	}
	if r := detail.Memberships[0].Role; r == nil || *r != model.RoleModerator {
		t.Errorf("expected moderator override, got %v", r)
	}

	code = do(t, "PUT", server.URL+"/api/auth/password", userToken, map[string]string{
		"current_password": "wrong-one", "new_password": "brand-new-pass",
	}, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong current password, got %d", code)
	}
	code = do(t, "PUT", server.URL+"/api/auth/password", userToken, map[string]string{
		"current_password": "password", "new_password": "brand-new-pass",
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("change password: %d", code)
	}

	body, _ := json.Marshal(map[string]string{"username": "frank", "password": "brand-new-pass"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected login with new password, got %d", resp.StatusCode)
	}
}

func TestAddStockUnknownReferences(t *testing.T) {
	server, database := newTestServer(t)
	adminToken := createUser(t, server, database, "admin", model.RoleAdmin)
	warehouseID, itemID := seedStock(t, server, adminToken, 5)

	var apiErr errorBody
	code := do(t, "POST", server.URL+"/api/inventory/stock", adminToken, map[string]any{
		"warehouse_id": warehouseID, "item_id": itemID + 100, "quantity": 1,
	}, &apiErr)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown item, got %d", code)
	}
	if apiErr.Error != store.ErrItemNotFound.Error() {
		t.Errorf("expected item not found message, got %q", apiErr.Error)
	}

	code = do(t, "POST", server.URL+"/api/inventory/stock", adminToken, map[string]any{
		"warehouse_id": warehouseID + 100, "item_id": itemID, "quantity": 1,
	}, &apiErr)
	if code != http.StatusBadRequest || apiErr.Error != store.ErrWarehouseNotFound.Error() {
		t.Errorf("expected 400 warehouse not found, got %d %q", code, apiErr.Error)
	}
}

func TestAddStockDatabaseFailureIsInternal(t *testing.T) {
	database := db.NewTestDB(t)
	h := &InventoryHandler{DB: database}
	database.Close()

	body, _ := json.Marshal(map[string]any{"warehouse_id": 1, "item_id": 1, "quantity": 1})
	req := httptest.NewRequest("POST", "/api/inventory/stock", bytes.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), claimsKey, &auth.Claims{UserID: 1, Username: "admin"}))
	rec := httptest.NewRecorder()

	h.AddStock(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var apiErr errorBody
	json.NewDecoder(rec.Body).Decode(&apiErr)
	if apiErr.Error != "internal error" {
		t.Errorf("expected generic message, got %q", apiErr.Error)
	}
}
