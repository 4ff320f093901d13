package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/nalog/internal/model"
	"github.com/erazemk/nalog/internal/store"
)

// TeamsHandler handles teams and their memberships.
type TeamsHandler struct {
	DB *sql.DB
}

type createTeamRequest struct {
	Name string `json:"name"`
}

type putMemberRequest struct {
	Role                 *string `json:"role"`
	RestrictedWarehouses []int64 `json:"restricted_warehouses"`
}

// List handles GET /api/teams.
func (h *TeamsHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := store.ListTeams(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	jsonResponse(w, http.StatusOK, teams)
}

// Create handles POST /api/teams.
func (h *TeamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	team, err := store.CreateTeam(r.Context(), h.DB, req.Name)
	if errors.Is(err, store.ErrDuplicate) {
		jsonError(w, http.StatusConflict, "team already exists")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("team created", "user", GetClaims(r.Context()).Username, "team", team.Name)
	jsonResponse(w, http.StatusCreated, team)
}

// ListMembers handles GET /api/teams/{id}/members.
func (h *TeamsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	members, err := store.ListMemberships(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if members == nil {
		members = []model.Membership{}
	}
	jsonResponse(w, http.StatusOK, members)
}

// PutMember handles PUT /api/teams/{id}/members/{userID}. A null role clears
// the override so the user's base role applies.
func (h *TeamsHandler) PutMember(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req putMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m := model.Membership{TeamID: teamID, UserID: userID, RestrictedWarehouses: req.RestrictedWarehouses}
	if req.Role != nil {
		role, err := model.ParseRole(*req.Role)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		m.Role = &role
	}

	team, err := store.GetTeam(r.Context(), h.DB, teamID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if team == nil {
		jsonError(w, http.StatusNotFound, "team not found")
		return
	}
	user, err := store.GetUser(r.Context(), h.DB, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := store.PutMembership(r.Context(), h.DB, m); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("team membership updated", "user", GetClaims(r.Context()).Username,
		"team", team.Name, "member", user.Username, "role_override", m.Role)
	jsonResponse(w, http.StatusOK, m)
}
