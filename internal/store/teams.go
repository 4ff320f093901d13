package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/nalog/internal/model"
)

// CreateTeam creates a new team.
func CreateTeam(ctx context.Context, db DBTX, name string) (*model.Team, error) {
	result, err := db.ExecContext(ctx, `INSERT INTO teams (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating team: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting team id: %w", err)
	}
	return GetTeam(ctx, db, id)
}

// GetTeam returns a team by ID.
func GetTeam(ctx context.Context, db DBTX, id int64) (*model.Team, error) {
	t := &model.Team{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM teams WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return t, nil
}

// ListTeams returns all teams.
func ListTeams(ctx context.Context, db DBTX) ([]model.Team, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// PutMembership adds a user to a team or replaces the existing membership.
func PutMembership(ctx context.Context, db DBTX, m model.Membership) error {
	restricted := m.RestrictedWarehouses
	if restricted == nil {
		restricted = []int64{}
	}
	encoded, err := json.Marshal(restricted)
	if err != nil {
		return fmt.Errorf("encoding restricted warehouses: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id, role, restricted_warehouses) VALUES (?, ?, ?, ?)
		 ON CONFLICT (team_id, user_id) DO UPDATE
		 SET role = excluded.role, restricted_warehouses = excluded.restricted_warehouses`,
		m.TeamID, m.UserID, m.Role, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("saving membership: %w", err)
	}
	return nil
}

// ListMemberships returns the members of a team.
func ListMemberships(ctx context.Context, db DBTX, teamID int64) ([]model.Membership, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT tm.team_id, tm.user_id, tm.role, tm.restricted_warehouses, u.username
		 FROM team_members tm
		 JOIN users u ON u.id = tm.user_id
		 WHERE tm.team_id = ? AND u.deleted_at IS NULL
		 ORDER BY u.username`, teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	var members []model.Membership
	for rows.Next() {
		m, err := scanMembership(rows, true)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// ListUserMemberships returns every team membership of a user.
func ListUserMemberships(ctx context.Context, db DBTX, userID int64) ([]model.Membership, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT team_id, user_id, role, restricted_warehouses
		 FROM team_members WHERE user_id = ? ORDER BY team_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing user memberships: %w", err)
	}
	defer rows.Close()

	var members []model.Membership
	for rows.Next() {
		m, err := scanMembership(rows, false)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner, withUsername bool) (*model.Membership, error) {
	var m model.Membership
	var role sql.NullString
	var restricted string
	dest := []any{&m.TeamID, &m.UserID, &role, &restricted}
	if withUsername {
		dest = append(dest, &m.Username)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if role.Valid {
		r := model.Role(role.String)
		m.Role = &r
	}
	if err := json.Unmarshal([]byte(restricted), &m.RestrictedWarehouses); err != nil {
		return nil, fmt.Errorf("decoding restricted warehouses: %w", err)
	}
	return &m, nil
}

// ResolveActor returns the actor for userID acting on a record in warehouseID.
// The user's base role applies unless their membership in the warehouse's team
// overrides it. Returns nil if the user does not exist or is deleted.
func ResolveActor(ctx context.Context, db DBTX, userID, warehouseID int64) (*model.Actor, error) {
	user, err := GetUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.DeletedAt != nil {
		return nil, nil
	}

	actor := &model.Actor{UserID: user.ID, Role: user.Role}

	m, err := scanMembership(db.QueryRowContext(ctx,
		`SELECT tm.team_id, tm.user_id, tm.role, tm.restricted_warehouses
		 FROM team_members tm
		 JOIN warehouses w ON w.team_id = tm.team_id
		 WHERE w.id = ? AND tm.user_id = ?`, warehouseID, userID,
	), false)
	if err == sql.ErrNoRows {
		return actor, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving team role: %w", err)
	}
	if m.Role != nil && m.Role.Valid() {
		actor.Role = *m.Role
	}
	return actor, nil
}

// RestrictedWarehouses returns every warehouse hidden from the user across all
// of their team memberships.
func RestrictedWarehouses(ctx context.Context, db DBTX, userID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT restricted_warehouses FROM team_members WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing restricted warehouses: %w", err)
	}
	defer rows.Close()

	seen := map[int64]bool{}
	var out []int64
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning restricted warehouses: %w", err)
		}
		var ids []int64
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, fmt.Errorf("decoding restricted warehouses: %w", err)
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, rows.Err()
}
