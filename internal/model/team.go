package model

import "time"

// Team groups users and the warehouses they operate on.
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership links a user to a team. Role, when set, overrides the user's base
// role for records in the team's warehouses. RestrictedWarehouses hides those
// warehouses from the member's record lists.
type Membership struct {
	TeamID               int64   `json:"team_id"`
	UserID               int64   `json:"user_id"`
	Role                 *Role   `json:"role,omitempty"`
	RestrictedWarehouses []int64 `json:"restricted_warehouses"`

	// Joined fields (not always populated).
	Username string `json:"username,omitempty"`
}

// Warehouse is a stock location owned by a team.
type Warehouse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	TeamID    *int64     `json:"team_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
