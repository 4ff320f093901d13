package workflow

import (
	"slices"

	"github.com/erazemk/nalog/internal/model"
)

// Statuses from which each role may act at all. Targets still come from the
// edge table.
var (
	adminGate     = []model.Status{model.StatusApproved, model.StatusConfirmedByShipper, model.StatusShipmentCompleted, model.StatusRejectedByShipper}
	moderatorGate = []model.Status{model.StatusRequested, model.StatusApproved, model.StatusRejected}
)

// AllowedTransitions returns the statuses actor may move r into, in table
// order. Terminal records and roles without workflow rights get nil.
func AllowedTransitions(actor model.Actor, r *model.Record) []model.Status {
	if IsTerminal(r.Kind, r.Status) {
		return nil
	}

	switch actor.Role {
	case model.RoleAdmin:
		if !slices.Contains(adminGate, r.Status) {
			return nil
		}
	case model.RoleModerator:
		if !slices.Contains(moderatorGate, r.Status) {
			return nil
		}
	case model.RoleUser, model.RoleSupplier:
		return nil
	default:
		return nil
	}

	var out []model.Status
	for _, e := range outgoing(r.Kind, r.Status) {
		if !slices.Contains(e.Roles, actor.Role) {
			continue
		}
		if selfApproval(actor, r, e.To) {
			continue
		}
		out = append(out, e.To)
	}
	return out
}

// selfApproval reports whether a moderator would be deciding on their own
// record. Admins are not restricted.
func selfApproval(actor model.Actor, r *model.Record, to model.Status) bool {
	if actor.Role != model.RoleModerator || r.OwnerUserID != actor.UserID {
		return false
	}
	return to == model.StatusApproved || to == model.StatusRejected
}

// CanEdit reports whether actor may change r's details: admins always, owners
// only while the record is still requested.
func CanEdit(actor model.Actor, r *model.Record) bool {
	if actor.IsAdmin() {
		return true
	}
	return r.OwnerUserID == actor.UserID && r.Status == model.StatusRequested
}

// CanDelete reports whether actor may remove r. Only requested records can be
// removed, by their owner or an admin.
func CanDelete(actor model.Actor, r *model.Record) bool {
	if r.Status != model.StatusRequested {
		return false
	}
	return actor.IsAdmin() || r.OwnerUserID == actor.UserID
}

// CanModifyComment reports whether actor may edit or delete a comment.
func CanModifyComment(actor model.Actor, c *model.Comment) bool {
	return actor.IsAdmin() || c.UserID == actor.UserID
}
