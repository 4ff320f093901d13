// Package workflow implements the order and demo approval state machine, its
// role-scoped permissions and the inventory effects tied to its edges.
package workflow

import (
	"slices"

	"github.com/erazemk/nalog/internal/model"
)

// Effect is the inventory side effect of taking an edge.
type Effect int

// Edge effects.
const (
	EffectNone Effect = iota
	EffectDeduct
	EffectRestore
)

func (e Effect) String() string {
	switch e {
	case EffectDeduct:
		return "deduct"
	case EffectRestore:
		return "restore"
	}
	return "none"
}

// Edge is one legal status change.
type Edge struct {
	From   model.Status
	To     model.Status
	Kinds  []model.Kind
	Roles  []model.Role
	Effect Effect
}

var bothKinds = []model.Kind{model.KindOrder, model.KindDemo}

// edges is the complete transition table. Permission checks, listing and
// validation all read from it.
var edges = []Edge{
	{From: model.StatusRequested, To: model.StatusApproved, Kinds: bothKinds, Roles: []model.Role{model.RoleModerator}},
	{From: model.StatusRequested, To: model.StatusRejected, Kinds: bothKinds, Roles: []model.Role{model.RoleModerator}},
	{From: model.StatusApproved, To: model.StatusConfirmedByShipper, Kinds: bothKinds, Roles: []model.Role{model.RoleAdmin}},
	{From: model.StatusApproved, To: model.StatusRejectedByShipper, Kinds: bothKinds, Roles: []model.Role{model.RoleAdmin}},
	{From: model.StatusConfirmedByShipper, To: model.StatusShipmentCompleted, Kinds: bothKinds, Roles: []model.Role{model.RoleAdmin}, Effect: EffectDeduct},
	{From: model.StatusShipmentCompleted, To: model.StatusDemoCompleted, Kinds: []model.Kind{model.KindDemo}, Roles: []model.Role{model.RoleAdmin}, Effect: EffectRestore},
}

// Edges returns a copy of the transition table.
func Edges() []Edge {
	return slices.Clone(edges)
}

func lookupEdge(kind model.Kind, from, to model.Status) (Edge, bool) {
	for _, e := range edges {
		if e.From == from && e.To == to && slices.Contains(e.Kinds, kind) {
			return e, true
		}
	}
	return Edge{}, false
}

// outgoing returns the edges leaving from for a record kind.
func outgoing(kind model.Kind, from model.Status) []Edge {
	var out []Edge
	for _, e := range edges {
		if e.From == from && slices.Contains(e.Kinds, kind) {
			out = append(out, e)
		}
	}
	return out
}

// ValidTransition reports whether from → to is a legal edge for the kind.
func ValidTransition(kind model.Kind, from, to model.Status) bool {
	_, ok := lookupEdge(kind, from, to)
	return ok
}

// IsTerminal reports whether a record of the kind has no way out of status.
func IsTerminal(kind model.Kind, status model.Status) bool {
	return len(outgoing(kind, status)) == 0
}

// StockMoved reports whether a record in status has already had inventory
// applied, meaning it was reached through a deducting edge.
func StockMoved(kind model.Kind, status model.Status) bool {
	seen := map[model.Status]bool{}
	var queue []model.Status
	for _, e := range edges {
		if e.Effect == EffectDeduct && slices.Contains(e.Kinds, kind) && !seen[e.To] {
			seen[e.To] = true
			queue = append(queue, e.To)
		}
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, e := range outgoing(kind, s) {
			if !seen[e.To] {
				seen[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return seen[status]
}
