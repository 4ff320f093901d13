package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/erazemk/nalog/internal/model"
)

var allRoles = []model.Role{model.RoleUser, model.RoleModerator, model.RoleAdmin, model.RoleSupplier}

func TestAllowedTransitions(t *testing.T) {
	const owner, other = 1, 2

	tests := []struct {
		name   string
		role   model.Role
		actor  int64
		kind   model.Kind
		status model.Status
		want   []model.Status
	}{
		{"moderator approves", model.RoleModerator, other, model.KindOrder, model.StatusRequested,
			[]model.Status{model.StatusApproved, model.StatusRejected}},
		{"moderator own record", model.RoleModerator, owner, model.KindOrder, model.StatusRequested, nil},
		{"moderator past gate", model.RoleModerator, other, model.KindOrder, model.StatusApproved, nil},
		{"admin before approval", model.RoleAdmin, other, model.KindOrder, model.StatusRequested, nil},
		{"admin confirms", model.RoleAdmin, other, model.KindOrder, model.StatusApproved,
			[]model.Status{model.StatusConfirmedByShipper, model.StatusRejectedByShipper}},
		{"admin own record", model.RoleAdmin, owner, model.KindDemo, model.StatusApproved,
			[]model.Status{model.StatusConfirmedByShipper, model.StatusRejectedByShipper}},
		{"admin ships", model.RoleAdmin, other, model.KindOrder, model.StatusConfirmedByShipper,
			[]model.Status{model.StatusShipmentCompleted}},
		{"admin demo return", model.RoleAdmin, other, model.KindDemo, model.StatusShipmentCompleted,
			[]model.Status{model.StatusDemoCompleted}},
		{"order shipped is terminal", model.RoleAdmin, other, model.KindOrder, model.StatusShipmentCompleted, nil},
		{"rejected by shipper is terminal", model.RoleAdmin, other, model.KindOrder, model.StatusRejectedByShipper, nil},
		{"user", model.RoleUser, owner, model.KindOrder, model.StatusRequested, nil},
		{"supplier", model.RoleSupplier, other, model.KindOrder, model.StatusApproved, nil},
		{"unknown role", model.Role("root"), other, model.KindOrder, model.StatusRequested, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &model.Record{ID: 1, Kind: tt.kind, OwnerUserID: owner, Status: tt.status}
			got := AllowedTransitions(model.Actor{UserID: tt.actor, Role: tt.role}, r)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeratorNeverSelfApproves(t *testing.T) {
	actor := model.Actor{UserID: 5, Role: model.RoleModerator}
	for _, kind := range []model.Kind{model.KindOrder, model.KindDemo} {
		for _, s := range model.Statuses {
			r := &model.Record{Kind: kind, OwnerUserID: 5, Status: s}
			got := AllowedTransitions(actor, r)
			assert.NotContains(t, got, model.StatusApproved, "%s %s", kind, s)
			assert.NotContains(t, got, model.StatusRejected, "%s %s", kind, s)
		}
	}
}

func TestAllowedTransitionsAreLegalEdges(t *testing.T) {
	for _, role := range allRoles {
		for _, kind := range []model.Kind{model.KindOrder, model.KindDemo} {
			for _, s := range model.Statuses {
				r := &model.Record{Kind: kind, OwnerUserID: 1, Status: s}
				for _, to := range AllowedTransitions(model.Actor{UserID: 2, Role: role}, r) {
					assert.True(t, ValidTransition(kind, s, to), "%s offered %s %s -> %s", role, kind, s, to)
				}
			}
		}
	}
}

func TestCanEdit(t *testing.T) {
	r := &model.Record{OwnerUserID: 1, Status: model.StatusRequested}

	assert.True(t, CanEdit(model.Actor{UserID: 1, Role: model.RoleUser}, r))
	assert.False(t, CanEdit(model.Actor{UserID: 2, Role: model.RoleModerator}, r))
	assert.True(t, CanEdit(model.Actor{UserID: 2, Role: model.RoleAdmin}, r))

	r.Status = model.StatusApproved
	assert.False(t, CanEdit(model.Actor{UserID: 1, Role: model.RoleUser}, r))
	assert.True(t, CanEdit(model.Actor{UserID: 2, Role: model.RoleAdmin}, r))
}

func TestCanDelete(t *testing.T) {
	r := &model.Record{OwnerUserID: 1, Status: model.StatusRequested}

	assert.True(t, CanDelete(model.Actor{UserID: 1, Role: model.RoleUser}, r))
	assert.True(t, CanDelete(model.Actor{UserID: 3, Role: model.RoleAdmin}, r))
	assert.False(t, CanDelete(model.Actor{UserID: 2, Role: model.RoleModerator}, r))

	r.Status = model.StatusApproved
	assert.False(t, CanDelete(model.Actor{UserID: 3, Role: model.RoleAdmin}, r))
}

func TestCanModifyComment(t *testing.T) {
	c := &model.Comment{UserID: 1}
	assert.True(t, CanModifyComment(model.Actor{UserID: 1, Role: model.RoleUser}, c))
	assert.True(t, CanModifyComment(model.Actor{UserID: 2, Role: model.RoleAdmin}, c))
	assert.False(t, CanModifyComment(model.Actor{UserID: 2, Role: model.RoleModerator}, c))
}
