package privacy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvt2106/magicstore/privacy"
)

func TestViewerContext(t *testing.T) {
	assert.Nil(t, privacy.ViewerFromContext(context.Background()))

	v := &privacy.SimpleViewer{UserID: "u1", Roles: []string{"admin"}, TenantID: "t1"}
	got := privacy.ViewerFromContext(privacy.WithViewer(context.Background(), v))
	assert.Equal(t, "u1", got.GetID())
	assert.Equal(t, []string{"admin"}, got.GetRoles())
	assert.Equal(t, "t1", got.GetTenantID())
}

func TestDenyIfNoViewer(t *testing.T) {
	rule := privacy.DenyIfNoViewer()
	assert.ErrorIs(t, rule.EvalQuery(context.Background(), &mockQuery{}), privacy.Deny)
	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u1"})
	assert.ErrorIs(t, rule.EvalMutation(ctx, &mockMutation{}), privacy.Skip)
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		name   string
		viewer *privacy.SimpleViewer
		rule   privacy.QueryMutationRule
		want   error
	}{
		{name: "no viewer", rule: privacy.HasRole("admin"), want: privacy.Skip},
		{name: "role", viewer: &privacy.SimpleViewer{Roles: []string{"user", "admin"}}, rule: privacy.HasRole("admin"), want: privacy.Allow},
		{name: "other role", viewer: &privacy.SimpleViewer{Roles: []string{"user"}}, rule: privacy.HasRole("admin"), want: privacy.Skip},
		{name: "any role", viewer: &privacy.SimpleViewer{Roles: []string{"moderator"}}, rule: privacy.HasAnyRole("admin", "moderator"), want: privacy.Allow},
		{name: "none of roles", viewer: &privacy.SimpleViewer{}, rule: privacy.HasAnyRole("admin", "moderator"), want: privacy.Skip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.viewer != nil {
				ctx = privacy.WithViewer(ctx, tt.viewer)
			}
			assert.ErrorIs(t, tt.rule.EvalQuery(ctx, &mockQuery{}), tt.want)
			assert.ErrorIs(t, tt.rule.EvalMutation(ctx, &mockMutation{}), tt.want)
		})
	}
}

func TestIsOwner(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		viewer *privacy.SimpleViewer
		want   error
	}{
		{name: "matching string", fields: map[string]any{"OwnerId": "user-123"}, viewer: &privacy.SimpleViewer{UserID: "user-123"}, want: privacy.Allow},
		{name: "matching int", fields: map[string]any{"OwnerId": int64(123)}, viewer: &privacy.SimpleViewer{UserID: "123"}, want: privacy.Allow},
		{name: "other owner", fields: map[string]any{"OwnerId": "user-456"}, viewer: &privacy.SimpleViewer{UserID: "user-123"}, want: privacy.Skip},
		{name: "nil owner", fields: map[string]any{"OwnerId": nil}, viewer: &privacy.SimpleViewer{UserID: "<nil>"}, want: privacy.Skip},
		{name: "no field", viewer: &privacy.SimpleViewer{UserID: "user-123"}, want: privacy.Skip},
		{name: "no viewer", fields: map[string]any{"OwnerId": "user-123"}, want: privacy.Skip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.viewer != nil {
				ctx = privacy.WithViewer(ctx, tt.viewer)
			}
			err := privacy.IsOwner("OwnerId").EvalMutation(ctx, &mockMutation{fields: tt.fields})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOwnerQueryRule(t *testing.T) {
	rule := privacy.OwnerQueryRule("OwnerId")
	assert.ErrorIs(t, rule.EvalQuery(context.Background(), &mockQuery{}), privacy.Deny)

	q := &mockQuery{}
	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u1"})
	assert.ErrorIs(t, rule.EvalQuery(ctx, q), privacy.Skip)
	assert.Equal(t, `(OwnerId == "u1")`, q.Conditions().String())
}

func TestTenantRule(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		viewer *privacy.SimpleViewer
		want   error
	}{
		{name: "matching tenant", fields: map[string]any{"TenantId": "t1"}, viewer: &privacy.SimpleViewer{TenantID: "t1"}, want: privacy.Allow},
		{name: "tenant mismatch", fields: map[string]any{"TenantId": "t2"}, viewer: &privacy.SimpleViewer{TenantID: "t1"}, want: privacy.Deny},
		{name: "nil tenant", fields: map[string]any{"TenantId": nil}, viewer: &privacy.SimpleViewer{TenantID: "t1"}, want: privacy.Deny},
		{name: "viewer without tenant", fields: map[string]any{"TenantId": "t1"}, viewer: &privacy.SimpleViewer{}, want: privacy.Skip},
		{name: "no field", viewer: &privacy.SimpleViewer{TenantID: "t1"}, want: privacy.Skip},
		{name: "no viewer", fields: map[string]any{"TenantId": "t1"}, want: privacy.Skip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.viewer != nil {
				ctx = privacy.WithViewer(ctx, tt.viewer)
			}
			err := privacy.TenantRule("TenantId").EvalMutation(ctx, &mockMutation{fields: tt.fields})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTenantQueryRule(t *testing.T) {
	rule := privacy.TenantQueryRule("TenantId")
	assert.ErrorIs(t, rule.EvalQuery(context.Background(), &mockQuery{}), privacy.Deny)
	noTenant := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u1"})
	assert.ErrorIs(t, rule.EvalQuery(noTenant, &mockQuery{}), privacy.Deny)

	q := &mockQuery{}
	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{TenantID: "t1"})
	assert.ErrorIs(t, rule.EvalQuery(ctx, q), privacy.Skip)
	assert.Equal(t, `(TenantId == "t1")`, q.Conditions().String())
}

func TestIntegratedPolicyChain(t *testing.T) {
	policy := privacy.Policy{
		Mutation: privacy.MutationPolicy{
			privacy.DenyIfNoViewer(),
			privacy.HasRole("admin"),
			privacy.DenyMutationOperationRule(privacy.OpDelete),
			privacy.IsOwner("OwnerId"),
			privacy.AlwaysDenyRule(),
		},
	}
	owned := map[string]any{"OwnerId": "u1"}
	tests := []struct {
		name   string
		viewer *privacy.SimpleViewer
		m      *mockMutation
		want   error
	}{
		{name: "anonymous", m: &mockMutation{op: privacy.OpCreate, fields: owned}, want: privacy.Deny},
		{name: "admin deletes", viewer: &privacy.SimpleViewer{UserID: "a", Roles: []string{"admin"}}, m: &mockMutation{op: privacy.OpDelete}, want: privacy.Allow},
		{name: "owner deletes", viewer: &privacy.SimpleViewer{UserID: "u1"}, m: &mockMutation{op: privacy.OpDelete, fields: owned}, want: privacy.Deny},
		{name: "owner updates", viewer: &privacy.SimpleViewer{UserID: "u1"}, m: &mockMutation{op: privacy.OpUpdate, fields: owned}, want: privacy.Allow},
		{name: "stranger updates", viewer: &privacy.SimpleViewer{UserID: "u2"}, m: &mockMutation{op: privacy.OpUpdate, fields: owned}, want: privacy.Deny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.viewer != nil {
				ctx = privacy.WithViewer(ctx, tt.viewer)
			}
			assert.ErrorIs(t, policy.EvalMutation(ctx, tt.m), tt.want)
		})
	}
}
