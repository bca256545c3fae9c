package edge_test

import (
	"testing"

	"github.com/nvt2106/magicstore/schema"
	"github.com/nvt2106/magicstore/schema/edge"
	"github.com/nvt2106/magicstore/schema/field"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		build    func() *edge.Descriptor
		validate func(t *testing.T, desc *edge.Descriptor)
	}{
		{
			name: "collection",
			build: func() *edge.Descriptor {
				return edge.To("Orders", "Order").Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				assert.Equal(t, "Orders", desc.Name)
				assert.Equal(t, "Order", desc.Target)
				assert.Equal(t, schema.KindCollectionRelation, desc.Kind)
				assert.Equal(t, "[]Order", desc.TypeName)
				assert.True(t, desc.Virtual)
				assert.True(t, desc.IsCollection())
			},
		},
		{
			name: "singular",
			build: func() *edge.Descriptor {
				return edge.To("Customer", "Customer").Unique().Required().Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				assert.Equal(t, schema.KindSingularRelation, desc.Kind)
				assert.Equal(t, "Customer", desc.TypeName)
				assert.True(t, desc.Required)
				assert.True(t, desc.IsSingularRelation())
			},
		},
		{
			name: "unique_group",
			build: func() *edge.Descriptor {
				return edge.To("Region", "Region").Unique().UniqueIn("code").Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				assert.Equal(t, "code", desc.UniqueGroup)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.validate(t, tt.build())
		})
	}
}

func TestUniqueGroupUsesIdField(t *testing.T) {
	t.Parallel()

	e, err := schema.New("Order",
		field.String("Code").UniqueIn("code"),
		edge.To("Region", "Region").Unique().UniqueIn("code"),
	)
	require.NoError(t, err)
	groups := e.UniqueGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"Code", "RegionId"}, groups[0].Fields)
}
