package schema_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvt2106/magicstore/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
entities:
  - name: Customer
    fields:
      - {name: Name, type: string, required: true, length: {min: 1, max: 50}, unique: ""}
      - {name: Orders, relation: Order, many: true}
  - name: Order
    fields:
      - {name: Code, type: string, unique: code}
      - {name: Region, type: string, unique: code}
      - {name: Total, type: double}
      - {name: ClosedAt, type: timestamp, nullable: true}
      - {name: Customer, relation: Customer, required: true}
`

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	entities, err := schema.LoadCatalog(strings.NewReader(catalogYAML))
	require.NoError(t, err)
	require.Len(t, entities, 2)
	require.NoError(t, schema.Validate(entities))

	customer, order := entities[0], entities[1]
	name, _ := customer.Field("Name")
	assert.True(t, name.Required)
	assert.Equal(t, 50, name.MaxLen)
	assert.Equal(t, schema.DefaultUniqueGroup, name.UniqueGroup)
	orders, _ := customer.Field("Orders")
	assert.True(t, orders.IsCollection())

	total, _ := order.Field("Total")
	assert.Equal(t, schema.TypeFloat64, total.Type)
	closed, _ := order.Field("ClosedAt")
	assert.True(t, closed.Nullable)
	cust, _ := order.Field("Customer")
	assert.True(t, cust.IsSingularRelation())
	assert.True(t, cust.Required)
	assert.Equal(t, []string{"Code", "Region"}, order.UniqueGroups()[0].Fields)
}

func TestLoadCatalogErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown_key", func(t *testing.T) {
		_, err := schema.LoadCatalog(strings.NewReader("entities:\n  - name: A\n    colour: red\n"))
		assert.ErrorContains(t, err, "decode catalog")
	})

	t.Run("bad_length", func(t *testing.T) {
		in := "entities:\n  - name: A\n    fields:\n      - {name: B, type: string, length: {min: 5, max: 1}}\n"
		_, err := schema.LoadCatalog(strings.NewReader(in))
		assert.ErrorContains(t, err, "A.B")
	})

	t.Run("unknown_type_is_structural", func(t *testing.T) {
		in := "entities:\n  - name: A\n    fields:\n      - {name: B, type: money}\n"
		entities, err := schema.LoadCatalog(strings.NewReader(in))
		require.NoError(t, err)
		err = schema.Validate(entities)
		assert.ErrorContains(t, err, "Type 'money' is not valid for property 'B'")
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := schema.LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "open catalog")
	})
}

func TestMarshalCatalog(t *testing.T) {
	t.Parallel()

	entities, err := schema.LoadCatalog(strings.NewReader(catalogYAML))
	require.NoError(t, err)
	out, err := schema.MarshalCatalog(entities)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, out, 0o600))
	again, err := schema.LoadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, again, 2)
	for i := range entities {
		assert.Equal(t, entities[i].Name, again[i].Name)
		require.Len(t, again[i].Fields, len(entities[i].Fields))
		for j, f := range entities[i].Fields {
			g := again[i].Fields[j]
			assert.Equal(t, f.Name, g.Name)
			assert.Equal(t, f.Kind, g.Kind)
			assert.Equal(t, f.Type, g.Type)
			assert.Equal(t, f.UniqueGroup, g.UniqueGroup)
			assert.Equal(t, f.MaxLen, g.MaxLen)
		}
	}
}
