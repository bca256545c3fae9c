package schema_test

import (
	"math"
	"testing"
	"time"

	"github.com/nvt2106/magicstore/schema"
	"github.com/nvt2106/magicstore/schema/edge"
	"github.com/nvt2106/magicstore/schema/field"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	e, err := schema.New("Order",
		field.String("Code"),
		field.Float("Total"),
		edge.To("Customer", "Customer").Unique(),
		edge.To("Items", "OrderItem"),
	)
	require.NoError(t, err)
	assert.Equal(t, "Order", e.String())
	require.Len(t, e.Fields, 4)

	f, ok := e.Field("Total")
	require.True(t, ok)
	assert.Equal(t, schema.TypeFloat64, f.Type)
	_, ok = e.Field("Missing")
	assert.False(t, ok)

	assert.Len(t, e.StoredFields(), 2)
	assert.Len(t, e.Relations(), 2)
	assert.True(t, e.HasSingularRelationTo("Customer"))
	assert.False(t, e.HasSingularRelationTo("OrderItem"))
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		entity string
		fields []schema.Descriptor
		want   []string
	}{
		{
			name:   "invalid_entity_name",
			entity: "1Order",
			want:   []string{"not a valid identifier"},
		},
		{
			name:   "invalid_field_name",
			entity: "Order",
			fields: []schema.Descriptor{field.String("my code")},
			want:   []string{`"my code"`},
		},
		{
			name:   "duplicate_fields",
			entity: "Order",
			fields: []schema.Descriptor{field.String("Code"), field.Int("Code")},
			want:   []string{"duplicate field Order.Code"},
		},
		{
			name:   "all_errors",
			entity: "Order",
			fields: []schema.Descriptor{
				field.String("a b"),
				field.String("Code").Length(3, 1),
			},
			want: []string{`"a b"`, "Order.Code"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := schema.New(tt.entity, tt.fields...)
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}

	assert.Panics(t, func() { schema.MustNew("bad name") })
}

func TestUniqueGroups(t *testing.T) {
	t.Parallel()

	e := schema.MustNew("Order",
		field.String("Code").UniqueIn("code"),
		field.String("Name").Unique(),
		field.String("Region").UniqueIn("code"),
		edge.To("Items", "OrderItem"),
	)
	groups := e.UniqueGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, schema.UniqueGroup{Name: "code", Fields: []string{"Code", "Region"}}, groups[0])
	assert.Equal(t, schema.UniqueGroup{Name: schema.DefaultUniqueGroup, Fields: []string{"Name"}}, groups[1])
}

func TestParseType(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]schema.Type{
		"bool":      schema.TypeBool,
		"smallint":  schema.TypeInt16,
		"int32":     schema.TypeInt32,
		"int":       schema.TypeInt64,
		"Double":    schema.TypeFloat64,
		"text":      schema.TypeString,
		"uuid":      schema.TypeUUID,
		"timestamp": schema.TypeTime,
	} {
		got, err := schema.ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := schema.ParseType("decimal")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	now := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	n := int32(7)
	tests := []struct {
		name string
		typ  schema.Type
		in   any
		want any
	}{
		{"nil", schema.TypeString, nil, nil},
		{"nil_pointer", schema.TypeInt32, (*int32)(nil), nil},
		{"pointer", schema.TypeInt32, &n, int64(7)},
		{"int", schema.TypeInt64, 42, int64(42)},
		{"uint8", schema.TypeInt16, uint8(3), int64(3)},
		{"string_int", schema.TypeInt64, " 12 ", int64(12)},
		{"whole_float", schema.TypeInt64, 3.0, int64(3)},
		{"float32", schema.TypeFloat64, float32(1.5), 1.5},
		{"int_to_float", schema.TypeFloat64, 2, 2.0},
		{"bool_string", schema.TypeBool, "true", true},
		{"bool_int", schema.TypeBool, int64(0), false},
		{"bytes_string", schema.TypeString, []byte("abc"), "abc"},
		{"uuid_string", schema.TypeUUID, id.String(), id},
		{"uuid_bytes", schema.TypeUUID, id[:], id},
		{"time_string", schema.TypeTime, "2024-05-01T10:30:00Z", now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.typ.Normalize(tt.in)
			require.NoError(t, err)
			if want, ok := tt.want.(time.Time); ok {
				assert.True(t, want.Equal(got.(time.Time)))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  schema.Type
		in   any
	}{
		{"int16_overflow", schema.TypeInt16, math.MaxInt16 + 1},
		{"int32_overflow", schema.TypeInt32, int64(math.MaxInt32) + 1},
		{"fraction", schema.TypeInt64, 1.5},
		{"bad_int", schema.TypeInt64, "abc"},
		{"bad_uuid", schema.TypeUUID, "not-a-uuid"},
		{"bad_time", schema.TypeTime, "yesterday"},
		{"string_from_int", schema.TypeString, 5},
		{"invalid_type", schema.TypeInvalid, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.typ.Normalize(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestEqualAndIsZero(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.True(t, schema.Equal(nil, nil))
	assert.False(t, schema.Equal(nil, "a"))
	assert.True(t, schema.Equal(now, now.In(time.UTC)))
	assert.True(t, schema.Equal(int64(1), int64(1)))
	assert.False(t, schema.Equal(int64(1), 1.0))

	assert.True(t, schema.IsZero(nil))
	assert.True(t, schema.IsZero("  "))
	assert.True(t, schema.IsZero(uuid.Nil))
	assert.True(t, schema.IsZero(time.Time{}))
	assert.False(t, schema.IsZero(int64(0)))
	assert.False(t, schema.IsZero("a"))
}
