package field_test

import (
	"testing"

	"github.com/nvt2106/magicstore/schema"
	"github.com/nvt2106/magicstore/schema/field"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		build *field.Builder
		typ   schema.Type
		kind  schema.Kind
	}{
		{field.String("A"), schema.TypeString, schema.KindString},
		{field.Text("A"), schema.TypeString, schema.KindString},
		{field.Bool("A"), schema.TypeBool, schema.KindPrimitive},
		{field.Int16("A"), schema.TypeInt16, schema.KindPrimitive},
		{field.Int32("A"), schema.TypeInt32, schema.KindPrimitive},
		{field.Int64("A"), schema.TypeInt64, schema.KindPrimitive},
		{field.Int("A"), schema.TypeInt64, schema.KindPrimitive},
		{field.Float("A"), schema.TypeFloat64, schema.KindPrimitive},
		{field.Float64("A"), schema.TypeFloat64, schema.KindPrimitive},
		{field.UUID("A"), schema.TypeUUID, schema.KindID},
		{field.Time("A"), schema.TypeTime, schema.KindDateTime},
		{field.Of("A", schema.TypeInt32), schema.TypeInt32, schema.KindPrimitive},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			fd := tt.build.Descriptor()
			assert.Equal(t, "A", fd.Name)
			assert.Equal(t, tt.typ, fd.Type)
			assert.Equal(t, tt.kind, fd.Kind)
			assert.False(t, fd.IsRelation())
			assert.NoError(t, fd.Err)
		})
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	fd := field.String("Code").
		Required().
		Length(1, 20).
		UniqueIn("code").
		Descriptor()
	assert.Equal(t, "Code", fd.Name)
	assert.True(t, fd.Required)
	assert.Equal(t, 1, fd.MinLen)
	assert.Equal(t, 20, fd.MaxLen)
	assert.Equal(t, "code", fd.UniqueGroup)
	assert.NoError(t, fd.Err)

	fd = field.String("Name").Unique().MaxLen(50).Nullable().Descriptor()
	assert.Equal(t, schema.DefaultUniqueGroup, fd.UniqueGroup)
	assert.Equal(t, 0, fd.MinLen)
	assert.Equal(t, 50, fd.MaxLen)
	assert.True(t, fd.Nullable)
}

func TestLengthErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		min, max int
		want     string
	}{
		{"negative_min", -1, 10, "min length"},
		{"zero_max", 0, 0, "max length"},
		{"max_below_min", 10, 5, "greater or equal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd := field.String("Code").Length(tt.min, tt.max).Descriptor()
			require.Error(t, fd.Err)
			assert.Contains(t, fd.Err.Error(), tt.want)
		})
	}

	t.Run("non_string", func(t *testing.T) {
		fd := field.Int64("Total").Length(1, 2).Descriptor()
		require.Error(t, fd.Err)
		assert.Contains(t, fd.Err.Error(), "string fields")
	})

	t.Run("first_error_kept", func(t *testing.T) {
		fd := field.String("Code").Length(-1, 1).Length(5, 1).Descriptor()
		require.Error(t, fd.Err)
		assert.Contains(t, fd.Err.Error(), "min length")
	})

	t.Run("reported_by_schema", func(t *testing.T) {
		_, err := schema.New("Order", field.String("Code").Length(5, 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Order.Code")
	})
}
