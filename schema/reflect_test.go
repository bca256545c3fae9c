package schema_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/nvt2106/magicstore/schema"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	Customer struct {
		Name   string `magicstore:"required,length=1:50,unique"`
		Orders []*Order
	}
	Order struct {
		Code       string `magicstore:"unique=code"`
		Region     string `magicstore:"unique=code"`
		Total      float64
		Quantity   int32
		ExternalId uuid.UUID
		PlacedAt   time.Time
		ClosedAt   *time.Time
		Customer   *Customer `magicstore:"required"`
		Note       string    `magicstore:"-"`
		internal   int
	}
	ByValue struct {
		Customer Customer
		Orders   []Order
		Tags     map[string]string
	}
)

func TestFromStruct(t *testing.T) {
	t.Parallel()

	e, err := schema.FromStruct(&Order{})
	require.NoError(t, err)
	assert.Equal(t, "Order", e.Name)
	assert.Equal(t, reflect.TypeOf(Order{}), e.GoType)

	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Code", "Region", "Total", "Quantity", "ExternalId", "PlacedAt", "ClosedAt", "Customer"}, names)

	tests := []struct {
		field string
		kind  schema.Kind
		typ   schema.Type
	}{
		{"Code", schema.KindString, schema.TypeString},
		{"Total", schema.KindPrimitive, schema.TypeFloat64},
		{"Quantity", schema.KindPrimitive, schema.TypeInt32},
		{"ExternalId", schema.KindID, schema.TypeUUID},
		{"PlacedAt", schema.KindDateTime, schema.TypeTime},
		{"ClosedAt", schema.KindDateTime, schema.TypeTime},
		{"Customer", schema.KindSingularRelation, schema.TypeInvalid},
	}
	for _, tt := range tests {
		f, ok := e.Field(tt.field)
		require.True(t, ok, tt.field)
		assert.Equal(t, tt.kind, f.Kind, tt.field)
		assert.Equal(t, tt.typ, f.Type, tt.field)
	}

	closed, _ := e.Field("ClosedAt")
	assert.True(t, closed.Nullable)
	cust, _ := e.Field("Customer")
	assert.True(t, cust.Virtual)
	assert.True(t, cust.Required)
	assert.Equal(t, "Customer", cust.Target)
	assert.Equal(t, []string{"Code", "Region"}, e.UniqueGroups()[0].Fields)
}

func TestFromStructTags(t *testing.T) {
	t.Parallel()

	e, err := schema.FromStruct(reflect.TypeOf(Customer{}))
	require.NoError(t, err)
	name, _ := e.Field("Name")
	assert.True(t, name.Required)
	assert.Equal(t, 1, name.MinLen)
	assert.Equal(t, 50, name.MaxLen)
	assert.Equal(t, schema.DefaultUniqueGroup, name.UniqueGroup)
	orders, _ := e.Field("Orders")
	assert.True(t, orders.IsCollection())
	assert.True(t, orders.Virtual)
	assert.Equal(t, "Order", orders.Target)
}

func TestFromStructByValue(t *testing.T) {
	t.Parallel()

	e := schema.MustFromStruct(ByValue{})
	ord, _ := schema.FromStruct(Order{})
	cust, _ := schema.FromStruct(Customer{})

	err := schema.Validate([]*schema.Entity{e, ord, cust})
	require.Error(t, err)
	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ElementsMatch(t, []string{
		"Property 'Customer' must be declared as virtual",
		"Property 'Orders' must be declared as virtual",
		"Type 'map[string]string' is not valid for property 'Tags'",
	}, verr.Messages())
}

func TestFromStructErrors(t *testing.T) {
	t.Parallel()

	_, err := schema.FromStruct(nil)
	assert.Error(t, err)
	_, err = schema.FromStruct(42)
	assert.Error(t, err)

	type badLength struct {
		Code string `magicstore:"length=5"`
	}
	_, err = schema.FromStruct(badLength{})
	assert.ErrorContains(t, err, "min:max")

	type badOption struct {
		Code string `magicstore:"indexed"`
	}
	_, err = schema.FromStruct(badOption{})
	assert.ErrorContains(t, err, `unknown option "indexed"`)
}
