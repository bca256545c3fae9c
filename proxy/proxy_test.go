package proxy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
	"github.com/nvt2106/magicstore/schema/edge"
	"github.com/nvt2106/magicstore/schema/field"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemas() []*schema.Entity {
	return []*schema.Entity{
		schema.MustNew("Customer",
			field.String("Name").Required(),
			edge.To("Orders", "Order"),
		),
		schema.MustNew("Order",
			field.String("Code"),
			field.Float("Total"),
			field.Time("PlacedAt"),
			edge.To("Items", "OrderItem"),
		),
		schema.MustNew("OrderItem",
			field.Int32("Qty"),
			edge.To("Order", "Order").Unique(),
		),
	}
}

func describe(t *testing.T) map[string]*proxy.Descriptor {
	t.Helper()
	all := schemas()
	descs, err := proxy.NewRegistry().DescribeAll(all)
	require.NoError(t, err)
	m := make(map[string]*proxy.Descriptor, len(descs))
	for _, d := range descs {
		m[d.Name()] = d
	}
	return m
}

func slotNames(d *proxy.Descriptor) []string {
	names := make([]string, len(d.Slots))
	for i, s := range d.Slots {
		names[i] = s.Name
	}
	return names
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	descs := describe(t)
	customer, order, item := descs["Customer"], descs["Order"], descs["OrderItem"]

	assert.Equal(t, []string{"EntityId", "Name"}, slotNames(customer))
	orders, ok := customer.Relation("Orders")
	require.True(t, ok)
	assert.True(t, orders.Many)
	assert.Equal(t, -1, orders.Slot)
	assert.Equal(t, "Customer", orders.Reverse)

	// Order gets the injected reverse relation of Customer.Orders; OrderItem
	// already declares its relation back to Order.
	assert.Equal(t, []string{"EntityId", "Code", "Total", "PlacedAt", "CustomerId"}, slotNames(order))
	rev, ok := order.Relation("Customer")
	require.True(t, ok)
	assert.True(t, rev.IsInjected())
	assert.False(t, rev.Many)
	assert.Equal(t, "CustomerId", order.Slots[rev.Slot].Name)
	assert.Equal(t, "Customer", order.Slots[rev.Slot].Relation)
	assert.True(t, order.Slots[rev.Slot].IsGenerated())

	assert.Equal(t, []string{"EntityId", "Qty", "OrderId"}, slotNames(item))
	back, _ := item.Relation("Order")
	assert.False(t, back.IsInjected())
	assert.Len(t, item.Relations, 1)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	all := schemas()
	r := proxy.NewRegistry()
	d1, err := r.Describe(all[0], all)
	require.NoError(t, err)
	d2, err := r.Describe(all[0], all)
	require.NoError(t, err)
	assert.Same(t, d1, d2)

	// Same shape from a different schema value reuses the descriptor.
	again := schemas()
	d3, err := r.Describe(again[0], again)
	require.NoError(t, err)
	assert.Same(t, d1, d3)

	other := schema.MustNew("Customer", field.Int("Age"))
	_, err = r.Describe(other, []*schema.Entity{other})
	assert.ErrorContains(t, err, "different shape")

	// Constraints are part of the shape.
	loose := schema.MustNew("Customer",
		field.String("Name"),
		edge.To("Orders", "Order"),
	)
	_, err = r.Describe(loose, append([]*schema.Entity{loose}, all[1:]...))
	assert.ErrorContains(t, err, "different shape")

	bounded := schema.MustNew("Customer",
		field.String("Name").Required().MaxLen(10),
		edge.To("Orders", "Order"),
	)
	_, err = r.Describe(bounded, append([]*schema.Entity{bounded}, all[1:]...))
	assert.ErrorContains(t, err, "different shape")

	got, ok := r.Lookup("Customer")
	require.True(t, ok)
	assert.Same(t, d1, got)
	assert.Equal(t, []string{"Customer"}, r.Names())
	assert.Equal(t, 1, r.Len())
}

func TestEntitySlots(t *testing.T) {
	t.Parallel()

	order := describe(t)["Order"].New()
	assert.Equal(t, uuid.Nil, order.ID())
	assert.True(t, order.IsNew())
	assert.False(t, order.IsDirty())

	v, err := order.Get("Code")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, order.Set("Code", "A1"))
	require.NoError(t, order.Set("Total", 12))
	require.NoError(t, order.Set("PlacedAt", "2024-03-01T00:00:00Z"))
	total, _ := order.Get("Total")
	assert.Equal(t, 12.0, total)
	at, _ := order.Value("PlacedAt")
	assert.IsType(t, time.Time{}, at)

	assert.True(t, order.IsDirty())
	assert.ElementsMatch(t, []string{"Code", "Total", "PlacedAt"}, order.Changes())
	prev, _ := order.Previous("Code")
	assert.Nil(t, prev)

	order.ClearChanges()
	assert.False(t, order.IsDirty())
	prev, _ = order.Previous("Code")
	assert.Equal(t, "A1", prev)

	require.NoError(t, order.Set("Code", "A1"))
	assert.False(t, order.IsDirty(), "same value")

	_, err = order.Get("Missing")
	assert.ErrorIs(t, err, proxy.ErrUnknownSlot)
	assert.Error(t, order.Set("Total", "abc"))
	assert.ErrorIs(t, order.Load(map[string]any{"Code": "B", "Nope": 1}), proxy.ErrUnknownSlot)

	id := uuid.New()
	order.SetID(id)
	assert.Equal(t, id, order.ID())
	assert.Equal(t, "Order("+id.String()+")", order.String())
	assert.Equal(t, id, order.Values()["EntityId"])
}

type fakeLoader struct {
	one   map[uuid.UUID]*proxy.Entity
	many  []*proxy.Entity
	calls int
	conds []*condition.Conditions
}

func (l *fakeLoader) LoadOne(_ context.Context, _ string, id uuid.UUID) (*proxy.Entity, error) {
	l.calls++
	return l.one[id], nil
}

func (l *fakeLoader) LoadMany(_ context.Context, _ string, cs *condition.Conditions) ([]*proxy.Entity, error) {
	l.calls++
	l.conds = append(l.conds, cs)
	return l.many, nil
}

func TestRelatedLazyLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	descs := describe(t)
	customer := descs["Customer"].New()
	customer.SetID(uuid.New())
	order := descs["Order"].New()
	require.NoError(t, order.Set("CustomerId", customer.ID()))

	_, err := order.Related(ctx, "Customer")
	assert.ErrorIs(t, err, proxy.ErrNoLoader)

	l := &fakeLoader{one: map[uuid.UUID]*proxy.Entity{customer.ID(): customer}}
	order.Bind(l)
	got, err := order.Related(ctx, "Customer")
	require.NoError(t, err)
	assert.Same(t, customer, got)
	assert.True(t, order.IsLoaded("Customer"))

	got, err = order.Related(ctx, "Customer")
	require.NoError(t, err)
	assert.Same(t, customer, got)
	assert.Equal(t, 1, l.calls, "loaded relations are not fetched again")

	// Changing the id drops the cached entity.
	require.NoError(t, order.Set("CustomerId", uuid.New()))
	assert.False(t, order.IsLoaded("Customer"))

	empty := descs["Order"].New()
	empty.Bind(l)
	got, err = empty.Related(ctx, "Customer")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, empty.IsLoaded("Customer"))
	assert.Equal(t, 1, l.calls)

	_, err = order.Related(ctx, "Items")
	assert.ErrorIs(t, err, proxy.ErrUnknownRelation)
}

func TestCollectionLazyLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	descs := describe(t)
	customer := descs["Customer"].New()
	customer.SetID(uuid.New())
	o1, o2 := descs["Order"].New(), descs["Order"].New()
	require.NoError(t, o1.Set("CustomerId", customer.ID()))
	require.NoError(t, o2.Set("CustomerId", customer.ID()))
	o1.ClearChanges()
	o2.ClearChanges()

	l := &fakeLoader{many: []*proxy.Entity{o1, o2}}
	customer.Bind(l)
	items, err := customer.Collection(ctx, "Orders")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	require.Len(t, l.conds, 1)
	assert.Equal(t, `(CustomerId == "`+customer.ID().String()+`")`, l.conds[0].String())

	// The reverse relation is resolved without another fetch.
	back, ok := o1.LoadedRelated("Customer")
	require.True(t, ok)
	assert.Same(t, customer, back)
	assert.False(t, o1.IsDirty())

	_, err = customer.Collection(ctx, "Orders")
	require.NoError(t, err)
	assert.Equal(t, 1, l.calls)
}

func TestSetRelations(t *testing.T) {
	t.Parallel()

	descs := describe(t)
	customer := descs["Customer"].New()
	customer.SetID(uuid.New())
	order := descs["Order"].New()
	order.SetID(uuid.New())

	require.NoError(t, order.SetRelated("Customer", customer))
	id, _ := order.Get("CustomerId")
	assert.Equal(t, customer.ID(), id)
	assert.True(t, order.IsLoaded("Customer"))
	require.NoError(t, order.SetRelated("Customer", nil))
	id, _ = order.Get("CustomerId")
	assert.Nil(t, id)

	assert.Error(t, order.SetRelated("Customer", order))

	require.NoError(t, customer.SetCollection("Orders", []*proxy.Entity{order}))
	list, ok := customer.LoadedCollection("Orders")
	require.True(t, ok)
	assert.Len(t, list, 1)
	id, _ = order.Get("CustomerId")
	assert.Equal(t, customer.ID(), id)
	back, ok := order.LoadedRelated("Customer")
	require.True(t, ok)
	assert.Same(t, customer, back)

	assert.Error(t, customer.SetCollection("Orders", []*proxy.Entity{customer}))
	_, ok = order.LoadedCollection("Items")
	assert.False(t, ok)

	require.NoError(t, order.MarkLoaded("Items"))
	list, ok = order.LoadedCollection("Items")
	assert.True(t, ok)
	assert.Empty(t, list)
	assert.ErrorIs(t, order.MarkLoaded("Nope"), proxy.ErrUnknownRelation)

	order.Reset()
	assert.False(t, order.IsLoaded("Items"))
	assert.False(t, order.IsLoaded("Customer"))
}

func TestCodec(t *testing.T) {
	t.Parallel()

	r := proxy.NewRegistry()
	all := schemas()
	_, err := r.DescribeAll(all)
	require.NoError(t, err)
	d, _ := r.Lookup("Order")

	order := d.New()
	order.SetID(uuid.New())
	require.NoError(t, order.Load(map[string]any{
		"Code":       "A1",
		"Total":      19.5,
		"PlacedAt":   time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		"CustomerId": uuid.New(),
	}))
	order.ClearChanges()
	require.NoError(t, order.Set("Code", "A2"))

	data, err := proxy.Marshal(order)
	require.NoError(t, err)
	got, err := proxy.Unmarshal(data, r)
	require.NoError(t, err)

	assert.Equal(t, order.ID(), got.ID())
	for _, s := range d.Slots {
		want, _ := order.Get(s.Name)
		have, _ := got.Get(s.Name)
		assert.True(t, schema.Equal(want, have), s.Name)
	}
	assert.Equal(t, []string{"Code"}, got.Changes())
	assert.False(t, got.IsLoaded("Customer"))

	_, err = proxy.Unmarshal(data, describe(t)["Customer"])
	assert.ErrorContains(t, err, "unknown schema")
	_, err = proxy.Unmarshal([]byte{0xc1}, r)
	assert.True(t, err != nil && !errors.Is(err, proxy.ErrUnknownSlot))
}
