package condition_test

import (
	"testing"

	"github.com/nvt2106/magicstore/condition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageSetting(t *testing.T) {
	t.Parallel()

	p, err := condition.NewPageSetting(10, 3)
	require.NoError(t, err)
	assert.True(t, p.Paged())
	assert.Equal(t, 20, p.Offset())

	lo, hi := p.Bounds(25)
	assert.Equal(t, 20, lo)
	assert.Equal(t, 25, hi)
	lo, hi = p.Bounds(5)
	assert.Equal(t, 5, lo)
	assert.Equal(t, 5, hi)

	all := condition.All()
	assert.False(t, all.Paged())
	assert.Equal(t, 0, all.Offset())
	lo, hi = all.Bounds(7)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 7, hi)

	for _, tt := range []struct{ size, index int }{{0, 1}, {-2, 1}, {10, 0}} {
		_, err := condition.NewPageSetting(tt.size, tt.index)
		assert.Error(t, err, tt)
	}
}

func TestPageSort(t *testing.T) {
	t.Parallel()

	p := condition.First().Sort("Code", condition.Asc).Sort("Total", condition.Desc)
	require.NoError(t, p.Validate())
	assert.Equal(t, []condition.SortInfo{{Field: "Code", Direction: condition.Asc}, {Field: "Total", Direction: condition.Desc}}, p.Sorts)
	assert.Equal(t, "DESC", condition.Desc.String())

	c := p.WithSize(5)
	assert.Equal(t, 5, c.Size)
	assert.Equal(t, 1, c.Index)
	assert.Equal(t, p.Sorts, c.Sorts)

	assert.Error(t, condition.All().Sort("bad name", condition.Asc).Validate())
	assert.Error(t, condition.All().Sort("Code", 0).Validate())
}

func TestParseSort(t *testing.T) {
	t.Parallel()

	sorts, err := condition.ParseSort("Code, -Total,+Name,")
	require.NoError(t, err)
	assert.Equal(t, []condition.SortInfo{
		{Field: "Code", Direction: condition.Asc},
		{Field: "Total", Direction: condition.Desc},
		{Field: "Name", Direction: condition.Asc},
	}, sorts)

	_, err = condition.ParseSort("-1x")
	assert.Error(t, err)
}

func TestParseOperator(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]condition.Operator{
		"=":           condition.OpEQ,
		"$ne$":        condition.OpNEQ,
		"<>":          condition.OpNEQ,
		"LT":          condition.OpLT,
		">=":          condition.OpGTE,
		"NOT  IN":     condition.OpNotIn,
		"is not null": condition.OpExists,
		"IS NULL":     condition.OpNotExist,
		"Like":        condition.OpLike,
	} {
		got, err := condition.ParseOperator(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := condition.ParseOperator("~=")
	assert.Error(t, err)

	neg, ok := condition.OpLT.Negate()
	assert.True(t, ok)
	assert.Equal(t, condition.OpGTE, neg)
	_, ok = condition.OpLike.Negate()
	assert.False(t, ok)
	assert.False(t, condition.OpIn.Implemented())
	assert.True(t, condition.OpExists.IsUnary())
}
