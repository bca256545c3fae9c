package condition_test

import (
	"testing"

	"github.com/nvt2106/magicstore/condition"

	"github.com/stretchr/testify/assert"
)

func TestLike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value, pattern string
		want           bool
	}{
		{"wxy7z", "wxy_z", true},
		{"WXY9Z", "wxy_z", true},
		{"wxyz", "wxy_z", false},
		{"xxabcxx", "abc", true},
		{"xxABCxx", "abc", true},
		{"abc", "abc%", true},
		{"xabc", "abc%", false},
		{"abcdef", "a%f", true},
		{"abcdeg", "a%f", false},
		{"a.c", "a.c", true},
		{"abc", "a.c", false},
		{"a+b(c)", "a+b(c)", true},
		{"line1\nline2", "line1%line2", true},
		{"ÉCOLE", "école", true},
		{"", "a", false},
		{"a", "", false},
		{"anything", "%", true},
	}
	for _, tt := range tests {
		t.Run(tt.value+"~"+tt.pattern, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, condition.Like(tt.value, tt.pattern))
		})
	}
}

func TestLikePattern(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "%abc%", condition.LikePattern("abc"))
	assert.Equal(t, "abc%", condition.LikePattern("abc%"))
	assert.Equal(t, "%a_c%", condition.LikePattern("a_c"))
}
