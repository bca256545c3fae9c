package condition

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikeCacheBounded(t *testing.T) {
	for i := 0; i < 3*maxLikeCache; i++ {
		p := "bounded" + strconv.Itoa(i)
		assert.True(t, Like("x"+p+"y", p))
	}
	likeCache.Lock()
	n := len(likeCache.m)
	likeCache.Unlock()
	assert.LessOrEqual(t, n, maxLikeCache)
	assert.Positive(t, n)
}
