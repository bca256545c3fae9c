package condition

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Like reports whether s matches a like pattern, ignoring case. In patterns,
// '%' matches any run of characters and '_' matches exactly one. The whole
// string must match, and a pattern without '%' matches anywhere in s. Empty
// strings and empty patterns never match.
func Like(s, pattern string) bool {
	if s == "" || pattern == "" {
		return false
	}
	return likeRegexp(Fold(pattern)).MatchString(Fold(s))
}

// Fold returns the case-folded form of s.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// LikePattern returns the pattern with the implicit substring wrap applied.
func LikePattern(pattern string) string {
	if !strings.Contains(pattern, "%") {
		return "%" + pattern + "%"
	}
	return pattern
}

// maxLikeCache bounds the compiled patterns kept by Like. The cache is
// emptied when it is full.
const maxLikeCache = 256

var likeCache = struct {
	sync.Mutex
	m map[string]*regexp.Regexp
}{m: make(map[string]*regexp.Regexp)}

func likeRegexp(pattern string) *regexp.Regexp {
	likeCache.Lock()
	re, ok := likeCache.m[pattern]
	likeCache.Unlock()
	if ok {
		return re
	}
	re = compileLike(pattern)
	likeCache.Lock()
	if len(likeCache.m) >= maxLikeCache {
		clear(likeCache.m)
	}
	likeCache.m[pattern] = re
	likeCache.Unlock()
	return re
}

func compileLike(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?s)\A`)
	for _, r := range LikePattern(pattern) {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`\z`)
	return regexp.MustCompile(b.String())
}
