// Package ident validates the identifiers used for schema, field and condition names.
package ident

import "regexp"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Valid reports whether s can be used as an entity, field or condition name.
func Valid(s string) bool {
	return identRe.MatchString(s)
}
