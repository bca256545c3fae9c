package condition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nvt2106/magicstore/internal/ident"
)

// Unpaged is the page size that returns every record.
const Unpaged = -1

// Direction is a sort direction.
type Direction uint8

// Sort directions.
const (
	Asc Direction = iota + 1
	Desc
)

// String returns "ASC" or "DESC".
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// SortInfo orders results by one field.
type SortInfo struct {
	Field     string
	Direction Direction
}

// PageSetting selects a page of sorted results.
type PageSetting struct {
	// Size is the page size, or Unpaged.
	Size int
	// Index is the 1-based page number.
	Index int
	Sorts []SortInfo
}

// NewPageSetting returns a page setting. size must be Unpaged or positive and
// index must be positive.
func NewPageSetting(size, index int) (*PageSetting, error) {
	p := &PageSetting{Size: size, Index: index}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// All returns an unpaged setting.
func All() *PageSetting {
	return &PageSetting{Size: Unpaged, Index: 1}
}

// First returns a setting that selects the first record only.
func First() *PageSetting {
	return &PageSetting{Size: 1, Index: 1}
}

// Sort appends a sort field.
func (p *PageSetting) Sort(field string, d Direction) *PageSetting {
	p.Sorts = append(p.Sorts, SortInfo{Field: field, Direction: d})
	return p
}

// Validate checks the page bounds and sort fields.
func (p *PageSetting) Validate() error {
	var errs []error
	if p.Size == 0 || p.Size < Unpaged {
		errs = append(errs, fmt.Errorf("condition: page size must be positive or %d (unpaged), got %d", Unpaged, p.Size))
	}
	if p.Index <= 0 {
		errs = append(errs, fmt.Errorf("condition: page index must be positive and starts from 1, got %d", p.Index))
	}
	for _, s := range p.Sorts {
		if !ident.Valid(s.Field) {
			errs = append(errs, fmt.Errorf("condition: sort field %q must be a valid identifier", s.Field))
		}
		if s.Direction != Asc && s.Direction != Desc {
			errs = append(errs, fmt.Errorf("condition: invalid sort direction %d on %s", s.Direction, s.Field))
		}
	}
	return errors.Join(errs...)
}

// Paged reports whether the setting limits the number of results.
func (p *PageSetting) Paged() bool {
	return p != nil && p.Size != Unpaged
}

// Offset returns the number of records skipped before the page.
func (p *PageSetting) Offset() int {
	if !p.Paged() {
		return 0
	}
	return (p.Index - 1) * p.Size
}

// Bounds returns the half-open range of the page within n records.
func (p *PageSetting) Bounds(n int) (lo, hi int) {
	if !p.Paged() {
		return 0, n
	}
	lo = min(p.Offset(), n)
	hi = min(lo+p.Size, n)
	return lo, hi
}

// WithSize returns a copy of p with a different page size and index 1.
func (p *PageSetting) WithSize(size int) *PageSetting {
	c := &PageSetting{Size: size, Index: 1}
	if p != nil {
		c.Sorts = append(c.Sorts, p.Sorts...)
	}
	return c
}

// ParseSort parses a comma separated list of fields. A leading '-' sorts
// descending and a leading '+' ascending.
func ParseSort(s string) ([]SortInfo, error) {
	var sorts []SortInfo
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d := Asc
		switch part[0] {
		case '-':
			d, part = Desc, part[1:]
		case '+':
			part = part[1:]
		}
		if !ident.Valid(part) {
			return nil, fmt.Errorf("condition: sort field %q must be a valid identifier", part)
		}
		sorts = append(sorts, SortInfo{Field: part, Direction: d})
	}
	return sorts, nil
}
