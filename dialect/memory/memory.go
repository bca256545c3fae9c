// Package memory implements an in-memory dialect.Repository.
//
// Rows are stored msgpack encoded, one table per schema, in insertion order.
// Fetch decodes the rows of a table, filters them with Conditions.Match,
// sorts and pages them. Every returned entity is a fresh decoded copy, so
// callers never share state with the store.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/dialect"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
)

// Repository keeps entities in memory. It is safe for concurrent use.
type Repository struct {
	mu     sync.RWMutex
	tables map[string]*table
	log    *slog.Logger
}

type table struct {
	order []uuid.UUID
	rows  map[uuid.UUID][]byte
}

func newTable() *table {
	return &table{rows: make(map[uuid.UUID][]byte)}
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for warnings. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// New returns an empty repository.
func New(opts ...Option) *Repository {
	r := &Repository{
		tables: make(map[string]*table),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PrepareStorage creates the table of d if it does not exist.
func (r *Repository) PrepareStorage(_ context.Context, d *proxy.Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[d.Name()]; !ok {
		r.tables[d.Name()] = newTable()
	}
	return nil
}

func (r *Repository) table(name string) (*table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("memory: storage for %s is not prepared", name)
	}
	return t, nil
}

// Fetch returns the entities of d matching cs, sorted and paged by page.
// Operators without an in-memory evaluation are logged and pass every row.
func (r *Repository) Fetch(ctx context.Context, d *proxy.Descriptor, cs *condition.Conditions, page *condition.PageSetting) ([]*proxy.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, c := range condition.Unimplemented(cs) {
		r.log.WarnContext(ctx, "memory: operator is not evaluated in memory, condition passes every row",
			"schema", d.Name(), "condition", c.String())
	}
	r.mu.RLock()
	t, err := r.table(d.Name())
	if err != nil {
		r.mu.RUnlock()
		return nil, err
	}
	rows := make([][]byte, 0, len(t.order))
	for _, id := range t.order {
		rows = append(rows, t.rows[id])
	}
	r.mu.RUnlock()

	var matched []*proxy.Entity
	for _, data := range rows {
		e, err := proxy.Unmarshal(data, d)
		if err != nil {
			return nil, err
		}
		ok, err := cs.Match(e)
		if err != nil {
			return nil, fmt.Errorf("memory: fetch %s: %w", d.Name(), err)
		}
		if ok {
			matched = append(matched, e)
		}
	}
	if page != nil && len(page.Sorts) > 0 {
		sortEntities(matched, page.Sorts)
	}
	lo, hi := page.Bounds(len(matched))
	if lo == hi {
		return nil, nil
	}
	return matched[lo:hi], nil
}

// sortEntities sorts stably by the sort fields. Strings compare case folded
// and nil sorts before any value.
func sortEntities(es []*proxy.Entity, sorts []condition.SortInfo) {
	slices.SortStableFunc(es, func(a, b *proxy.Entity) int {
		for _, s := range sorts {
			av, _ := a.Value(s.Field)
			bv, _ := b.Value(s.Field)
			c := compareValues(av, bv)
			if s.Direction == condition.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareValues(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return cmp.Compare(condition.Fold(as), condition.Fold(bs))
	}
	c, err := condition.Compare(a, b)
	if err != nil {
		return 0
	}
	return c
}

// Save stores e by id, replacing any previous row, and returns a clean copy
// of the stored state.
func (r *Repository) Save(ctx context.Context, e *proxy.Entity) (*proxy.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.ID() == uuid.Nil {
		return nil, fmt.Errorf("memory: save %s: entity has no id", e.Name())
	}
	data, err := proxy.Marshal(e)
	if err != nil {
		return nil, err
	}
	stored, err := proxy.Unmarshal(data, e.Descriptor())
	if err != nil {
		return nil, err
	}
	stored.ClearChanges()
	if data, err = proxy.Marshal(stored); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.table(e.Name())
	if err != nil {
		return nil, err
	}
	if _, ok := t.rows[e.ID()]; !ok {
		t.order = append(t.order, e.ID())
	}
	t.rows[e.ID()] = data
	return stored, nil
}

// Delete removes the row of e. Deleting a missing row is not an error.
func (r *Repository) Delete(ctx context.Context, e *proxy.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.table(e.Name())
	if err != nil {
		return err
	}
	if _, ok := t.rows[e.ID()]; !ok {
		return nil
	}
	delete(t.rows, e.ID())
	t.order = slices.DeleteFunc(t.order, func(id uuid.UUID) bool { return id == e.ID() })
	return nil
}

// Len returns the number of rows stored for a schema.
func (r *Repository) Len(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.tables[name]; ok {
		return len(t.order)
	}
	return 0
}

// snapshot is the encoded form of all tables. Rows keep insertion order.
type snapshot struct {
	Tables map[string][][]byte `msgpack:"tables"`
}

// Snapshot writes every table to w.
func (r *Repository) Snapshot(w io.Writer) error {
	r.mu.RLock()
	s := snapshot{Tables: make(map[string][][]byte, len(r.tables))}
	for name, t := range r.tables {
		rows := make([][]byte, 0, len(t.order))
		for _, id := range t.order {
			rows = append(rows, t.rows[id])
		}
		s.Tables[name] = rows
	}
	r.mu.RUnlock()
	if err := msgpack.NewEncoder(w).Encode(&s); err != nil {
		return fmt.Errorf("memory: snapshot: %w", err)
	}
	return nil
}

// Restore replaces every table with the tables read from a snapshot.
func (r *Repository) Restore(rd io.Reader) error {
	var s snapshot
	if err := msgpack.NewDecoder(rd).Decode(&s); err != nil {
		return fmt.Errorf("memory: restore: %w", err)
	}
	tables := make(map[string]*table, len(s.Tables))
	for name, rows := range s.Tables {
		t := newTable()
		for _, data := range rows {
			id, err := rowID(data)
			if err != nil {
				return fmt.Errorf("memory: restore %s: %w", name, err)
			}
			if _, ok := t.rows[id]; !ok {
				t.order = append(t.order, id)
			}
			t.rows[id] = data
		}
		tables[name] = t
	}
	r.mu.Lock()
	r.tables = tables
	r.mu.Unlock()
	return nil
}

// rowID reads the id of an encoded row without a descriptor.
func rowID(data []byte) (uuid.UUID, error) {
	var rec struct {
		Values map[string]any `msgpack:"values"`
	}
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return uuid.Nil, err
	}
	s, _ := rec.Values[schema.IDField].(string)
	return uuid.Parse(s)
}

var _ dialect.Repository = (*Repository)(nil)
