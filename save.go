package magicstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/nvt2106/magicstore/privacy"
	"github.com/nvt2106/magicstore/proxy"
)

// Save persists v and every entity reachable from it through loaded
// relations. v is a proxy or a pointer to a registered struct. Each entity
// in the graph is visited once: new and dirty entities are validated and
// saved, clean ones are skipped. Save stops at the first entity that fails
// and returns its Errors, which also wrap a failure to read the root back.
// On success it returns the stored state of v.
func (ec *EntityContext) Save(ctx context.Context, v any) (*proxy.Entity, error) {
	root, err := ec.Convert(v)
	if err != nil {
		return nil, err
	}
	visited := make(map[*proxy.Entity]struct{})
	if errs := ec.saveGraph(ctx, root, visited); len(errs) > 0 {
		return nil, errs
	}
	// The query policy may hide the saved root; return it as converted.
	stored, err := ec.Reload(ctx, root)
	switch {
	case IsPrivacyError(err):
		return root, nil
	case err != nil:
		return nil, repositoryError(err)
	case stored == nil:
		return root, nil
	}
	return stored, nil
}

// saveGraph saves e, then its loaded singular relations, then the items of
// its loaded collections.
func (ec *EntityContext) saveGraph(ctx context.Context, e *proxy.Entity, visited map[*proxy.Entity]struct{}) Errors {
	if _, ok := visited[e]; ok {
		return nil
	}
	visited[e] = struct{}{}
	if errs := ec.saveOne(ctx, e); len(errs) > 0 {
		return errs
	}
	for _, r := range e.Descriptor().Relations {
		if r.Many {
			continue
		}
		if rel, ok := e.LoadedRelated(r.Name); ok && rel != nil {
			if errs := ec.saveGraph(ctx, rel, visited); len(errs) > 0 {
				return errs
			}
		}
	}
	for _, r := range e.Descriptor().Relations {
		if !r.Many {
			continue
		}
		items, _ := e.LoadedCollection(r.Name)
		for _, item := range items {
			if errs := ec.saveGraph(ctx, item, visited); len(errs) > 0 {
				return errs
			}
		}
	}
	return nil
}

func (ec *EntityContext) saveOne(ctx context.Context, e *proxy.Entity) Errors {
	if !e.IsNew() && !e.IsDirty() {
		return nil
	}
	op := privacy.OpUpdate
	if e.IsNew() {
		op = privacy.OpCreate
	}
	if ec.policy != nil {
		if err := ec.policy.EvalMutation(ctx, &mutation{op: op, e: e}); privacy.Denied(err) {
			return denied(&PrivacyError{Entity: e.Name(), Op: op.String(), Decision: err})
		}
	}
	if errs := ec.validate(ctx, e); len(errs) > 0 {
		return errs
	}
	if _, err := ec.repo.Save(ctx, e); err != nil {
		return repositoryError(err)
	}
	e.ClearChanges()
	ec.invalidate(ctx, e)
	ec.log.DebugContext(ctx, "magicstore: saved entity", "entity", e.Name(), "id", e.ID(), "op", op)
	return nil
}

// Delete removes e from the repository. e must have been fetched through
// the context or saved by it.
func (ec *EntityContext) Delete(ctx context.Context, e *proxy.Entity) error {
	if e == nil {
		return fmt.Errorf("%w: entity", ErrNilArgument)
	}
	if _, err := ec.managed(e); err != nil {
		return err
	}
	if e.IsNew() {
		return fmt.Errorf("%w: %s has never been saved", ErrNotProxy, e)
	}
	if ec.policy != nil {
		if err := ec.policy.EvalMutation(ctx, &mutation{op: privacy.OpDelete, e: e}); privacy.Denied(err) {
			return denied(&PrivacyError{Entity: e.Name(), Op: privacy.OpDelete.String(), Decision: err})
		}
	}
	if err := ec.repo.Delete(ctx, e); err != nil {
		return repositoryError(err)
	}
	ec.invalidate(ctx, e)
	ec.log.DebugContext(ctx, "magicstore: deleted entity", "entity", e.Name(), "id", e.ID())
	return nil
}

// denied reports a policy rejection as a single-error list.
func denied(err *PrivacyError) Errors {
	return Errors{{Message: strings.TrimPrefix(err.Error(), "magicstore: "), Err: err}}
}

func (ec *EntityContext) invalidate(ctx context.Context, e *proxy.Entity) {
	if ec.cache == nil {
		return
	}
	key := CacheKey{Schema: e.Name(), ID: e.ID()}.String()
	if err := ec.cache.Delete(ctx, key); err != nil {
		ec.log.WarnContext(ctx, "magicstore: cache delete failed", "key", key, "error", err)
	}
}

// mutation is the privacy.Mutation of a save or delete.
type mutation struct {
	op privacy.Op
	e  *proxy.Entity
}

func (m *mutation) Op() privacy.Op                { return m.op }
func (m *mutation) Schema() string                { return m.e.Name() }
func (m *mutation) Entity() *proxy.Entity         { return m.e }
func (m *mutation) Field(name string) (any, bool) { return m.e.Value(name) }
