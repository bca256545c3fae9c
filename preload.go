package magicstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/internal/batch"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
)

// MaxBatchSize is the number of ids matched by one repository query in
// GetMany and Preload.
const MaxBatchSize = 100

// Preload loads a collection relation of several owners of the same schema
// with one search per MaxBatchSize owners, instead of one per owner. Owners
// whose relation is already loaded are skipped.
func (ec *EntityContext) Preload(ctx context.Context, owners []*proxy.Entity, relation string) error {
	if len(owners) == 0 {
		return nil
	}
	var (
		r      *proxy.Relation
		ids    []uuid.UUID
		target []*proxy.Entity
	)
	for _, o := range owners {
		if o == nil {
			return fmt.Errorf("%w: owner", ErrNilArgument)
		}
		d, err := ec.managed(o)
		if err != nil {
			return err
		}
		rel, ok := d.Relation(relation)
		if !ok || !rel.Many {
			return fmt.Errorf("%w %s.%s", proxy.ErrUnknownRelation, d.Name(), relation)
		}
		if r != nil && rel != r {
			return fmt.Errorf("magicstore: preload %s: owners of different entity types", relation)
		}
		r = rel
		if o.IsLoaded(relation) {
			continue
		}
		ids = append(ids, o.ID())
		target = append(target, o)
	}
	if len(target) == 0 {
		return nil
	}
	d, err := ec.descriptor(r.Target)
	if err != nil {
		return err
	}
	var items []*proxy.Entity
	for _, chunk := range batch.Chunk(batch.Unique(ids), MaxBatchSize) {
		nodes := make([]condition.Node, len(chunk))
		for i, id := range chunk {
			nodes[i] = proxy.ReverseCondition(r, id)
		}
		found, err := ec.search(ctx, d, condition.Or(nodes...), nil)
		if err != nil {
			return err
		}
		items = append(items, found...)
	}
	reverse := schema.RelationIDField(r.Reverse)
	groups := batch.GroupByKey(items, func(e *proxy.Entity) uuid.UUID {
		id, _ := e.Value(reverse)
		owner, _ := id.(uuid.UUID)
		return owner
	})
	for i, list := range batch.OrderGroupsByKeys(ids, groups) {
		if err := target[i].SetCollection(relation, list); err != nil {
			return err
		}
	}
	return nil
}
