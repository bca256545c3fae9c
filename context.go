package magicstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/dialect"
	"github.com/nvt2106/magicstore/internal/batch"
	"github.com/nvt2106/magicstore/privacy"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
)

// DefaultPrepareConcurrency bounds the number of PrepareStorage calls New
// runs at once.
const DefaultPrepareConcurrency = 4

// EntityContext is the entry point for reading and writing entities of a
// fixed set of schemas through one repository. It is safe for concurrent
// use; the proxies it returns are not.
type EntityContext struct {
	repo     dialect.Repository
	schemas  []*schema.Entity
	byName   map[string]*proxy.Descriptor
	byType   map[reflect.Type]*proxy.Descriptor
	registry *proxy.Registry
	log      *slog.Logger
	policy   privacy.Evaluator
	cache    Cache
	cacheTTL time.Duration
	prepareN int
}

// Option configures an EntityContext.
type Option func(*EntityContext)

// WithLogger sets the logger. Saves and deletes are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(ec *EntityContext) {
		if l != nil {
			ec.log = l
		}
	}
}

// WithRegistry describes the schemas with r instead of a private registry.
func WithRegistry(r *proxy.Registry) Option {
	return func(ec *EntityContext) {
		if r != nil {
			ec.registry = r
		}
	}
}

// WithPolicy evaluates p before every search, save and delete.
func WithPolicy(p privacy.Evaluator) Option {
	return func(ec *EntityContext) { ec.policy = p }
}

// WithCache caches entities fetched by Get for ttl. A ttl <= 0 keeps them
// until they are saved or deleted.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(ec *EntityContext) {
		ec.cache, ec.cacheTTL = c, ttl
	}
}

// WithPrepareConcurrency bounds the number of concurrent PrepareStorage calls.
func WithPrepareConcurrency(n int) Option {
	return func(ec *EntityContext) {
		if n > 0 {
			ec.prepareN = n
		}
	}
}

// New validates schemas, builds their proxy descriptors and prepares the
// storage of each one. All structure violations are reported together in a
// *schema.ValidationError.
func New(ctx context.Context, repo dialect.Repository, schemas []*schema.Entity, opts ...Option) (*EntityContext, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: repository", ErrNilArgument)
	}
	if len(schemas) == 0 {
		return nil, fmt.Errorf("%w: no entity types", ErrNilArgument)
	}
	seen := make(map[string]bool, len(schemas))
	for i, s := range schemas {
		if s == nil {
			return nil, fmt.Errorf("%w: entity type at %d", ErrNilArgument, i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, s.Name)
		}
		seen[s.Name] = true
	}
	ec := &EntityContext{
		repo:     repo,
		schemas:  slices.Clone(schemas),
		byName:   make(map[string]*proxy.Descriptor, len(schemas)),
		byType:   make(map[reflect.Type]*proxy.Descriptor),
		registry: proxy.NewRegistry(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		prepareN: DefaultPrepareConcurrency,
	}
	for _, opt := range opts {
		opt(ec)
	}
	if err := schema.Validate(ec.schemas); err != nil {
		return nil, err
	}
	descs, err := ec.registry.DescribeAll(ec.schemas)
	if err != nil {
		return nil, err
	}
	for i, d := range descs {
		ec.byName[d.Name()] = d
		if t := ec.schemas[i].GoType; t != nil {
			ec.byType[t] = d
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ec.prepareN)
	for _, d := range descs {
		g.Go(func() error {
			if err := repo.PrepareStorage(gctx, d); err != nil {
				return &StorageError{Entity: d.Name(), Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ec.log.DebugContext(ctx, "magicstore: entity context ready", "schemas", len(descs))
	return ec, nil
}

// Repository returns the repository of the context.
func (ec *EntityContext) Repository() dialect.Repository { return ec.repo }

// Schemas returns the registered schemas in registration order.
func (ec *EntityContext) Schemas() []*schema.Entity { return slices.Clone(ec.schemas) }

// Descriptor returns the proxy descriptor of a registered schema.
func (ec *EntityContext) Descriptor(name string) (*proxy.Descriptor, bool) {
	d, ok := ec.byName[name]
	return d, ok
}

func (ec *EntityContext) descriptor(name string) (*proxy.Descriptor, error) {
	d, ok := ec.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnmanagedType, name)
	}
	return d, nil
}

// Create returns a new proxy of the named schema with a fresh id, bound to
// the context. All its relations are loaded and empty.
func (ec *EntityContext) Create(name string) (*proxy.Entity, error) {
	d, err := ec.descriptor(name)
	if err != nil {
		return nil, err
	}
	e := d.New()
	e.SetID(uuid.New())
	_ = e.MarkLoaded()
	e.Bind(ec)
	return e, nil
}

// Get returns the entity with the given id, or nil if there is none.
func (ec *EntityContext) Get(ctx context.Context, name string, id uuid.UUID) (*proxy.Entity, error) {
	d, err := ec.descriptor(name)
	if err != nil {
		return nil, err
	}
	key := CacheKey{Schema: name, ID: id}.String()
	if ec.cache != nil {
		data, err := ec.cache.Get(ctx, key)
		if err != nil {
			ec.log.WarnContext(ctx, "magicstore: cache get failed", "key", key, "error", err)
		}
		if data != nil {
			if e, err := proxy.Unmarshal(data, ec.registry); err == nil {
				return ec.cached(ctx, d, e)
			}
			_ = ec.cache.Delete(ctx, key)
		}
	}
	e, err := ec.getOne(ctx, d, condition.And(condition.FieldEQ(schema.IDField, id)), condition.First())
	if err != nil || e == nil {
		return nil, err
	}
	if ec.cache != nil {
		if data, err := proxy.Marshal(e); err == nil {
			if err := ec.cache.Set(ctx, key, data, ec.cacheTTL); err != nil {
				ec.log.WarnContext(ctx, "magicstore: cache set failed", "key", key, "error", err)
			}
		}
	}
	return e, nil
}

// cached applies the query policy to an entity served from the cache.
func (ec *EntityContext) cached(ctx context.Context, d *proxy.Descriptor, e *proxy.Entity) (*proxy.Entity, error) {
	if ec.policy != nil {
		q := &query{schema: d.Name()}
		if err := ec.policy.EvalQuery(ctx, q); privacy.Denied(err) {
			return nil, &PrivacyError{Entity: d.Name(), Op: "search", Decision: err}
		}
		if ok, err := q.cs.Match(e); err != nil || !ok {
			return nil, err
		}
	}
	e.Bind(ec)
	return e, nil
}

// GetOne returns the first entity matching cs, or nil. The page size is
// forced to 1; the page index and sorts of page are kept.
func (ec *EntityContext) GetOne(ctx context.Context, name string, cs *condition.Conditions, page *condition.PageSetting) (*proxy.Entity, error) {
	d, err := ec.descriptor(name)
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = condition.First()
	} else {
		p := *page
		p.Size = 1
		page = &p
	}
	return ec.getOne(ctx, d, cs, page)
}

func (ec *EntityContext) getOne(ctx context.Context, d *proxy.Descriptor, cs *condition.Conditions, page *condition.PageSetting) (*proxy.Entity, error) {
	items, err := ec.search(ctx, d, cs, page)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

// Search returns the entities matching cs, sorted and paged by page. A nil
// page returns everything. No match returns nil.
func (ec *EntityContext) Search(ctx context.Context, name string, cs *condition.Conditions, page *condition.PageSetting) ([]*proxy.Entity, error) {
	d, err := ec.descriptor(name)
	if err != nil {
		return nil, err
	}
	return ec.search(ctx, d, cs, page)
}

func (ec *EntityContext) search(ctx context.Context, d *proxy.Descriptor, cs *condition.Conditions, page *condition.PageSetting) ([]*proxy.Entity, error) {
	if page == nil {
		page = condition.All()
	}
	if ec.policy != nil {
		q := &query{schema: d.Name(), cs: cs}
		if err := ec.policy.EvalQuery(ctx, q); privacy.Denied(err) {
			return nil, &PrivacyError{Entity: d.Name(), Op: "search", Decision: err}
		}
		cs = q.cs
	}
	return ec.fetch(ctx, d, cs, page)
}

// fetch reads from the repository without evaluating the query policy.
func (ec *EntityContext) fetch(ctx context.Context, d *proxy.Descriptor, cs *condition.Conditions, page *condition.PageSetting) ([]*proxy.Entity, error) {
	if err := cs.Validate(); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	items, err := ec.repo.Fetch(ctx, d, cs, page)
	if err != nil {
		return nil, &QueryError{Entity: d.Name(), Err: err}
	}
	if len(items) == 0 {
		return nil, nil
	}
	for i, e := range items {
		if e == nil {
			return nil, &QueryError{Entity: d.Name(), Err: fmt.Errorf("nil entity at %d", i)}
		}
		if e.Name() != d.Name() {
			return nil, &QueryError{Entity: d.Name(), Err: fmt.Errorf("got %s at %d", e.Name(), i)}
		}
		e.Reset()
		e.ClearChanges()
		e.Bind(ec)
	}
	return items, nil
}

// GetMany returns the entities with the given ids in the order of ids. Ids
// with no entity are skipped.
func (ec *EntityContext) GetMany(ctx context.Context, name string, ids []uuid.UUID) ([]*proxy.Entity, error) {
	d, err := ec.descriptor(name)
	if err != nil {
		return nil, err
	}
	ids = batch.Unique(ids)
	var found []*proxy.Entity
	for _, chunk := range batch.Chunk(ids, MaxBatchSize) {
		nodes := make([]condition.Node, len(chunk))
		for i, id := range chunk {
			nodes[i] = condition.FieldEQ(schema.IDField, id)
		}
		items, err := ec.search(ctx, d, condition.Or(nodes...), nil)
		if err != nil {
			return nil, err
		}
		found = append(found, items...)
	}
	if len(found) == 0 {
		return nil, nil
	}
	ordered, missing := batch.OrderByKeys(ids, found, (*proxy.Entity).ID)
	items := ordered[:0]
	for i, e := range ordered {
		if missing[i] == nil {
			items = append(items, e)
		}
	}
	return items, nil
}

// Reload fetches the stored state of e. It returns nil if e is not stored.
// Reload bypasses the cache.
func (ec *EntityContext) Reload(ctx context.Context, e *proxy.Entity) (*proxy.Entity, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: entity", ErrNilArgument)
	}
	d, err := ec.managed(e)
	if err != nil {
		return nil, err
	}
	return ec.getOne(ctx, d, condition.And(condition.FieldEQ(schema.IDField, e.ID())), condition.First())
}

// managed returns the descriptor of e if it belongs to this context.
func (ec *EntityContext) managed(e *proxy.Entity) (*proxy.Descriptor, error) {
	d, ok := ec.byName[e.Name()]
	if !ok || d != e.Descriptor() {
		return nil, fmt.Errorf("%w: %s", ErrUnmanagedType, e.Name())
	}
	return d, nil
}

// LoadOne implements proxy.Loader.
func (ec *EntityContext) LoadOne(ctx context.Context, target string, id uuid.UUID) (*proxy.Entity, error) {
	return ec.Get(ctx, target, id)
}

// LoadMany implements proxy.Loader.
func (ec *EntityContext) LoadMany(ctx context.Context, target string, cs *condition.Conditions) ([]*proxy.Entity, error) {
	return ec.Search(ctx, target, cs, nil)
}

// query is the privacy.Query of a search.
type query struct {
	schema string
	cs     *condition.Conditions
}

func (q *query) Schema() string                    { return q.schema }
func (q *query) Conditions() *condition.Conditions { return q.cs }

func (q *query) Where(nodes ...condition.Node) {
	q.cs = condition.And(q.cs).Add(nodes...)
}
