package sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/dialect"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
)

// Repository is a dialect.Repository storing one table per schema. Rows are
// soft deleted.
type Repository struct {
	drv dialect.Driver
	b   *Builder
	log *slog.Logger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithPluralTables names tables after the plural of their schema name.
func WithPluralTables() RepositoryOption {
	return func(r *Repository) {
		r.b.TableName = inflect.Pluralize
	}
}

// WithTableName sets the function mapping schema names to table names.
func WithTableName(fn func(string) string) RepositoryOption {
	return func(r *Repository) {
		r.b.TableName = fn
	}
}

// WithLogger sets the logger of the repository. Defaults to slog.Default().
// A nil logger is ignored.
func WithLogger(l *slog.Logger) RepositoryOption {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRepository returns a repository running its statements through drv.
func NewRepository(drv dialect.Driver, opts ...RepositoryOption) *Repository {
	r := &Repository{
		drv: drv,
		b:   Dialect(drv.Dialect()),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Builder returns the statement builder of the repository.
func (r *Repository) Builder() *Builder { return r.b }

// Driver returns the driver of the repository.
func (r *Repository) Driver() dialect.Driver { return r.drv }

// Close closes the underlying driver.
func (r *Repository) Close() error { return r.drv.Close() }

// PrepareStorage creates the table of d if it does not exist.
func (r *Repository) PrepareStorage(ctx context.Context, d *proxy.Descriptor) error {
	query, err := r.b.CreateTable(d)
	if err != nil {
		return err
	}
	if err := r.drv.Exec(ctx, query, []any{}, nil); err != nil {
		return fmt.Errorf("dialect/sql: create table %s: %w", d.Name(), err)
	}
	r.log.DebugContext(ctx, "table prepared", "schema", d.Name(), "table", r.b.Table(d))
	return nil
}

// Fetch queries the rows of d matching cs.
func (r *Repository) Fetch(ctx context.Context, d *proxy.Descriptor, cs *condition.Conditions, page *condition.PageSetting) ([]*proxy.Entity, error) {
	query, args, err := r.b.Select(d, cs, page)
	if err != nil {
		return nil, err
	}
	rows := &Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	es, err := scanEntities(rows, d, r.columnValue())
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: fetch %s: %w", d.Name(), err)
	}
	return es, nil
}

// columnValue returns the conversion applied to scanned values before they
// are set on an entity, nil when the driver values need none.
func (r *Repository) columnValue() func(*proxy.Slot, any) any {
	if r.b.Dialect() != dialect.MSSQL {
		return nil
	}
	// uniqueidentifier columns come back in the mixed-endian wire order.
	return func(s *proxy.Slot, v any) any {
		b, ok := v.([]byte)
		if !ok || s.Type != schema.TypeUUID || len(b) != 16 {
			return v
		}
		var id mssql.UniqueIdentifier
		if err := id.Scan(b); err != nil {
			return v
		}
		return uuid.UUID(id)
	}
}

// ScanEntities scans rows selected with the columns of d into clean entities.
// No rows returns a nil slice.
func ScanEntities(rows ColumnScanner, d *proxy.Descriptor) ([]*proxy.Entity, error) {
	return scanEntities(rows, d, nil)
}

func scanEntities(rows ColumnScanner, d *proxy.Descriptor, conv func(*proxy.Slot, any) any) ([]*proxy.Entity, error) {
	cols := Columns(d)
	var es []*proxy.Entity
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		e := d.New()
		var errs []error
		for i, c := range cols {
			v := values[i]
			if conv != nil {
				v = conv(c, v)
			}
			if err := e.Set(c.Name, v); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return nil, err
		}
		e.ClearChanges()
		es = append(es, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return es, nil
}

// Save upserts e and reads the stored row back in the same transaction.
// The returned entity is clean. Rejections by database constraints are
// returned as *ConstraintError.
func (r *Repository) Save(ctx context.Context, e *proxy.Entity) (_ *proxy.Entity, err error) {
	d := e.Descriptor()
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: save %s: begin: %w", e, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := tx.Rollback(); rerr != nil {
			r.log.WarnContext(ctx, "rollback failed", "entity", e.String(), "error", rerr)
		}
	}()
	query, args := r.b.Upsert(e)
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		if IsConstraintError(err) {
			return nil, &ConstraintError{msg: fmt.Sprintf("save %s", e), wrap: err}
		}
		return nil, fmt.Errorf("dialect/sql: save %s: %w", e, err)
	}
	stored, err := r.readBack(ctx, tx, d, e.ID())
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: save %s: read back: %w", e, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("dialect/sql: save %s: commit: %w", e, err)
	}
	return stored, nil
}

// readBack selects the live row with the given id. The rows are closed
// before the caller commits.
func (r *Repository) readBack(ctx context.Context, q dialect.ExecQuerier, d *proxy.Descriptor, id uuid.UUID) (*proxy.Entity, error) {
	query, args, err := r.b.Select(d, condition.And(condition.FieldEQ(schema.IDField, id)), condition.First())
	if err != nil {
		return nil, err
	}
	rows := &Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	es, err := scanEntities(rows, d, r.columnValue())
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if len(es) != 1 {
		return nil, fmt.Errorf("found %d rows", len(es))
	}
	return es[0], nil
}

// Delete soft deletes the row of e.
func (r *Repository) Delete(ctx context.Context, e *proxy.Entity) error {
	query, args := r.b.SoftDelete(e)
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("dialect/sql: delete %s: %w", e, err)
	}
	return nil
}

var _ dialect.Repository = (*Repository)(nil)
