package dialect

import (
	"context"
	"database/sql/driver"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/proxy"
)

// Dialect names.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
	MSSQL    = "sqlserver"
	Memory   = "memory"
)

// Repository is the storage backend of an entity context.
type Repository interface {
	// PrepareStorage sets up storage for the entities of d. It is called once
	// per schema when an entity context is built and must be idempotent.
	PrepareStorage(ctx context.Context, d *proxy.Descriptor) error
	// Fetch returns the stored entities of d that are not deleted and match
	// cs, sorted and paged as requested. No match returns a nil slice.
	// Returned entities must be clean: their previous values equal their values.
	Fetch(ctx context.Context, d *proxy.Descriptor, cs *condition.Conditions, page *condition.PageSetting) ([]*proxy.Entity, error)
	// Save upserts e by id and returns the stored state.
	Save(ctx context.Context, e *proxy.Entity) (*proxy.Entity, error)
	// Delete removes or soft-deletes e by id.
	Delete(ctx context.Context, e *proxy.Entity) error
}

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL,
	// INSERT or UPDATE. It scans the result into the pointer v. For SQL drivers,
	// it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is
	// *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for SQL
// repositories.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}
