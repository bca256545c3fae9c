// Package dialect defines the storage side of magicstore.
//
// An entity context talks to storage only through the Repository interface:
//
//	type Repository interface {
//	    PrepareStorage(ctx context.Context, d *proxy.Descriptor) error
//	    Fetch(ctx context.Context, d *proxy.Descriptor, cs *condition.Conditions, page *condition.PageSetting) ([]*proxy.Entity, error)
//	    Save(ctx context.Context, e *proxy.Entity) (*proxy.Entity, error)
//	    Delete(ctx context.Context, e *proxy.Entity) error
//	}
//
// # Backends
//
//   - dialect/memory: msgpack encoded rows held in memory
//   - dialect/sql: MySQL, PostgreSQL, SQL Server and SQLite tables
//
// # Dialect Constants
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//	dialect.MSSQL    = "sqlserver"
//	dialect.Memory   = "memory"
//
// # Driver Interface
//
// SQL repositories run their statements through a Driver:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Usage
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//	ec, err := magicstore.New(sql.NewRepository(drv), schemas)
package dialect
