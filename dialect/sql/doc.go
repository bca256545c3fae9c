// Package sql implements the SQL repository of magicstore for MySQL,
// PostgreSQL, SQL Server and SQLite.
//
// Every schema is stored in one table named after it, optionally pluralised.
// Columns are the proxy slots ordered by name plus an IsDeleted flag:
//
//	CREATE TABLE IF NOT EXISTS "Order" (
//	    "Code" varchar(20) NOT NULL,
//	    "CustomerId" uuid,
//	    "EntityId" uuid NOT NULL,
//	    "Total" double precision,
//	    "IsDeleted" smallint NOT NULL DEFAULT 0,
//	    PRIMARY KEY ("EntityId"))
//
// # Statements
//
// Builder renders the statements of the repository for one dialect:
//
//	b := sql.Dialect(dialect.Postgres)
//	query, args, err := b.Select(d, condition.MustParse(`Code == "A"`), condition.First())
//	// SELECT "Code", "CustomerId", "EntityId", "Total" FROM "Order"
//	// WHERE "IsDeleted" = 0 AND ("Code" = $1) ORDER BY "IsDeleted" LIMIT 1 OFFSET 0
//
// Saves are upserts (ON DUPLICATE KEY UPDATE on MySQL, MERGE on SQL Server,
// ON CONFLICT on PostgreSQL and SQLite) followed by a read of the stored row,
// both in one transaction. Deletes set IsDeleted. SQL Server pages with
// OFFSET ... FETCH NEXT instead of LIMIT.
//
// # Drivers
//
// Driver wraps a database/sql.DB. StatsDriver counts queries and reports slow
// ones, DebugDriver logs every statement:
//
//	drv, err := sql.Open("pgx", dsn)
//	if err != nil {
//	    return err
//	}
//	repo := sql.NewRepository(sql.NewStatsDriver(drv, sql.WithSlowQueryLog(logger)))
//
// # Constraint Errors
//
// IsUniqueConstraintError, IsForeignKeyConstraintError and
// IsCheckConstraintError classify driver errors of lib/pq, pgx, the MySQL
// driver, go-mssqldb and modernc.org/sqlite.
package sql
