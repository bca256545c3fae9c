package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ConstraintError is returned by repository writes rejected by a database
// constraint.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error implements the error interface.
func (e *ConstraintError) Error() string { return "dialect/sql: constraint failed: " + e.msg }

// Unwrap implements the errors.Wrapper interface.
func (e *ConstraintError) Unwrap() error { return e.wrap }

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// SQL Server error numbers for constraint violations. Foreign key and check
// conflicts share one number and differ by message.
const (
	mssqlUniqueConstraint = 2627
	mssqlUniqueIndex      = 2601
	mssqlConstraintFailed = 547
)

// violation lists the driver codes of one kind of constraint violation.
type violation struct {
	pg     string
	mysql  []uint16
	mssql  []int32
	mssqlM string // required in the message of a SQL Server error, if set
	sqlite []int
	text   []string
}

var (
	uniqueViolation = violation{
		pg:     pgUniqueViolation,
		mysql:  []uint16{mysqlDuplicateEntry},
		mssql:  []int32{mssqlUniqueConstraint, mssqlUniqueIndex},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY},
		text:   []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed", "Cannot insert duplicate key"},
	}
	foreignKeyViolation = violation{
		pg:     pgForeignKeyViolation,
		mysql:  []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		mssql:  []int32{mssqlConstraintFailed},
		mssqlM: "FOREIGN KEY",
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY},
		text:   []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed", "conflicted with the FOREIGN KEY constraint"},
	}
	checkViolation = violation{
		pg:     pgCheckViolation,
		mysql:  []uint16{mysqlCheckConstraintViolate},
		mssql:  []int32{mssqlConstraintFailed},
		mssqlM: "CHECK",
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_CHECK},
		text:   []string{"Error 3819", "violates check constraint", "CHECK constraint failed", "conflicted with the CHECK constraint"},
	}
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return uniqueViolation.match(err)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return foreignKeyViolation.match(err)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	return checkViolation.match(err)
}

func (v violation) match(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[*pgconn.PgError](err); ok {
		return e.Code == v.pg
	}
	if e, ok := asError[*pq.Error](err); ok {
		return string(e.Code) == v.pg
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		for _, n := range v.mysql {
			if e.Number == n {
				return true
			}
		}
		return false
	}
	if e, ok := asError[mssql.Error](err); ok {
		for _, n := range v.mssql {
			if e.Number == n {
				return v.mssqlM == "" || strings.Contains(e.Message, v.mssqlM)
			}
		}
		return false
	}
	if e, ok := asError[*sqlite.Error](err); ok {
		for _, c := range v.sqlite {
			if e.Code() == c {
				return true
			}
		}
		return false
	}
	// Drivers wrapped by other layers may only keep the message.
	return containsAny(err.Error(), v.text...)
}

// asError attempts to extract an error of type T from the error chain.
func asError[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
