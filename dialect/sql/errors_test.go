package sql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
)

func TestConstraintErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                      string
		err                       error
		unique, foreignKey, check bool
	}{
		{name: "nil"},
		{name: "plain", err: errors.New("connection refused")},
		{name: "pgx unique", err: &pgconn.PgError{Code: "23505"}, unique: true},
		{name: "pgx check wrapped", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23514"}), check: true},
		{name: "pq foreign key", err: &pq.Error{Code: "23503"}, foreignKey: true},
		{name: "pq other", err: &pq.Error{Code: "42P01", Message: "violates unique constraint"}},
		{name: "mysql duplicate", err: &mysql.MySQLError{Number: 1062}, unique: true},
		{name: "mysql parent row", err: &mysql.MySQLError{Number: 1451}, foreignKey: true},
		{name: "mysql check", err: &mysql.MySQLError{Number: 3819}, check: true},
		{name: "mssql primary key", err: mssql.Error{Number: 2627, Message: "Violation of PRIMARY KEY constraint"}, unique: true},
		{name: "mssql unique index wrapped", err: fmt.Errorf("exec: %w", mssql.Error{Number: 2601}), unique: true},
		{name: "mssql foreign key", err: mssql.Error{Number: 547, Message: `The INSERT statement conflicted with the FOREIGN KEY constraint "FK_Order"`}, foreignKey: true},
		{name: "mssql check", err: mssql.Error{Number: 547, Message: `The INSERT statement conflicted with the CHECK constraint "CK_Total"`}, check: true},
		{name: "mssql other", err: mssql.Error{Number: 208, Message: "Invalid object name"}},
		{name: "sqlite text", err: errors.New("UNIQUE constraint failed: Order.Code"), unique: true},
		{name: "postgres text", err: errors.New(`violates foreign key constraint "fk"`), foreignKey: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.foreignKey, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))
			assert.Equal(t, tt.unique || tt.foreignKey || tt.check, IsConstraintError(tt.err))
		})
	}

	wrapped := &ConstraintError{msg: "save Order", wrap: errors.New("boom")}
	assert.True(t, IsConstraintError(fmt.Errorf("ctx: %w", wrapped)))
	assert.Equal(t, "dialect/sql: constraint failed: save Order", wrapped.Error())
}
