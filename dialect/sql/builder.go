package sql

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/dialect"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
)

// DeletedColumn is the soft delete flag added to every table.
const DeletedColumn = "IsDeleted"

// Builder renders the statements of a SQL repository for one dialect.
type Builder struct {
	dialect string
	// TableName maps a schema name to its table. Defaults to the identity.
	TableName func(string) string
}

// Dialect returns a builder for the given dialect.
func Dialect(name string) *Builder {
	return &Builder{dialect: name}
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string { return b.dialect }

// Quote quotes an identifier.
func (b *Builder) Quote(ident string) string {
	switch b.dialect {
	case dialect.MySQL:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	case dialect.MSSQL:
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Table returns the quoted table name of d.
func (b *Builder) Table(d *proxy.Descriptor) string {
	name := d.Name()
	if b.TableName != nil {
		name = b.TableName(name)
	}
	return b.Quote(name)
}

// Columns returns the slots of d ordered by name, the column order of every
// statement.
func Columns(d *proxy.Descriptor) []*proxy.Slot {
	cols := make([]*proxy.Slot, len(d.Slots))
	for i := range d.Slots {
		cols[i] = &d.Slots[i]
	}
	slices.SortFunc(cols, func(a, b *proxy.Slot) int { return strings.Compare(a.Name, b.Name) })
	return cols
}

var columnTypes = map[string]map[schema.Type]string{
	dialect.MySQL: {
		schema.TypeInt16:   "smallint",
		schema.TypeInt32:   "int",
		schema.TypeInt64:   "bigint",
		schema.TypeBool:    "bit",
		schema.TypeFloat64: "double",
		schema.TypeTime:    "datetime(6)",
		schema.TypeUUID:    "varchar(36)",
		schema.TypeString:  "text",
	},
	dialect.Postgres: {
		schema.TypeInt16:   "smallint",
		schema.TypeInt32:   "integer",
		schema.TypeInt64:   "bigint",
		schema.TypeBool:    "boolean",
		schema.TypeFloat64: "double precision",
		schema.TypeTime:    "timestamptz",
		schema.TypeUUID:    "uuid",
		schema.TypeString:  "text",
	},
	dialect.MSSQL: {
		schema.TypeInt16:   "smallint",
		schema.TypeInt32:   "int",
		schema.TypeInt64:   "bigint",
		schema.TypeBool:    "bit",
		schema.TypeFloat64: "float",
		schema.TypeTime:    "datetime2",
		schema.TypeUUID:    "uniqueidentifier",
		schema.TypeString:  "nvarchar(max)",
	},
	dialect.SQLite: {
		schema.TypeInt16:   "INTEGER",
		schema.TypeInt32:   "INTEGER",
		schema.TypeInt64:   "INTEGER",
		schema.TypeBool:    "INTEGER",
		schema.TypeFloat64: "REAL",
		schema.TypeTime:    "DATETIME",
		schema.TypeUUID:    "TEXT",
		schema.TypeString:  "TEXT",
	},
}

// ColumnType returns the column type of a slot.
func (b *Builder) ColumnType(s *proxy.Slot) (string, error) {
	types, ok := columnTypes[b.dialect]
	if !ok {
		return "", fmt.Errorf("dialect/sql: unsupported dialect %q", b.dialect)
	}
	if s.Type == schema.TypeString && s.Field != nil && s.Field.MaxLen > 0 {
		switch b.dialect {
		case dialect.MSSQL:
			return "nvarchar(" + strconv.Itoa(s.Field.MaxLen) + ")", nil
		case dialect.MySQL, dialect.Postgres:
			return "varchar(" + strconv.Itoa(s.Field.MaxLen) + ")", nil
		}
	}
	t, ok := types[s.Type]
	if !ok {
		return "", fmt.Errorf("dialect/sql: no column type for %s of type %s", s.Name, s.Type)
	}
	return t, nil
}

func (b *Builder) deletedType() string {
	switch b.dialect {
	case dialect.MySQL:
		return "tinyint"
	case dialect.MSSQL:
		return "bit"
	}
	return "smallint"
}

// CreateTable returns the statement creating the table of d if it does not exist.
func (b *Builder) CreateTable(d *proxy.Descriptor) (string, error) {
	var sb strings.Builder
	if b.dialect == dialect.MSSQL {
		// SQL Server has no IF NOT EXISTS clause for tables.
		fmt.Fprintf(&sb, "IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE ", strings.ReplaceAll(b.Table(d), "'", "''"))
	} else {
		sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	}
	sb.WriteString(b.Table(d))
	sb.WriteString(" (")
	for _, s := range Columns(d) {
		t, err := b.ColumnType(s)
		if err != nil {
			return "", err
		}
		sb.WriteString(b.Quote(s.Name))
		sb.WriteByte(' ')
		sb.WriteString(t)
		if s.Index == 0 || (s.Field != nil && s.Field.Required) {
			sb.WriteString(" NOT NULL")
		}
		sb.WriteString(", ")
	}
	fmt.Fprintf(&sb, "%s %s NOT NULL DEFAULT 0, PRIMARY KEY (%s))",
		b.Quote(DeletedColumn), b.deletedType(), b.Quote(schema.IDField))
	return sb.String(), nil
}

// statement collects SQL text and its arguments.
type statement struct {
	strings.Builder
	b    *Builder
	args []any
}

func (b *Builder) statement() *statement {
	return &statement{b: b}
}

// arg writes the placeholder of v.
func (s *statement) arg(v any) {
	s.args = append(s.args, v)
	switch s.b.dialect {
	case dialect.Postgres:
		s.WriteString("$" + strconv.Itoa(len(s.args)))
	case dialect.MSSQL:
		s.WriteString("@p" + strconv.Itoa(len(s.args)))
	default:
		s.WriteByte('?')
	}
}

func (s *statement) ident(name string) {
	s.WriteString(s.b.Quote(name))
}

// Upsert returns the statement inserting e or updating the row with its id.
// Upserting a deleted row restores it.
func (b *Builder) Upsert(e *proxy.Entity) (string, []any) {
	if b.dialect == dialect.MSSQL {
		return b.merge(e)
	}
	d := e.Descriptor()
	cols := Columns(d)
	st := b.statement()
	st.WriteString("INSERT INTO ")
	st.WriteString(b.Table(d))
	st.WriteString(" (")
	for _, c := range cols {
		st.ident(c.Name)
		st.WriteString(", ")
	}
	st.ident(DeletedColumn)
	st.WriteString(") VALUES (")
	for _, c := range cols {
		v, _ := e.Value(c.Name)
		st.arg(v)
		st.WriteString(", ")
	}
	st.WriteString("0)")
	update := make([]string, 0, len(cols))
	for _, c := range cols {
		if c.Index != 0 {
			update = append(update, c.Name)
		}
	}
	update = append(update, DeletedColumn)
	if b.dialect == dialect.MySQL {
		st.WriteString(" ON DUPLICATE KEY UPDATE ")
		for i, name := range update {
			if i > 0 {
				st.WriteString(", ")
			}
			fmt.Fprintf(st, "%s = VALUES(%s)", b.Quote(name), b.Quote(name))
		}
		return st.String(), st.args
	}
	st.WriteString(" ON CONFLICT (")
	st.ident(schema.IDField)
	st.WriteString(") DO UPDATE SET ")
	for i, name := range update {
		if i > 0 {
			st.WriteString(", ")
		}
		fmt.Fprintf(st, "%s = excluded.%s", b.Quote(name), b.Quote(name))
	}
	return st.String(), st.args
}

// merge renders the upsert of e as a SQL Server MERGE statement.
func (b *Builder) merge(e *proxy.Entity) (string, []any) {
	d := e.Descriptor()
	cols := Columns(d)
	st := b.statement()
	st.WriteString("MERGE INTO ")
	st.WriteString(b.Table(d))
	st.WriteString(" WITH (HOLDLOCK) AS t USING (VALUES (")
	for i, c := range cols {
		if i > 0 {
			st.WriteString(", ")
		}
		v, _ := e.Value(c.Name)
		st.arg(v)
	}
	st.WriteString(")) AS s (")
	for i, c := range cols {
		if i > 0 {
			st.WriteString(", ")
		}
		st.ident(c.Name)
	}
	fmt.Fprintf(st, ") ON t.%s = s.%s WHEN MATCHED THEN UPDATE SET ", b.Quote(schema.IDField), b.Quote(schema.IDField))
	for _, c := range cols {
		if c.Index == 0 {
			continue
		}
		fmt.Fprintf(st, "t.%s = s.%s, ", b.Quote(c.Name), b.Quote(c.Name))
	}
	fmt.Fprintf(st, "t.%s = 0 WHEN NOT MATCHED THEN INSERT (", b.Quote(DeletedColumn))
	for _, c := range cols {
		st.ident(c.Name)
		st.WriteString(", ")
	}
	st.ident(DeletedColumn)
	st.WriteString(") VALUES (")
	for _, c := range cols {
		fmt.Fprintf(st, "s.%s, ", b.Quote(c.Name))
	}
	st.WriteString("0);")
	return st.String(), st.args
}

// SoftDelete returns the statement flagging the row of e as deleted.
func (b *Builder) SoftDelete(e *proxy.Entity) (string, []any) {
	st := b.statement()
	st.WriteString("UPDATE ")
	st.WriteString(b.Table(e.Descriptor()))
	st.WriteString(" SET ")
	st.ident(DeletedColumn)
	st.WriteString(" = 1 WHERE ")
	st.ident(schema.IDField)
	st.WriteString(" = ")
	st.arg(e.ID())
	st.WriteString(" AND ")
	st.ident(DeletedColumn)
	st.WriteString(" = 0")
	return st.String(), st.args
}

// Select returns the query of the rows of d that are not deleted and match
// cs, ordered and paged by page.
func (b *Builder) Select(d *proxy.Descriptor, cs *condition.Conditions, page *condition.PageSetting) (string, []any, error) {
	st := b.statement()
	st.WriteString("SELECT ")
	for i, c := range Columns(d) {
		if i > 0 {
			st.WriteString(", ")
		}
		st.ident(c.Name)
	}
	st.WriteString(" FROM ")
	st.WriteString(b.Table(d))
	st.WriteString(" WHERE ")
	st.ident(DeletedColumn)
	st.WriteString(" = 0")
	if cs.Len() > 0 {
		st.WriteString(" AND ")
		if err := st.group(d, cs); err != nil {
			return "", nil, err
		}
	}
	st.WriteString(" ORDER BY ")
	st.ident(DeletedColumn)
	if page != nil {
		for _, s := range page.Sorts {
			if _, ok := d.Slot(s.Field); !ok {
				return "", nil, fmt.Errorf("dialect/sql: sort %s: %w %q", d.Name(), condition.ErrUnknownField, s.Field)
			}
			st.WriteString(", ")
			st.ident(s.Field)
			if s.Direction == condition.Desc {
				st.WriteString(" DESC")
			}
		}
	}
	switch {
	case !page.Paged():
	case b.dialect == dialect.MSSQL:
		fmt.Fprintf(st, " OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", page.Offset(), page.Size)
	default:
		fmt.Fprintf(st, " LIMIT %d OFFSET %d", page.Size, page.Offset())
	}
	return st.String(), st.args, nil
}

func (st *statement) node(d *proxy.Descriptor, n condition.Node) error {
	switch n := n.(type) {
	case *condition.Conditions:
		return st.group(d, n)
	case *condition.Condition:
		return st.condition(d, n)
	default:
		return fmt.Errorf("dialect/sql: unexpected condition node %T", n)
	}
}

func (st *statement) group(d *proxy.Descriptor, cs *condition.Conditions) error {
	if cs.Len() == 0 {
		st.WriteString("1 = 1")
		return nil
	}
	sep := " OR "
	if cs.IsAnd {
		sep = " AND "
	}
	st.WriteByte('(')
	for i, n := range cs.Items {
		if i > 0 {
			st.WriteString(sep)
		}
		if err := st.node(d, n); err != nil {
			return err
		}
	}
	st.WriteByte(')')
	return nil
}

var comparisons = map[condition.Operator]string{
	condition.OpEQ:  "=",
	condition.OpNEQ: "<>",
	condition.OpLT:  "<",
	condition.OpLTE: "<=",
	condition.OpGT:  ">",
	condition.OpGTE: ">=",
}

func (st *statement) condition(d *proxy.Descriptor, c *condition.Condition) error {
	s, ok := d.Slot(c.Field)
	if !ok {
		return fmt.Errorf("dialect/sql: %s: %w %q", d.Name(), condition.ErrUnknownField, c.Field)
	}
	col := st.b.Quote(s.Name)
	switch c.Op {
	case condition.OpEQ, condition.OpNEQ, condition.OpLT, condition.OpLTE, condition.OpGT, condition.OpGTE:
		v, err := s.Type.Normalize(c.Value)
		if err != nil {
			return fmt.Errorf("dialect/sql: %s: %w", c, err)
		}
		switch {
		case v == nil && c.Op == condition.OpEQ:
			st.WriteString(col + " IS NULL")
		case v == nil && c.Op == condition.OpNEQ:
			st.WriteString(col + " IS NOT NULL")
		case v == nil:
			// Nothing orders below null.
			st.WriteString("1 = 0")
		default:
			st.WriteString(col + " " + comparisons[c.Op] + " ")
			st.arg(v)
		}
	case condition.OpExists:
		if s.Type == schema.TypeString {
			st.WriteString("(" + col + " IS NOT NULL AND TRIM(" + col + ") <> '')")
		} else {
			st.WriteString(col + " IS NOT NULL")
		}
	case condition.OpNotExist:
		if s.Type == schema.TypeString {
			st.WriteString("(" + col + " IS NULL OR TRIM(" + col + ") = '')")
		} else {
			st.WriteString(col + " IS NULL")
		}
	case condition.OpLike:
		p, ok := c.Value.(string)
		if !ok || s.Type != schema.TypeString {
			return fmt.Errorf("dialect/sql: %s: %w", c, condition.ErrLikeOperand)
		}
		if p == "" {
			st.WriteString("1 = 0")
			return nil
		}
		p = condition.LikePattern(p)
		if st.b.dialect == dialect.MSSQL {
			// Brackets open character classes in SQL Server patterns.
			p = strings.ReplaceAll(p, "[", "[[]")
		}
		st.WriteString("LOWER(" + col + ") LIKE LOWER(")
		st.arg(p)
		st.WriteByte(')')
	case condition.OpIn, condition.OpNotIn:
		vs, ok := c.Value.([]any)
		if !ok {
			return fmt.Errorf("dialect/sql: %s: expect a list of values", c)
		}
		if len(vs) == 0 {
			if c.Op == condition.OpIn {
				st.WriteString("1 = 0")
			} else {
				st.WriteString("1 = 1")
			}
			return nil
		}
		st.WriteString(col)
		if c.Op == condition.OpNotIn {
			st.WriteString(" NOT")
		}
		st.WriteString(" IN (")
		for i, raw := range vs {
			v, err := s.Type.Normalize(raw)
			if err != nil {
				return fmt.Errorf("dialect/sql: %s: %w", c, err)
			}
			if i > 0 {
				st.WriteString(", ")
			}
			st.arg(v)
		}
		st.WriteByte(')')
	default:
		return fmt.Errorf("dialect/sql: unsupported operator %s", c.Op)
	}
	return nil
}
