package sql

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/dialect"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
	"github.com/nvt2106/magicstore/schema/edge"
	"github.com/nvt2106/magicstore/schema/field"
)

// orderDescriptor describes Order with the CustomerId slot injected by
// Customer.Orders. Its columns are Code, CustomerId, EntityId, Paid, Total.
func orderDescriptor(t testing.TB) *proxy.Descriptor {
	t.Helper()
	all := []*schema.Entity{
		schema.MustNew("Customer",
			field.String("Name").Required(),
			edge.To("Orders", "Order"),
		),
		schema.MustNew("Order",
			field.String("Code").Required().Length(1, 20),
			field.Float("Total"),
			field.Bool("Paid"),
		),
	}
	d, err := proxy.Describe(all[1], all)
	require.NoError(t, err)
	return d
}

func TestCreateTable(t *testing.T) {
	t.Parallel()

	d := orderDescriptor(t)
	tests := []struct {
		dialect string
		want    string
	}{
		{dialect.Postgres, `CREATE TABLE IF NOT EXISTS "Order" ("Code" varchar(20) NOT NULL, "CustomerId" uuid, "EntityId" uuid NOT NULL, "Paid" boolean, "Total" double precision, "IsDeleted" smallint NOT NULL DEFAULT 0, PRIMARY KEY ("EntityId"))`},
		{dialect.MySQL, "CREATE TABLE IF NOT EXISTS `Order` (`Code` varchar(20) NOT NULL, `CustomerId` varchar(36), `EntityId` varchar(36) NOT NULL, `Paid` bit, `Total` double, `IsDeleted` tinyint NOT NULL DEFAULT 0, PRIMARY KEY (`EntityId`))"},
		{dialect.SQLite, `CREATE TABLE IF NOT EXISTS "Order" ("Code" TEXT NOT NULL, "CustomerId" TEXT, "EntityId" TEXT NOT NULL, "Paid" INTEGER, "Total" REAL, "IsDeleted" smallint NOT NULL DEFAULT 0, PRIMARY KEY ("EntityId"))`},
		{dialect.MSSQL, `IF OBJECT_ID(N'[Order]', N'U') IS NULL CREATE TABLE [Order] ([Code] nvarchar(20) NOT NULL, [CustomerId] uniqueidentifier, [EntityId] uniqueidentifier NOT NULL, [Paid] bit, [Total] float, [IsDeleted] bit NOT NULL DEFAULT 0, PRIMARY KEY ([EntityId]))`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			got, err := Dialect(tt.dialect).CreateTable(d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Dialect("oracle").CreateTable(d)
	assert.ErrorContains(t, err, "unsupported dialect")
}

func TestTableName(t *testing.T) {
	t.Parallel()

	d := orderDescriptor(t)
	b := Dialect(dialect.MySQL)
	assert.Equal(t, "`Order`", b.Table(d))
	r := NewRepository(OpenDB(dialect.Postgres, nil), WithPluralTables())
	assert.Equal(t, `"Orders"`, r.Builder().Table(d))
	assert.Equal(t, `"we""ird"`, r.Builder().Quote(`we"ird`))
	assert.Equal(t, "[we]]ird]", Dialect(dialect.MSSQL).Quote("we]ird"))
}

func TestUpsert(t *testing.T) {
	t.Parallel()

	d := orderDescriptor(t)
	e := d.New()
	e.SetID(uuid.New())
	require.NoError(t, e.Load(map[string]any{"Code": "A1", "Total": 9.5}))

	query, args := Dialect(dialect.Postgres).Upsert(e)
	assert.Equal(t, `INSERT INTO "Order" ("Code", "CustomerId", "EntityId", "Paid", "Total", "IsDeleted") VALUES ($1, $2, $3, $4, $5, 0)`+
		` ON CONFLICT ("EntityId") DO UPDATE SET "Code" = excluded."Code", "CustomerId" = excluded."CustomerId", "Paid" = excluded."Paid", "Total" = excluded."Total", "IsDeleted" = excluded."IsDeleted"`, query)
	assert.Equal(t, []any{"A1", nil, e.ID(), nil, 9.5}, args)

	query, args = Dialect(dialect.MySQL).Upsert(e)
	assert.Equal(t, "INSERT INTO `Order` (`Code`, `CustomerId`, `EntityId`, `Paid`, `Total`, `IsDeleted`) VALUES (?, ?, ?, ?, ?, 0)"+
		" ON DUPLICATE KEY UPDATE `Code` = VALUES(`Code`), `CustomerId` = VALUES(`CustomerId`), `Paid` = VALUES(`Paid`), `Total` = VALUES(`Total`), `IsDeleted` = VALUES(`IsDeleted`)", query)
	assert.Len(t, args, 5)

	query, args = Dialect(dialect.MSSQL).Upsert(e)
	assert.Equal(t, "MERGE INTO [Order] WITH (HOLDLOCK) AS t USING (VALUES (@p1, @p2, @p3, @p4, @p5)) AS s ([Code], [CustomerId], [EntityId], [Paid], [Total])"+
		" ON t.[EntityId] = s.[EntityId] WHEN MATCHED THEN UPDATE SET t.[Code] = s.[Code], t.[CustomerId] = s.[CustomerId], t.[Paid] = s.[Paid], t.[Total] = s.[Total], t.[IsDeleted] = 0"+
		" WHEN NOT MATCHED THEN INSERT ([Code], [CustomerId], [EntityId], [Paid], [Total], [IsDeleted]) VALUES (s.[Code], s.[CustomerId], s.[EntityId], s.[Paid], s.[Total], 0);", query)
	assert.Equal(t, []any{"A1", nil, e.ID(), nil, 9.5}, args)
}

func TestSoftDelete(t *testing.T) {
	t.Parallel()

	d := orderDescriptor(t)
	e := d.New()
	e.SetID(uuid.New())
	query, args := Dialect(dialect.Postgres).SoftDelete(e)
	assert.Equal(t, `UPDATE "Order" SET "IsDeleted" = 1 WHERE "EntityId" = $1 AND "IsDeleted" = 0`, query)
	assert.Equal(t, []any{e.ID()}, args)
}

func TestSelect(t *testing.T) {
	t.Parallel()

	d := orderDescriptor(t)
	const columns = `SELECT "Code", "CustomerId", "EntityId", "Paid", "Total" FROM "Order" WHERE "IsDeleted" = 0`
	id := uuid.New()
	tests := []struct {
		name  string
		cs    *condition.Conditions
		page  *condition.PageSetting
		query string
		args  []any
	}{
		{
			name:  "all",
			query: columns + ` ORDER BY "IsDeleted"`,
		},
		{
			name:  "empty or",
			cs:    condition.Or(),
			page:  condition.All(),
			query: columns + ` ORDER BY "IsDeleted"`,
		},
		{
			name: "tree",
			cs: condition.And(
				condition.FieldEQ("Code", "A"),
				condition.Or(condition.FieldGT("Total", "10"), condition.FieldLike("Code", "ab")),
				condition.FieldExists("CustomerId"),
			),
			page:  (&condition.PageSetting{Size: 10, Index: 3}).Sort("Total", condition.Desc).Sort("Code", condition.Asc),
			query: columns + ` AND ("Code" = $1 AND ("Total" > $2 OR LOWER("Code") LIKE LOWER($3)) AND "CustomerId" IS NOT NULL) ORDER BY "IsDeleted", "Total" DESC, "Code" LIMIT 10 OFFSET 20`,
			args:  []any{"A", 10.0, "%ab%"},
		},
		{
			name:  "nested empty group",
			cs:    condition.Or(condition.And(), condition.FieldEQ("CustomerId", id.String())),
			query: columns + ` AND (1 = 1 OR "CustomerId" = $1) ORDER BY "IsDeleted"`,
			args:  []any{id},
		},
		{
			name:  "null",
			cs:    condition.And(condition.FieldEQ("CustomerId", nil), condition.FieldNEQ("Total", nil)),
			query: columns + ` AND ("CustomerId" IS NULL AND "Total" IS NOT NULL) ORDER BY "IsDeleted"`,
		},
		{
			name:  "exists",
			cs:    condition.And(condition.FieldExists("Code"), condition.FieldNotExist("Code"), condition.FieldNotExist("Paid")),
			query: columns + ` AND (("Code" IS NOT NULL AND TRIM("Code") <> '') AND ("Code" IS NULL OR TRIM("Code") = '') AND "Paid" IS NULL) ORDER BY "IsDeleted"`,
		},
		{
			name:  "in",
			cs:    condition.And(condition.FieldIn("Code", "A", "B"), condition.FieldNotIn("Total", 1, "2.5"), condition.FieldIn("Paid")),
			query: columns + ` AND ("Code" IN ($1, $2) AND "Total" NOT IN ($3, $4) AND 1 = 0) ORDER BY "IsDeleted"`,
			args:  []any{"A", "B", 1.0, 2.5},
		},
		{
			name:  "first",
			cs:    condition.And(condition.FieldLike("Code", "a_%")),
			page:  condition.First(),
			query: columns + ` AND (LOWER("Code") LIKE LOWER($1)) ORDER BY "IsDeleted" LIMIT 1 OFFSET 0`,
			args:  []any{"a_%"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := Dialect(dialect.Postgres).Select(d, tt.cs, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.query, query)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestSelectMySQL(t *testing.T) {
	t.Parallel()

	d := orderDescriptor(t)
	query, args, err := Dialect(dialect.MySQL).Select(d,
		condition.Or(condition.FieldLTE("Total", 5), condition.FieldEQ("Paid", "true")),
		(&condition.PageSetting{Size: 5, Index: 1}).Sort("Code", condition.Desc))
	require.NoError(t, err)
	assert.Equal(t, "SELECT `Code`, `CustomerId`, `EntityId`, `Paid`, `Total` FROM `Order` WHERE `IsDeleted` = 0"+
		" AND (`Total` <= ? OR `Paid` = ?) ORDER BY `IsDeleted`, `Code` DESC LIMIT 5 OFFSET 0", query)
	assert.Equal(t, []any{5.0, true}, args)
}

func TestSelectMSSQL(t *testing.T) {
	t.Parallel()

	d := orderDescriptor(t)
	query, args, err := Dialect(dialect.MSSQL).Select(d,
		condition.And(condition.FieldLike("Code", "[x"), condition.FieldGT("Total", 1)),
		(&condition.PageSetting{Size: 10, Index: 2}).Sort("Total", condition.Desc))
	require.NoError(t, err)
	assert.Equal(t, "SELECT [Code], [CustomerId], [EntityId], [Paid], [Total] FROM [Order] WHERE [IsDeleted] = 0"+
		" AND (LOWER([Code]) LIKE LOWER(@p1) AND [Total] > @p2) ORDER BY [IsDeleted], [Total] DESC OFFSET 10 ROWS FETCH NEXT 10 ROWS ONLY", query)
	assert.Equal(t, []any{"%[[]x%", 1.0}, args)
}

func TestSelectErrors(t *testing.T) {
	t.Parallel()

	d := orderDescriptor(t)
	b := Dialect(dialect.Postgres)

	_, _, err := b.Select(d, condition.And(condition.FieldEQ("Nope", 1)), nil)
	assert.ErrorIs(t, err, condition.ErrUnknownField)
	_, _, err = b.Select(d, nil, condition.All().Sort("Nope", condition.Asc))
	assert.ErrorIs(t, err, condition.ErrUnknownField)
	_, _, err = b.Select(d, condition.And(condition.FieldLike("Total", "1")), nil)
	assert.ErrorIs(t, err, condition.ErrLikeOperand)
	_, _, err = b.Select(d, condition.And(condition.FieldGT("Total", "abc")), nil)
	assert.Error(t, err)
}

func BenchmarkSelect(b *testing.B) {
	d := orderDescriptor(b)
	cs := condition.And(
		condition.FieldEQ("Code", "A"),
		condition.Or(condition.FieldGT("Total", 10), condition.FieldLike("Code", "ab")),
	)
	page := condition.First().Sort("Total", condition.Desc)
	builder := Dialect(dialect.Postgres)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, _ = builder.Select(d, cs, page)
	}
}
