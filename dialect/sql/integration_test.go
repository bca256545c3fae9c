//go:build integration

package sql_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/dialect/sql"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
	"github.com/nvt2106/magicstore/schema/field"
)

func TestPostgresRepository(t *testing.T) {
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("magicstore"),
		postgres.WithUsername("magicstore"),
		postgres.WithPassword("magicstore"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	drv, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	repo := sql.NewRepository(drv, sql.WithPluralTables())
	t.Cleanup(func() { repo.Close() })

	s := schema.MustNew("Product",
		field.String("Code").Required().MaxLen(20),
		field.Float("Price"),
		field.Time("AddedAt"),
	)
	d, err := proxy.Describe(s, []*schema.Entity{s})
	require.NoError(t, err)
	require.NoError(t, repo.PrepareStorage(ctx, d))
	require.NoError(t, repo.PrepareStorage(ctx, d), "idempotent")

	for i, code := range []string{"apple", "Pear", "grape"} {
		e := d.New()
		e.SetID(uuid.New())
		require.NoError(t, e.Load(map[string]any{"Code": code, "Price": float64(i + 1)}))
		_, err := repo.Save(ctx, e)
		require.NoError(t, err)
	}

	got, err := repo.Fetch(ctx, d, condition.And(condition.FieldLike("Code", "PE")), condition.All().Sort("Code", condition.Asc))
	require.NoError(t, err)
	require.Len(t, got, 1)
	code, _ := got[0].Get("Code")
	assert.Equal(t, "Pear", code)
	assert.False(t, got[0].IsDirty())

	require.NoError(t, got[0].Set("Price", 9.5))
	_, err = repo.Save(ctx, got[0])
	require.NoError(t, err)
	page, err := condition.NewPageSetting(1, 1)
	require.NoError(t, err)
	top, err := repo.Fetch(ctx, d, nil, page.Sort("Price", condition.Desc))
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, got[0].ID(), top[0].ID())

	require.NoError(t, repo.Delete(ctx, top[0]))
	all, err := repo.Fetch(ctx, d, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
