package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func openCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	stmts := []string{`
CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  owner_email TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX ux_carts_owner_email ON carts (owner_email);`,
		`
CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  image_ref TEXT,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range stmts {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func TestRepositoryRoundTrip(t *testing.T) {
	conn := openCartTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Cart{ID: uuid.New(), OwnerEmail: "buyer@example.com"})
	require.NoError(t, err)

	items := toItemModels(created.ID, []types.LineItem{
		line("p2", 1, "3.50"),
		line("p1", 4, "10.00"),
	})
	require.NoError(t, repo.ReplaceItems(ctx, created.ID, items))

	found, err := repo.FindByOwner(ctx, "buyer@example.com")
	require.NoError(t, err)
	got := FromModel(found)
	require.Len(t, got.Items, 2)
	require.Equal(t, "p2", got.Items[0].ProductID, "items keep insertion order")
	require.True(t, got.Total().Equal(decimal.RequireFromString("43.50")))

	require.NoError(t, repo.ReplaceItems(ctx, created.ID, nil))
	found, err = repo.FindByOwner(ctx, "buyer@example.com")
	require.NoError(t, err)
	require.Empty(t, found.Items)
}

func TestRepositoryUniqueOwner(t *testing.T) {
	conn := openCartTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.Cart{ID: uuid.New(), OwnerEmail: "buyer@example.com"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Cart{ID: uuid.New(), OwnerEmail: "buyer@example.com"})
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryDeleteByOwner(t *testing.T) {
	conn := openCartTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	deleted, err := repo.DeleteByOwner(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.False(t, deleted)

	created, err := repo.Create(ctx, &models.Cart{ID: uuid.New(), OwnerEmail: "buyer@example.com"})
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceItems(ctx, created.ID, toItemModels(created.ID, []types.LineItem{line("p1", 1, "1.00")})))

	deleted, err = repo.DeleteByOwner(ctx, "buyer@example.com")
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = repo.FindByOwner(ctx, "buyer@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var remaining int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&remaining).Error)
	require.Zero(t, remaining)
}

func TestRepositoryPurgeStale(t *testing.T) {
	conn := openCartTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	stale, err := repo.Create(ctx, &models.Cart{ID: uuid.New(), OwnerEmail: "gone@example.com"})
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceItems(ctx, stale.ID, toItemModels(stale.ID, []types.LineItem{line("p1", 1, "1.00")})))
	fresh, err := repo.Create(ctx, &models.Cart{ID: uuid.New(), OwnerEmail: "active@example.com"})
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceItems(ctx, fresh.ID, toItemModels(fresh.ID, []types.LineItem{line("p2", 2, "2.00")})))
	require.NoError(t, conn.Model(&models.Cart{}).Where("id = ?", stale.ID).
		UpdateColumn("updated_at", now.Add(-60*24*time.Hour)).Error)

	owners, err := repo.PurgeStale(ctx, now.Add(-30*24*time.Hour), 10)
	require.NoError(t, err)
	require.Equal(t, []string{"gone@example.com"}, owners)

	_, err = repo.FindByOwner(ctx, "gone@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	kept, err := repo.FindByOwner(ctx, "active@example.com")
	require.NoError(t, err)
	require.Len(t, kept.Items, 1)

	var items int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&items).Error)
	require.EqualValues(t, 1, items)

	owners, err = repo.PurgeStale(ctx, now.Add(-30*24*time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, owners)
}

func TestServiceWithSQLiteTransactions(t *testing.T) {
	conn := openCartTestDB(t)
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), Tx: db.NewFromGorm(conn)})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.AddItem(ctx, "buyer@example.com", line("p1", 1, "2.00"))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "buyer@example.com", line("p1", 2, "2.00"))
	require.NoError(t, err)

	got, err := svc.GetCart(ctx, "buyer@example.com")
	require.NoError(t, err)
	require.True(t, got.Persisted())
	require.Len(t, got.Items, 1)
	require.Equal(t, 3, got.Items[0].Quantity)
}
