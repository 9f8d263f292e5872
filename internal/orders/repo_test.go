package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func openOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range []string{`
CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  owner_email TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  image_ref TEXT,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  owner_email TEXT NOT NULL,
  total_price TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  order_status TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  external_payment_ref TEXT,
  return_requested BOOLEAN NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  image_ref TEXT,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`, `
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  next_attempt_at DATETIME,
  last_error TEXT
);`} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func insertOrder(t *testing.T, repo Repository, status enums.OrderStatus, owner string, createdAt time.Time) Order {
	t.Helper()
	o := sampleOrder(status)
	o.ID = uuid.New()
	o.OwnerEmail = owner
	o.Version = 1
	o.CreatedAt = createdAt
	o.UpdatedAt = createdAt
	require.NoError(t, repo.Create(context.Background(), toModel(o)))
	return o
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(openOrdersTestDB(t))
	o := insertOrder(t, repo, enums.OrderStatusProcessing, "ann@example.com", time.Now().UTC())

	found, err := repo.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	got := FromModel(found)
	assert.Equal(t, o.ShippingAddress, got.ShippingAddress)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1", got.Items[0].ProductID)
	assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1), got.Version)

	_, err = repo.FindByID(context.Background(), uuid.New())
	assert.True(t, isNotFound(err))
}

func TestRepositoryCompareAndSwap(t *testing.T) {
	repo := NewRepository(openOrdersTestDB(t))
	ctx := context.Background()
	o := insertOrder(t, repo, enums.OrderStatusProcessing, "ann@example.com", time.Now().UTC())

	next := o.withStatus(enums.OrderStatusShipped).withShippingAddress(types.Address{Street: "2 B St", City: "Rome", Country: "IT"})
	model := toModel(next)
	ok, err := repo.CompareAndSwap(ctx, model, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), model.Version)

	ok, err = repo.CompareAndSwap(ctx, toModel(o.withStatus(enums.OrderStatusCancelled)), 1)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must not overwrite")

	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, found.OrderStatus)
	assert.Equal(t, "Rome", found.ShippingAddress.City)
	assert.Equal(t, int64(2), found.Version)
}

func TestRepositoryListPaginates(t *testing.T) {
	repo := NewRepository(openOrdersTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		o := insertOrder(t, repo, enums.OrderStatusProcessing, "ann@example.com", base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, o.ID)
	}
	insertOrder(t, repo, enums.OrderStatusShipped, "bob@example.com", base.Add(time.Hour))

	status := enums.OrderStatusProcessing
	filters := ListFilters{OwnerEmail: "ann@example.com", OrderStatus: &status}

	first, err := repo.List(ctx, pagination.Params{Limit: 2}, filters)
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, ids[4], first.Orders[0].ID)
	assert.Equal(t, ids[3], first.Orders[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor}, filters)
	require.NoError(t, err)
	require.Len(t, second.Orders, 2)
	assert.Equal(t, ids[2], second.Orders[0].ID, "no row skipped between pages")

	third, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: second.NextCursor}, filters)
	require.NoError(t, err)
	require.Len(t, third.Orders, 1)
	assert.Empty(t, third.NextCursor)

	_, err = repo.List(ctx, pagination.Params{Cursor: "%%"}, filters)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRepositoryDelete(t *testing.T) {
	conn := openOrdersTestDB(t)
	repo := NewRepository(conn)
	o := insertOrder(t, repo, enums.OrderStatusProcessing, "ann@example.com", time.Now().UTC())

	deleted, err := repo.Delete(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	var items int64
	require.NoError(t, conn.Model(&models.OrderLineItem{}).Where("order_id = ?", o.ID).Count(&items).Error)
	assert.Zero(t, items)

	deleted, err = repo.Delete(context.Background(), o.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestServiceCheckoutWithSQLite(t *testing.T) {
	conn := openOrdersTestDB(t)
	client := db.NewFromGorm(conn)
	cartRepo := cart.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)

	cartSvc, err := cart.NewService(cart.ServiceParams{Repo: cartRepo, Tx: client})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Carts:    cartRepo,
		CartSync: cartSvc,
		Tx:       client,
		Outbox:   outbox.NewService(outboxRepo, nil),
		Refunds:  &fakeGateway{},
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cartSvc.AddItem(ctx, "ann@example.com", types.LineItem{ProductID: "p1", Name: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("3.25")})
	require.NoError(t, err)
	_, err = cartSvc.AddItem(ctx, "ann@example.com", types.LineItem{ProductID: "p1", Name: "Mug", Quantity: 1, UnitPrice: decimal.RequireFromString("3.25")})
	require.NoError(t, err)

	placed, err := svc.PlaceOrder(ctx, owner, checkoutInput("klarna"))
	require.NoError(t, err)
	assert.True(t, placed.TotalPrice.Equal(decimal.RequireFromString("9.75")))

	c, err := cartSvc.GetCart(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.False(t, c.Persisted(), "cart removed by checkout")

	_, err = svc.PlaceOrder(ctx, owner, checkoutInput("klarna"))
	assert.ErrorIs(t, err, ErrCartEmpty)

	shipped, err := svc.UpdateOrderStatus(ctx, Command{OrderID: placed.ID, Actor: admin}, "SHIPPED")
	require.NoError(t, err)
	returned, err := svc.RequestReturn(ctx, Command{OrderID: placed.ID, Actor: owner, ExpectedVersion: &shipped.Version})
	require.NoError(t, err)
	approved, err := svc.ApproveReturn(ctx, Command{OrderID: placed.ID, Actor: admin, ExpectedVersion: &returned.Version})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReturned, approved.OrderStatus)
	assert.Equal(t, int64(4), approved.Version)

	pending, err := outboxRepo.PendingCount(conn, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pending, "created, status, return and refund events")
}
