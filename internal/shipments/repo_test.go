package shipments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haiminhngo/farmlink-backend/pkg/db/models"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

func setupShipmentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	shipments := `
CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  driver_id TEXT,
  status TEXT NOT NULL,
  vehicle_info TEXT,
  pickup_address TEXT NOT NULL,
  delivery_address TEXT NOT NULL,
  current_location TEXT,
  picked_up_at DATETIME,
  delivered_at DATETIME,
  delivery_image_url TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  retailer_id TEXT NOT NULL,
  farm_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_vnd INTEGER NOT NULL,
  total_price_vnd INTEGER NOT NULL,
  deposit_amount_vnd INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  delivery_address TEXT NOT NULL,
  contract_terms TEXT,
  note TEXT,
  delivery_image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(shipments).Error)
	require.NoError(t, db.Exec(orders).Error)
	return db
}

func seedShipment(t *testing.T, db *gorm.DB, status enums.ShipmentStatus) *models.Shipment {
	t.Helper()

	shipment := &models.Shipment{
		ID:              uuid.New(),
		OrderID:         uuid.New(),
		Status:          status,
		PickupAddress:   "Moc Chau, Son La",
		DeliveryAddress: "12 Hang Bai, Hanoi",
	}
	require.NoError(t, db.Create(shipment).Error)
	return shipment
}

func TestRepositoryFindByOrder(t *testing.T) {
	db := setupShipmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedShipment(t, db, enums.ShipmentStatusCreated)

	found, err := repo.FindByOrder(ctx, seeded.OrderID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindByOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateStatusInGuard(t *testing.T) {
	db := setupShipmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedShipment(t, db, enums.ShipmentStatusAssigned)

	accepted := []enums.ShipmentStatus{enums.ShipmentStatusCreated, enums.ShipmentStatusAssigned}
	rows, err := repo.UpdateStatus(ctx, seeded.ID, accepted, enums.ShipmentStatusPickedUp, map[string]any{
		"current_location": "gate B",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// A repeated scan finds the row outside the accepted set.
	rows, err = repo.UpdateStatus(ctx, seeded.ID, accepted, enums.ShipmentStatusPickedUp, nil)
	require.NoError(t, err)
	assert.Zero(t, rows)

	found, err := repo.Find(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusPickedUp, found.Status)
	require.NotNil(t, found.CurrentLocation)
	assert.Equal(t, "gate B", *found.CurrentLocation)
}

func TestRepositoryUpdateOrderStatusGuard(t *testing.T) {
	db := setupShipmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := &models.Order{
		ID:              uuid.New(),
		RetailerID:      uuid.New(),
		FarmID:          uuid.New(),
		ProductID:       uuid.New(),
		Quantity:        10,
		UnitPriceVND:    50_000,
		TotalPriceVND:   500_000,
		Status:          enums.OrderStatusConfirmed,
		DeliveryAddress: "12 Hang Bai, Hanoi",
	}
	require.NoError(t, db.Create(order).Error)

	rows, err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusConfirmed, enums.OrderStatusShipping)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusConfirmed, enums.OrderStatusShipping)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestRepositoryDuplicateOrderRejected(t *testing.T) {
	db := setupShipmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedShipment(t, db, enums.ShipmentStatusCreated)

	_, err := repo.Create(ctx, &models.Shipment{
		ID:              uuid.New(),
		OrderID:         seeded.OrderID,
		Status:          enums.ShipmentStatusCreated,
		PickupAddress:   "elsewhere",
		DeliveryAddress: "elsewhere",
	})
	assert.Error(t, err)
}
