package payments

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

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT,
  subscription_id TEXT,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_vnd INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'VND',
  status TEXT NOT NULL,
  gateway_txn_ref TEXT NOT NULL UNIQUE,
  gateway_tran_no TEXT,
  gateway_resp_code TEXT,
  gateway_bank_code TEXT,
  payment_url TEXT,
  confirmed_at DATETIME,
  audit_receipt_id TEXT,
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
	require.NoError(t, db.Exec(payments).Error)
	require.NoError(t, db.Exec(orders).Error)
	return db
}

func seedPayment(t *testing.T, db *gorm.DB, txnRef string, status enums.PaymentStatus) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Type:          enums.PaymentTypeOrderDeposit,
		AmountVND:     300_000,
		Currency:      enums.CurrencyVND,
		Status:        status,
		GatewayTxnRef: txnRef,
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}

func TestRepositoryFindByTxnRef(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	seeded := seedPayment(t, db, "FLTESTA", enums.PaymentStatusPending)

	found, err := repo.FindByTxnRef(context.Background(), "FLTESTA")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindByTxnRef(context.Background(), "FLNOPE")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryClaimOutcome(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	seedPayment(t, db, "FLTESTB", enums.PaymentStatusPending)

	rows, err := repo.ClaimOutcome(context.Background(), "FLTESTB", enums.PaymentStatusSuccess, map[string]any{
		"gateway_resp_code": "00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// A second claim loses: the row is no longer pending.
	rows, err = repo.ClaimOutcome(context.Background(), "FLTESTB", enums.PaymentStatusSuccess, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	found, err := repo.FindByTxnRef(context.Background(), "FLTESTB")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccess, found.Status)
	require.NotNil(t, found.GatewayRespCode)
	assert.Equal(t, "00", *found.GatewayRespCode)
}

func TestRepositoryClaimOutcomeUnknownRef(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	rows, err := repo.ClaimOutcome(context.Background(), "FLMISSING", enums.PaymentStatusFailed, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestRepositoryUpdateOrderStatusGuard(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	order := &models.Order{
		ID:              uuid.New(),
		RetailerID:      uuid.New(),
		FarmID:          uuid.New(),
		ProductID:       uuid.New(),
		Quantity:        1,
		UnitPriceVND:    1_000_000,
		TotalPriceVND:   1_000_000,
		Status:          enums.OrderStatusPending,
		DeliveryAddress: "90 Nguyen Hue, HCMC",
	}
	require.NoError(t, db.Create(order).Error)

	rows, err := repo.UpdateOrderStatus(context.Background(), order.ID, enums.OrderStatusPending, enums.OrderStatusDeposited)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.UpdateOrderStatus(context.Background(), order.ID, enums.OrderStatusPending, enums.OrderStatusDeposited)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}
