package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haiminhngo/farmlink-backend/pkg/db/models"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

// Repository defines persistence for payments plus the order reads and
// guarded order transitions reconciliation needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByTxnRef(ctx context.Context, txnRef string) (*models.Payment, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error)
	ClaimOutcome(ctx context.Context, txnRef string, to enums.PaymentStatus, updates map[string]any) (int64, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
	Update(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
}
