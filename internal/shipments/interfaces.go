package shipments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haiminhngo/farmlink-backend/pkg/db/models"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

// Repository defines persistence for shipments plus the order reads and
// guarded order transitions the dual state machine needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shipment *models.Shipment) (*models.Shipment, error)
	Find(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error)
	UpdateStatus(ctx context.Context, shipmentID uuid.UUID, from []enums.ShipmentStatus, to enums.ShipmentStatus, updates map[string]any) (int64, error)
	Update(ctx context.Context, shipmentID uuid.UUID, updates map[string]any) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
