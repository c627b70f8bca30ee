package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haiminhngo/farmlink-backend/pkg/db/models"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
	"github.com/haiminhngo/farmlink-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and the entities an
// order references.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error)
	ListByRetailer(ctx context.Context, retailerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
