package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/pkg/db/models"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

// CreateOrderInput captures the data a retailer submits when placing an order.
type CreateOrderInput struct {
	ProductID       uuid.UUID
	Quantity        int
	DeliveryAddress string
	ContractTerms   *string
	Note            *string
	ActorUserID     uuid.UUID
	ActorRole       enums.UserRole
}

// CancelOrderInput identifies the order a retailer wants to withdraw.
type CancelOrderInput struct {
	OrderID     uuid.UUID
	Reason      string
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// UpdateStatusInput carries a requested lifecycle transition.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Target      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// ConfirmDeliveryInput carries the retailer's receipt confirmation.
type ConfirmDeliveryInput struct {
	OrderID          uuid.UUID
	DeliveryImageURL string
	ActorUserID      uuid.UUID
	ActorRole        enums.UserRole
}

// GetOrderInput identifies an order read scoped to the requesting user.
type GetOrderInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// ListOrdersInput configures the paginated order lists.
type ListOrdersInput struct {
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
	FarmID      uuid.UUID
	Limit       int
	Cursor      string
	Status      *enums.OrderStatus
	DateFrom    *time.Time
	DateTo      *time.Time
}

// OrderFilters describe the filters supported by the order lists.
type OrderFilters struct {
	Status   *enums.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
