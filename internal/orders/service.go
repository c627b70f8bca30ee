package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haiminhngo/farmlink-backend/internal/inventory"
	"github.com/haiminhngo/farmlink-backend/internal/notifications"
	"github.com/haiminhngo/farmlink-backend/pkg/config"
	"github.com/haiminhngo/farmlink-backend/pkg/db/models"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
	pkgerrors "github.com/haiminhngo/farmlink-backend/pkg/errors"
	"github.com/haiminhngo/farmlink-backend/pkg/logger"
	"github.com/haiminhngo/farmlink-backend/pkg/outbox"
	"github.com/haiminhngo/farmlink-backend/pkg/outbox/payloads"
	"github.com/haiminhngo/farmlink-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, params notifications.NotifyParams) error
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelOrderInput) error
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error)
	Get(ctx context.Context, input GetOrderInput) (*models.Order, error)
	List(ctx context.Context, input ListOrdersInput) (*OrderList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	stock    inventory.Guard
	notify   notifier
	payments config.PaymentsConfig
	logg     *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, stock inventory.Guard, notify notifier, payments config.PaymentsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock guard required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if payments.DepositPercent <= 0 || payments.DepositPercent > 100 {
		return nil, fmt.Errorf("deposit percent must be in (0, 100]")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		stock:    stock,
		notify:   notify,
		payments: payments,
		logg:     logg,
	}, nil
}

// notifyBestEffort queues an in-app alert inside the caller's transaction.
// Alerts are advisory, a failed insert is logged and never fails the
// operation that triggered it.
func (s *service) notifyBestEffort(ctx context.Context, tx *gorm.DB, params notifications.NotifyParams) {
	if err := s.notify.Notify(ctx, tx, params); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order notification not delivered")
	}
}

// DepositAmount computes the up-front deposit for a total, rounded to whole VND.
func DepositAmount(totalVND int64, percent int) int64 {
	return decimal.NewFromInt(totalVND).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.OneOf(enums.UserRoleRetailer, enums.UserRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only retailers can place orders")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.DeliveryAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := repo.FindProduct(ctx, input.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.Status != enums.ProductStatusAvailable {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is no longer available")
		}

		farm, err := repo.FindFarm(ctx, product.FarmID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "farm not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farm")
		}
		if !farm.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "farm is not accepting orders")
		}

		if err := s.stock.Reserve(ctx, tx, product.ID, input.Quantity); err != nil {
			return err
		}

		// Snapshot the unit price so later edits do not move the total.
		total := product.PriceVND * int64(input.Quantity)
		deposit := DepositAmount(total, s.payments.DepositPercent)

		order := models.Order{
			RetailerID:       input.ActorUserID,
			FarmID:           farm.ID,
			ProductID:        product.ID,
			Quantity:         input.Quantity,
			UnitPriceVND:     product.PriceVND,
			TotalPriceVND:    total,
			DepositAmountVND: deposit,
			Status:           enums.OrderStatusPending,
			DeliveryAddress:  input.DeliveryAddress,
			ContractTerms:    input.ContractTerms,
			Note:             input.Note,
		}
		if _, err := repo.Create(ctx, &order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCreated,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.OrderCreatedEvent{
				OrderID:          order.ID,
				RetailerID:       order.RetailerID,
				FarmID:           order.FarmID,
				ProductID:        order.ProductID,
				Quantity:         order.Quantity,
				TotalPriceVND:    order.TotalPriceVND,
				DepositAmountVND: order.DepositAmountVND,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		s.notifyBestEffort(ctx, tx, notifications.NotifyParams{
			UserID:  farm.OwnerID,
			Type:    enums.NotificationTypeOrderAlert,
			Title:   "New order received",
			Message: fmt.Sprintf("%s x%d ordered, awaiting deposit", product.Name, input.Quantity),
		})

		created = &order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Cancel(ctx context.Context, input CancelOrderInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.RetailerID != input.ActorUserID && input.ActorRole != enums.UserRoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled by the retailer")
		}

		rows, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order state changed, retry")
		}

		if err := s.stock.Release(ctx, tx, order.ProductID, order.Quantity); err != nil {
			return err
		}

		farm, err := repo.FindFarm(ctx, order.FarmID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farm")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCancelled,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				RetailerID:  order.RetailerID,
				FarmID:      order.FarmID,
				CancelledAt: time.Now().UTC(),
				Reason:      input.Reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		s.notifyBestEffort(ctx, tx, notifications.NotifyParams{
			UserID:  farm.OwnerID,
			Type:    enums.NotificationTypeOrderAlert,
			Title:   "Order cancelled",
			Message: "The retailer withdrew the order before paying the deposit",
		})
		return nil
	})
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransition(input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, input.Target))
		}

		farm, err := repo.FindFarm(ctx, order.FarmID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farm")
		}

		if err := s.authorizeTransition(input, order, farm); err != nil {
			return err
		}

		from := order.Status
		rows, err := repo.UpdateStatus(ctx, order.ID, from, input.Target)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order state changed, retry")
		}

		if input.Target == enums.OrderStatusCancelled {
			if err := s.stock.Release(ctx, tx, order.ProductID, order.Quantity); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderStatusChanged,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				FromStatus: from,
				ToStatus:   input.Target,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		// Tell the counterparty: farm owners hear about retailer actions and
		// vice versa.
		recipient := order.RetailerID
		if input.ActorUserID == order.RetailerID {
			recipient = farm.OwnerID
		}
		s.notifyBestEffort(ctx, tx, notifications.NotifyParams{
			UserID:  recipient,
			Type:    enums.NotificationTypeOrderAlert,
			Title:   "Order status updated",
			Message: fmt.Sprintf("Order moved from %s to %s", from, input.Target),
		})

		order.Status = input.Target
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// authorizeTransition applies per-role rules on top of the transition table.
// Payment and shipment flows move orders through deposited/shipping/delivered
// themselves, so those targets are rejected here for everyone but admins.
func (s *service) authorizeTransition(input UpdateStatusInput, order *models.Order, farm *models.Farm) error {
	if input.ActorRole == enums.UserRoleAdmin {
		return nil
	}

	isRetailer := input.ActorUserID == order.RetailerID
	isFarmOwner := input.ActorUserID == farm.OwnerID

	switch input.Target {
	case enums.OrderStatusConfirmed:
		if !isFarmOwner {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the farm owner can confirm an order")
		}
		return nil
	case enums.OrderStatusCompleted:
		if !isRetailer {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the retailer can complete an order")
		}
		return nil
	case enums.OrderStatusCancelled:
		if isRetailer {
			if order.Status != enums.OrderStatusPending {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "retailers can only cancel pending orders")
			}
			return nil
		}
		if isFarmOwner {
			switch order.Status {
			case enums.OrderStatusPending, enums.OrderStatusDeposited, enums.OrderStatusConfirmed:
				return nil
			default:
				return pkgerrors.New(pkgerrors.CodeStateConflict, "farm owners cannot cancel once shipping starts")
			}
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order")
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "status is managed by payment and shipment flows")
	}
}

// ConfirmDelivery is the retailer acknowledging receipt with photo proof.
// The shipment flow normally moves the order to delivered first, this path
// covers orders shipped without the driver app.
func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.DeliveryImageURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery image required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.RetailerID != input.ActorUserID && input.ActorRole != enums.UserRoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if order.Status != enums.OrderStatusShipping {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in transit")
		}

		rows, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusShipping, enums.OrderStatusDelivered)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order state changed, retry")
		}
		if err := repo.Update(ctx, order.ID, map[string]any{
			"delivery_image_url": input.DeliveryImageURL,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store delivery image")
		}

		farm, err := repo.FindFarm(ctx, order.FarmID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farm")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderStatusChanged,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				FromStatus: enums.OrderStatusShipping,
				ToStatus:   enums.OrderStatusDelivered,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		s.notifyBestEffort(ctx, tx, notifications.NotifyParams{
			UserID:  farm.OwnerID,
			Type:    enums.NotificationTypeOrderAlert,
			Title:   "Delivery confirmed",
			Message: "The retailer confirmed receipt of the order",
		})

		order.Status = enums.OrderStatusDelivered
		order.DeliveryImageURL = &input.DeliveryImageURL
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, input GetOrderInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.Find(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if input.ActorRole.OneOf(enums.UserRoleAdmin, enums.UserRoleShippingManager) {
		return order, nil
	}
	if order.RetailerID == input.ActorUserID {
		return order, nil
	}
	farm, err := s.repo.FindFarm(ctx, order.FarmID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farm")
	}
	if farm.OwnerID == input.ActorUserID || input.ActorRole == enums.UserRoleDriver {
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order")
}

func (s *service) List(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	params := pagination.Params{Limit: input.Limit, Cursor: input.Cursor}
	filters := OrderFilters{Status: input.Status, DateFrom: input.DateFrom, DateTo: input.DateTo}

	switch {
	case input.ActorRole == enums.UserRoleRetailer:
		return s.repo.ListByRetailer(ctx, input.ActorUserID, params, filters)
	case input.ActorRole == enums.UserRoleFarmOwner, input.ActorRole == enums.UserRoleAdmin:
		if input.FarmID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "farm id required")
		}
		if input.ActorRole == enums.UserRoleFarmOwner {
			farm, err := s.repo.FindFarm(ctx, input.FarmID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return nil, pkgerrors.New(pkgerrors.CodeNotFound, "farm not found")
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farm")
			}
			if farm.OwnerID != input.ActorUserID {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "farm does not belong to user")
			}
		}
		return s.repo.ListByFarm(ctx, input.FarmID, params, filters)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list orders")
	}
}

func buildActor(userID uuid.UUID, role enums.UserRole) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: userID,
		Role:   string(role),
	}
}
