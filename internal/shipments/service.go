package shipments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haiminhngo/farmlink-backend/internal/audit"
	"github.com/haiminhngo/farmlink-backend/internal/notifications"
	dbpkg "github.com/haiminhngo/farmlink-backend/pkg/db"
	"github.com/haiminhngo/farmlink-backend/pkg/db/models"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
	pkgerrors "github.com/haiminhngo/farmlink-backend/pkg/errors"
	"github.com/haiminhngo/farmlink-backend/pkg/logger"
	"github.com/haiminhngo/farmlink-backend/pkg/outbox"
	"github.com/haiminhngo/farmlink-backend/pkg/outbox/payloads"
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

type auditWriter interface {
	Write(ctx context.Context, params audit.WriteParams) (*uuid.UUID, bool)
}

// Service drives the shipment state machine and keeps the owning order
// causally consistent with it.
type Service interface {
	Create(ctx context.Context, input CreateShipmentInput) (*models.Shipment, error)
	AssignDriver(ctx context.Context, input AssignDriverInput) (*models.Shipment, error)
	ConfirmPickup(ctx context.Context, input ConfirmPickupInput) (*models.Shipment, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Shipment, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Shipment, error)
	UpdateLocation(ctx context.Context, input UpdateLocationInput) (*models.Shipment, error)
	Get(ctx context.Context, input GetShipmentInput) (*models.Shipment, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	notify notifier
	audit  auditWriter
	logg   *logger.Logger
}

// NewService wires the shipment flow. The audit writer is optional.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, notify notifier, auditW auditWriter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		notify: notify,
		audit:  auditW,
		logg:   logg,
	}, nil
}

// notifyBestEffort queues an in-app alert inside the caller's transaction.
// Alerts are advisory, a failed insert is logged and never fails the
// shipment operation.
func (s *service) notifyBestEffort(ctx context.Context, tx *gorm.DB, params notifications.NotifyParams) {
	if err := s.notify.Notify(ctx, tx, params); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "shipment notification not delivered")
	}
}

func (s *service) Create(ctx context.Context, input CreateShipmentInput) (*models.Shipment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var created *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		farm, err := repo.FindFarm(ctx, order.FarmID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farm")
		}

		isFarmOwner := farm.OwnerID == input.ActorUserID
		if !isFarmOwner && !input.ActorRole.OneOf(enums.UserRoleShippingManager, enums.UserRoleAdmin) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the farm owner or a shipping manager can open a shipment")
		}
		if order.Status != enums.OrderStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipments are only created for confirmed orders")
		}

		if _, err := repo.FindByOrder(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has a shipment")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing shipment")
		}

		status := enums.ShipmentStatusCreated
		if input.DriverID != nil && *input.DriverID != uuid.Nil {
			status = enums.ShipmentStatusAssigned
		}
		pickup := farm.Address
		if input.PickupAddress != nil && *input.PickupAddress != "" {
			pickup = *input.PickupAddress
		}
		delivery := order.DeliveryAddress
		if input.DeliveryAddress != nil && *input.DeliveryAddress != "" {
			delivery = *input.DeliveryAddress
		}

		shipment := models.Shipment{
			OrderID:         order.ID,
			DriverID:        input.DriverID,
			Status:          status,
			VehicleInfo:     input.VehicleInfo,
			PickupAddress:   pickup,
			DeliveryAddress: delivery,
		}
		if _, err := repo.Create(ctx, &shipment); err != nil {
			// The unique index closes the precheck race.
			if dbpkg.IsUniqueViolation(err, "ux_shipments_order_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already has a shipment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}

		rows, err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusConfirmed, enums.OrderStatusShipping)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order to shipping")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order state changed, retry")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventShipmentCreated,
			AggregateType: enums.OutboxAggregateShipment,
			AggregateID:   shipment.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)},
			Data: payloads.ShipmentCreatedEvent{
				ShipmentID: shipment.ID,
				OrderID:    order.ID,
				DriverID:   input.DriverID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		s.notifyBestEffort(ctx, tx, notifications.NotifyParams{
			UserID:  order.RetailerID,
			Type:    enums.NotificationTypeShipmentAlert,
			Title:   "Order is shipping",
			Message: "A shipment was created for your order",
		})

		created = &shipment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) AssignDriver(ctx context.Context, input AssignDriverInput) (*models.Shipment, error) {
	if input.ShipmentID == uuid.Nil || input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id and driver id required")
	}
	if !input.ActorRole.OneOf(enums.UserRoleShippingManager, enums.UserRoleAdmin, enums.UserRoleFarmOwner) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only managers can assign drivers")
	}

	var updated *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shipment, err := s.loadShipment(ctx, repo, input.ShipmentID)
		if err != nil {
			return err
		}
		if shipment.Status != enums.ShipmentStatusCreated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "driver can only be assigned before pickup")
		}

		// No order mutation here, shipping was already signaled at creation.
		rows, err := repo.UpdateStatus(ctx, shipment.ID,
			[]enums.ShipmentStatus{enums.ShipmentStatusCreated},
			enums.ShipmentStatusAssigned,
			map[string]any{"driver_id": input.DriverID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign driver")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment state changed, retry")
		}

		shipment.Status = enums.ShipmentStatusAssigned
		shipment.DriverID = &input.DriverID
		updated = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ConfirmPickup(ctx context.Context, input ConfirmPickupInput) (*models.Shipment, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shipment, err := s.loadShipment(ctx, repo, input.ShipmentID)
		if err != nil {
			return err
		}
		if err := s.requireAssignedDriver(shipment, input.ActorUserID, input.ActorRole); err != nil {
			return err
		}
		if shipment.Status != enums.ShipmentStatusCreated && shipment.Status != enums.ShipmentStatusAssigned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment was already picked up")
		}
		if err := ValidateQR(input.QRCode, shipment.OrderID, shipment.ID); err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]any{"picked_up_at": now}
		if input.Location != nil {
			updates["current_location"] = *input.Location
		}
		rows, err := repo.UpdateStatus(ctx, shipment.ID,
			[]enums.ShipmentStatus{enums.ShipmentStatusCreated, enums.ShipmentStatusAssigned},
			enums.ShipmentStatusPickedUp,
			updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm pickup")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment state changed, retry")
		}

		// Defensive re-sync in case order creation raced shipping signal.
		if _, err := repo.UpdateOrderStatus(ctx, shipment.OrderID, enums.OrderStatusConfirmed, enums.OrderStatusShipping); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-sync order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventShipmentPickedUp,
			AggregateType: enums.OutboxAggregateShipment,
			AggregateID:   shipment.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)},
			Data: payloads.ShipmentPickedUpEvent{
				ShipmentID: shipment.ID,
				OrderID:    shipment.OrderID,
				DriverID:   input.ActorUserID,
				PickedUpAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		shipment.Status = enums.ShipmentStatusPickedUp
		shipment.PickedUpAt = &now
		shipment.CurrentLocation = input.Location
		updated = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeReceipt(ctx, "shipment.picked_up", updated, input.ActorUserID, input.ActorRole)
	return updated, nil
}

func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Shipment, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shipment, err := s.loadShipment(ctx, repo, input.ShipmentID)
		if err != nil {
			return err
		}
		if err := s.requireAssignedDriver(shipment, input.ActorUserID, input.ActorRole); err != nil {
			return err
		}
		if shipment.Status != enums.ShipmentStatusPickedUp && shipment.Status != enums.ShipmentStatusDelivering {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment is not in transit")
		}
		if err := ValidateQR(input.QRCode, shipment.OrderID, shipment.ID); err != nil {
			return err
		}

		order, err := repo.FindOrder(ctx, shipment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		farm, err := repo.FindFarm(ctx, order.FarmID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farm")
		}

		now := time.Now().UTC()
		updates := map[string]any{"delivered_at": now}
		// QR verification is the proof of delivery, the photo is extra.
		if input.DeliveryImageURL != "" {
			updates["delivery_image_url"] = input.DeliveryImageURL
		}
		if input.Location != nil {
			updates["current_location"] = *input.Location
		}
		rows, err := repo.UpdateStatus(ctx, shipment.ID,
			[]enums.ShipmentStatus{enums.ShipmentStatusPickedUp, enums.ShipmentStatusDelivering},
			enums.ShipmentStatusDelivered,
			updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm delivery")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment state changed, retry")
		}

		if err := s.completeOrder(ctx, repo, order, input.DeliveryImageURL); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventShipmentDelivered,
			AggregateType: enums.OutboxAggregateShipment,
			AggregateID:   shipment.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)},
			Data: payloads.ShipmentDeliveredEvent{
				ShipmentID:       shipment.ID,
				OrderID:          shipment.OrderID,
				DriverID:         input.ActorUserID,
				DeliveredAt:      now,
				DeliveryImageURL: input.DeliveryImageURL,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		for _, recipient := range []uuid.UUID{order.RetailerID, farm.OwnerID} {
			s.notifyBestEffort(ctx, tx, notifications.NotifyParams{
				UserID:  recipient,
				Type:    enums.NotificationTypeShipmentAlert,
				Title:   "Order delivered",
				Message: "The shipment was delivered and confirmed by QR scan",
			})
		}

		shipment.Status = enums.ShipmentStatusDelivered
		shipment.DeliveredAt = &now
		if input.DeliveryImageURL != "" {
			shipment.DeliveryImageURL = &input.DeliveryImageURL
		}
		updated = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeReceipt(ctx, "shipment.delivered", updated, input.ActorUserID, input.ActorRole)
	return updated, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Shipment, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipment status")
	}

	var updated *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shipment, err := s.loadShipment(ctx, repo, input.ShipmentID)
		if err != nil {
			return err
		}

		isManager := input.ActorRole.OneOf(enums.UserRoleShippingManager, enums.UserRoleAdmin)
		isAssignedDriver := shipment.DriverID != nil && *shipment.DriverID == input.ActorUserID
		if !isManager && !isAssignedDriver {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only a manager or the assigned driver can update the shipment")
		}
		if !shipment.Status.CanTransition(input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move shipment from %s to %s", shipment.Status, input.Target))
		}

		now := time.Now().UTC()
		updates := map[string]any{}
		if input.Location != nil {
			updates["current_location"] = *input.Location
		}
		// Stamp milestone times the manual path would otherwise skip.
		if input.Target == enums.ShipmentStatusPickedUp && shipment.PickedUpAt == nil {
			updates["picked_up_at"] = now
		}
		if input.Target == enums.ShipmentStatusDelivered && shipment.DeliveredAt == nil {
			updates["delivered_at"] = now
		}
		if input.Target == enums.ShipmentStatusFailed && input.FailureReason != nil {
			updates["failure_reason"] = *input.FailureReason
		}

		rows, err := repo.UpdateStatus(ctx, shipment.ID,
			[]enums.ShipmentStatus{shipment.Status},
			input.Target,
			updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment state changed, retry")
		}

		// Keep the order's view of the shipment in step.
		switch input.Target {
		case enums.ShipmentStatusDelivering:
			if _, err := repo.UpdateOrderStatus(ctx, shipment.OrderID, enums.OrderStatusConfirmed, enums.OrderStatusShipping); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-sync order status")
			}
		case enums.ShipmentStatusDelivered:
			order, err := repo.FindOrder(ctx, shipment.OrderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}
			if err := s.completeOrder(ctx, repo, order, ""); err != nil {
				return err
			}
		}

		shipment.Status = input.Target
		updated = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeReceipt(ctx, "shipment.status_override", updated, input.ActorUserID, input.ActorRole)
	return updated, nil
}

func (s *service) UpdateLocation(ctx context.Context, input UpdateLocationInput) (*models.Shipment, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if input.Location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}

	shipment, err := s.loadShipment(ctx, s.repo, input.ShipmentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssignedDriver(shipment, input.ActorUserID, input.ActorRole); err != nil {
		return nil, err
	}
	if shipment.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "shipment is closed")
	}

	if err := s.repo.Update(ctx, shipment.ID, map[string]any{"current_location": input.Location}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update location")
	}
	shipment.CurrentLocation = &input.Location
	return shipment, nil
}

func (s *service) Get(ctx context.Context, input GetShipmentInput) (*models.Shipment, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	shipment, err := s.loadShipment(ctx, s.repo, input.ShipmentID)
	if err != nil {
		return nil, err
	}
	if input.ActorRole.OneOf(enums.UserRoleShippingManager, enums.UserRoleAdmin) {
		return shipment, nil
	}
	if shipment.DriverID != nil && *shipment.DriverID == input.ActorUserID {
		return shipment, nil
	}

	order, err := s.repo.FindOrder(ctx, shipment.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.RetailerID == input.ActorUserID {
		return shipment, nil
	}
	farm, err := s.repo.FindFarm(ctx, order.FarmID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farm")
	}
	if farm.OwnerID == input.ActorUserID {
		return shipment, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this shipment")
}

func (s *service) loadShipment(ctx context.Context, repo Repository, shipmentID uuid.UUID) (*models.Shipment, error) {
	shipment, err := repo.Find(ctx, shipmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return shipment, nil
}

func (s *service) requireAssignedDriver(shipment *models.Shipment, actorID uuid.UUID, role enums.UserRole) error {
	if role == enums.UserRoleAdmin {
		return nil
	}
	if shipment.DriverID == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shipment has no assigned driver")
	}
	if *shipment.DriverID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shipment is assigned to a different driver")
	}
	return nil
}

// completeOrder moves the order to its terminal happy state when the
// shipment lands, storing the proof image when one was captured.
func (s *service) completeOrder(ctx context.Context, repo Repository, order *models.Order, imageURL string) error {
	for _, from := range []enums.OrderStatus{enums.OrderStatusShipping, enums.OrderStatusDelivered} {
		to := enums.OrderStatusDelivered
		if from == enums.OrderStatusDelivered {
			to = enums.OrderStatusCompleted
		}
		if _, err := repo.UpdateOrderStatus(ctx, order.ID, from, to); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order")
		}
	}
	if imageURL != "" {
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"delivery_image_url": imageURL}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store delivery image")
		}
	}
	return nil
}

func (s *service) writeReceipt(ctx context.Context, action string, shipment *models.Shipment, actorID uuid.UUID, role enums.UserRole) {
	if s.audit == nil || shipment == nil {
		return
	}
	if _, ok := s.audit.Write(ctx, audit.WriteParams{
		Action:     action,
		EntityType: "shipment",
		EntityID:   shipment.ID,
		ActorID:    actorID,
		ActorRole:  string(role),
		Detail:     fmt.Sprintf("order=%s status=%s", shipment.OrderID, shipment.Status),
	}); !ok {
		s.logg.Warn(ctx, "audit record not written for "+action)
	}
}
