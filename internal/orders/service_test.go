package orders

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haiminhngo/farmlink-backend/internal/notifications"
	"github.com/haiminhngo/farmlink-backend/pkg/config"
	"github.com/haiminhngo/farmlink-backend/pkg/db/models"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
	pkgerrors "github.com/haiminhngo/farmlink-backend/pkg/errors"
	"github.com/haiminhngo/farmlink-backend/pkg/logger"
	"github.com/haiminhngo/farmlink-backend/pkg/outbox"
	"github.com/haiminhngo/farmlink-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	order        *models.Order
	product      *models.Product
	farm         *models.Farm
	createdOrder *models.Order
	updatedFrom  enums.OrderStatus
	updatedTo    enums.OrderStatus
	updateRows   int64
	updateStatus func(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
	listByFarm   func(ctx context.Context, farmID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	listByRetail func(ctx context.Context, retailerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	orderUpdates map[string]any
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.createdOrder = order
	return order, nil
}

func (s *stubOrdersRepo) Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if s.product == nil || s.product.ID != productID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.product, nil
}

func (s *stubOrdersRepo) FindFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error) {
	if s.farm == nil || s.farm.ID != farmID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.farm, nil
}

func (s *stubOrdersRepo) ListByRetailer(ctx context.Context, retailerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if s.listByRetail != nil {
		return s.listByRetail(ctx, retailerID, params, filters)
	}
	return &OrderList{}, nil
}

func (s *stubOrdersRepo) ListByFarm(ctx context.Context, farmID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if s.listByFarm != nil {
		return s.listByFarm(ctx, farmID, params, filters)
	}
	return &OrderList{}, nil
}

func (s *stubOrdersRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	if s.updateStatus != nil {
		return s.updateStatus(ctx, orderID, from, to)
	}
	s.updatedFrom = from
	s.updatedTo = to
	if s.updateRows == 0 {
		s.updateRows = 1
	}
	return s.updateRows, nil
}

func (s *stubOrdersRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.orderUpdates = updates
	return nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stockCall struct {
	productID uuid.UUID
	qty       int
}

type stubStockGuard struct {
	reserved   []stockCall
	released   []stockCall
	reserveErr error
	releaseErr error
}

func (s *stubStockGuard) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserved = append(s.reserved, stockCall{productID: productID, qty: qty})
	return nil
}

func (s *stubStockGuard) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.released = append(s.released, stockCall{productID: productID, qty: qty})
	return nil
}

type stubNotifier struct {
	sent []notifications.NotifyParams
	err  error
}

func (s *stubNotifier) Notify(ctx context.Context, tx *gorm.DB, params notifications.NotifyParams) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func paymentsCfg() config.PaymentsConfig {
	return config.PaymentsConfig{DepositPercent: 30}
}

func newTestService(t *testing.T, repo Repository, pub *stubOutboxPublisher, stock *stubStockGuard, notify *stubNotifier) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	svc, err := NewService(repo, stubTxRunner{}, pub, stock, notify, paymentsCfg(), logg)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestDepositAmount(t *testing.T) {
	cases := []struct {
		total   int64
		percent int
		want    int64
	}{
		{total: 3_000_000, percent: 30, want: 900_000},
		{total: 1_000, percent: 30, want: 300},
		{total: 999, percent: 30, want: 300},
		{total: 1, percent: 30, want: 0},
		{total: 500_000, percent: 50, want: 250_000},
	}
	for _, tc := range cases {
		if got := DepositAmount(tc.total, tc.percent); got != tc.want {
			t.Fatalf("DepositAmount(%d, %d) = %d, want %d", tc.total, tc.percent, got, tc.want)
		}
	}
}

func TestCreateOrder(t *testing.T) {
	retailerID := uuid.New()
	ownerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: ownerID, IsActive: true}
	product := &models.Product{
		ID:       uuid.New(),
		FarmID:   farm.ID,
		Name:     "Da Lat strawberries",
		PriceVND: 150_000,
		StockQty: 40,
		Status:   enums.ProductStatusAvailable,
	}
	repo := &stubOrdersRepo{product: product, farm: farm}
	pub := &stubOutboxPublisher{}
	stock := &stubStockGuard{}
	notify := &stubNotifier{}
	svc := newTestService(t, repo, pub, stock, notify)

	terms := "50% deposit, balance on delivery, returns within 24h"
	order, err := svc.Create(context.Background(), CreateOrderInput{
		ProductID:       product.ID,
		Quantity:        20,
		DeliveryAddress: "12 Hang Bai, Hanoi",
		ContractTerms:   &terms,
		ActorUserID:     retailerID,
		ActorRole:       enums.UserRoleRetailer,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.UnitPriceVND != 150_000 {
		t.Fatalf("unit price not snapshotted: %d", order.UnitPriceVND)
	}
	if order.TotalPriceVND != 3_000_000 {
		t.Fatalf("unexpected total %d", order.TotalPriceVND)
	}
	if order.DepositAmountVND != 900_000 {
		t.Fatalf("unexpected deposit %d", order.DepositAmountVND)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if len(stock.reserved) != 1 || stock.reserved[0].qty != 20 {
		t.Fatalf("expected one reserve call for 20 units, got %+v", stock.reserved)
	}
	if len(pub.events) != 1 || pub.events[0].EventType != enums.OutboxEventOrderCreated {
		t.Fatalf("expected order.created event, got %+v", pub.events)
	}
	if len(notify.sent) != 1 || notify.sent[0].UserID != ownerID {
		t.Fatalf("expected farm owner notification, got %+v", notify.sent)
	}
	if order.ContractTerms == nil || *order.ContractTerms != terms {
		t.Fatalf("contract terms not stored: %+v", order.ContractTerms)
	}
}

func TestCreateOrderSurvivesNotifierOutage(t *testing.T) {
	farm := &models.Farm{ID: uuid.New(), OwnerID: uuid.New(), IsActive: true}
	product := &models.Product{
		ID:       uuid.New(),
		FarmID:   farm.ID,
		Name:     "Da Lat strawberries",
		PriceVND: 150_000,
		StockQty: 40,
		Status:   enums.ProductStatusAvailable,
	}
	repo := &stubOrdersRepo{product: product, farm: farm}
	pub := &stubOutboxPublisher{}
	notify := &stubNotifier{err: errors.New("notification channel down")}
	svc := newTestService(t, repo, pub, &stubStockGuard{}, notify)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		ProductID:       product.ID,
		Quantity:        5,
		DeliveryAddress: "12 Hang Bai, Hanoi",
		ActorUserID:     uuid.New(),
		ActorRole:       enums.UserRoleRetailer,
	})
	if err != nil {
		t.Fatalf("order must survive a notifier outage, got %v", err)
	}
	if order == nil || repo.createdOrder == nil {
		t.Fatal("order was not created")
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected order.created event, got %+v", pub.events)
	}
}

func TestCancelSurvivesNotifierOutage(t *testing.T) {
	retailerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: uuid.New()}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: retailerID,
		FarmID:     farm.ID,
		ProductID:  uuid.New(),
		Quantity:   3,
		Status:     enums.OrderStatusPending,
	}
	repo := &stubOrdersRepo{order: order, farm: farm}
	notify := &stubNotifier{err: errors.New("notification channel down")}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, notify)

	err := svc.Cancel(context.Background(), CancelOrderInput{
		OrderID:     order.ID,
		Reason:      "changed plans",
		ActorUserID: retailerID,
		ActorRole:   enums.UserRoleRetailer,
	})
	if err != nil {
		t.Fatalf("cancel must survive a notifier outage, got %v", err)
	}
	if repo.updatedTo != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", repo.updatedTo)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	farm := &models.Farm{ID: uuid.New(), OwnerID: uuid.New(), IsActive: true}
	product := &models.Product{
		ID:       uuid.New(),
		FarmID:   farm.ID,
		PriceVND: 50_000,
		StockQty: 3,
		Status:   enums.ProductStatusAvailable,
	}
	repo := &stubOrdersRepo{product: product, farm: farm}
	pub := &stubOutboxPublisher{}
	stock := &stubStockGuard{reserveErr: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")}
	notify := &stubNotifier{}
	svc := newTestService(t, repo, pub, stock, notify)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		ProductID:       product.ID,
		Quantity:        10,
		DeliveryAddress: "12 Hang Bai, Hanoi",
		ActorUserID:     uuid.New(),
		ActorRole:       enums.UserRoleRetailer,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	if repo.createdOrder != nil {
		t.Fatal("order must not be created when stock reservation fails")
	}
	if len(pub.events) != 0 {
		t.Fatal("no event should be emitted when stock reservation fails")
	}
}

func TestCreateOrderRejectsNonRetailer(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	_, err := svc.Create(context.Background(), CreateOrderInput{
		ProductID:       uuid.New(),
		Quantity:        1,
		DeliveryAddress: "somewhere",
		ActorUserID:     uuid.New(),
		ActorRole:       enums.UserRoleDriver,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateOrderUnavailableProduct(t *testing.T) {
	farm := &models.Farm{ID: uuid.New(), OwnerID: uuid.New(), IsActive: true}
	product := &models.Product{
		ID:       uuid.New(),
		FarmID:   farm.ID,
		PriceVND: 50_000,
		Status:   enums.ProductStatusDistributed,
	}
	repo := &stubOrdersRepo{product: product, farm: farm}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	_, err := svc.Create(context.Background(), CreateOrderInput{
		ProductID:       product.ID,
		Quantity:        1,
		DeliveryAddress: "somewhere",
		ActorUserID:     uuid.New(),
		ActorRole:       enums.UserRoleRetailer,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancelReleasesStock(t *testing.T) {
	retailerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: uuid.New()}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: retailerID,
		FarmID:     farm.ID,
		ProductID:  uuid.New(),
		Quantity:   7,
		Status:     enums.OrderStatusPending,
	}
	repo := &stubOrdersRepo{order: order, farm: farm}
	pub := &stubOutboxPublisher{}
	stock := &stubStockGuard{}
	notify := &stubNotifier{}
	svc := newTestService(t, repo, pub, stock, notify)

	err := svc.Cancel(context.Background(), CancelOrderInput{
		OrderID:     order.ID,
		Reason:      "changed plans",
		ActorUserID: retailerID,
		ActorRole:   enums.UserRoleRetailer,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.updatedTo != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", repo.updatedTo)
	}
	if len(stock.released) != 1 || stock.released[0].qty != 7 {
		t.Fatalf("expected release of 7 units, got %+v", stock.released)
	}
	if len(pub.events) != 1 || pub.events[0].EventType != enums.OutboxEventOrderCancelled {
		t.Fatalf("expected order.cancelled event, got %+v", pub.events)
	}
	if len(notify.sent) != 1 || notify.sent[0].UserID != farm.OwnerID {
		t.Fatalf("expected farm owner notification, got %+v", notify.sent)
	}
}

func TestCancelRejectsOtherRetailer(t *testing.T) {
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: uuid.New(),
		Status:     enums.OrderStatusPending,
	}
	repo := &stubOrdersRepo{order: order}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	err := svc.Cancel(context.Background(), CancelOrderInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleRetailer,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCancelRejectsNonPending(t *testing.T) {
	retailerID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: retailerID,
		Status:     enums.OrderStatusDeposited,
	}
	repo := &stubOrdersRepo{order: order}
	stock := &stubStockGuard{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, stock, &stubNotifier{})

	err := svc.Cancel(context.Background(), CancelOrderInput{
		OrderID:     order.ID,
		ActorUserID: retailerID,
		ActorRole:   enums.UserRoleRetailer,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(stock.released) != 0 {
		t.Fatal("stock must not be released when cancel is rejected")
	}
}

func TestUpdateStatusFarmOwnerConfirms(t *testing.T) {
	ownerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: ownerID}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: uuid.New(),
		FarmID:     farm.ID,
		Status:     enums.OrderStatusDeposited,
	}
	repo := &stubOrdersRepo{order: order, farm: farm}
	pub := &stubOutboxPublisher{}
	notify := &stubNotifier{}
	svc := newTestService(t, repo, pub, &stubStockGuard{}, notify)

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		Target:      enums.OrderStatusConfirmed,
		ActorUserID: ownerID,
		ActorRole:   enums.UserRoleFarmOwner,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if updated.Status != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if len(pub.events) != 1 || pub.events[0].EventType != enums.OutboxEventOrderStatusChanged {
		t.Fatalf("expected order.status_changed event, got %+v", pub.events)
	}
	if len(notify.sent) != 1 || notify.sent[0].UserID != order.RetailerID {
		t.Fatalf("expected retailer notification, got %+v", notify.sent)
	}
}

func TestUpdateStatusRejectsSkippedStep(t *testing.T) {
	farm := &models.Farm{ID: uuid.New(), OwnerID: uuid.New()}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: uuid.New(),
		FarmID:     farm.ID,
		Status:     enums.OrderStatusPending,
	}
	repo := &stubOrdersRepo{order: order, farm: farm}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		Target:      enums.OrderStatusConfirmed,
		ActorUserID: farm.OwnerID,
		ActorRole:   enums.UserRoleFarmOwner,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateStatusRejectsPaymentManagedTarget(t *testing.T) {
	retailerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: uuid.New()}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: retailerID,
		FarmID:     farm.ID,
		Status:     enums.OrderStatusPending,
	}
	repo := &stubOrdersRepo{order: order, farm: farm}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		Target:      enums.OrderStatusDeposited,
		ActorUserID: retailerID,
		ActorRole:   enums.UserRoleRetailer,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateStatusFarmOwnerCancelReleasesStock(t *testing.T) {
	ownerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: ownerID}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: uuid.New(),
		FarmID:     farm.ID,
		ProductID:  uuid.New(),
		Quantity:   5,
		Status:     enums.OrderStatusDeposited,
	}
	repo := &stubOrdersRepo{order: order, farm: farm}
	stock := &stubStockGuard{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, stock, &stubNotifier{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		Target:      enums.OrderStatusCancelled,
		ActorUserID: ownerID,
		ActorRole:   enums.UserRoleFarmOwner,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(stock.released) != 1 || stock.released[0].qty != 5 {
		t.Fatalf("expected release of 5 units, got %+v", stock.released)
	}
}

func TestUpdateStatusFarmOwnerCannotCancelShipping(t *testing.T) {
	ownerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: ownerID}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: uuid.New(),
		FarmID:     farm.ID,
		Status:     enums.OrderStatusShipping,
	}
	repo := &stubOrdersRepo{order: order, farm: farm}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		Target:      enums.OrderStatusCancelled,
		ActorUserID: ownerID,
		ActorRole:   enums.UserRoleFarmOwner,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateStatusRetailerCompletes(t *testing.T) {
	retailerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: uuid.New()}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: retailerID,
		FarmID:     farm.ID,
		Status:     enums.OrderStatusDelivered,
	}
	repo := &stubOrdersRepo{order: order, farm: farm}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		Target:      enums.OrderStatusCompleted,
		ActorUserID: retailerID,
		ActorRole:   enums.UserRoleRetailer,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if updated.Status != enums.OrderStatusCompleted {
		t.Fatalf("unexpected status %s", updated.Status)
	}
}

func TestUpdateStatusConcurrentChange(t *testing.T) {
	ownerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: ownerID}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: uuid.New(),
		FarmID:     farm.ID,
		Status:     enums.OrderStatusDeposited,
	}
	repo := &stubOrdersRepo{
		order: order,
		farm:  farm,
		updateStatus: func(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
			return 0, nil
		},
	}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		Target:      enums.OrderStatusConfirmed,
		ActorUserID: ownerID,
		ActorRole:   enums.UserRoleFarmOwner,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestConfirmDelivery(t *testing.T) {
	retailerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: uuid.New()}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: retailerID,
		FarmID:     farm.ID,
		Status:     enums.OrderStatusShipping,
	}
	repo := &stubOrdersRepo{order: order, farm: farm}
	pub := &stubOutboxPublisher{}
	notify := &stubNotifier{}
	svc := newTestService(t, repo, pub, &stubStockGuard{}, notify)

	updated, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		OrderID:          order.ID,
		DeliveryImageURL: "https://cdn.example.com/proof.jpg",
		ActorUserID:      retailerID,
		ActorRole:        enums.UserRoleRetailer,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if updated.Status != enums.OrderStatusDelivered {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if repo.orderUpdates["delivery_image_url"] != "https://cdn.example.com/proof.jpg" {
		t.Fatalf("delivery image not stored: %+v", repo.orderUpdates)
	}
	if len(notify.sent) != 1 || notify.sent[0].UserID != farm.OwnerID {
		t.Fatalf("expected farm owner notification, got %+v", notify.sent)
	}
}

func TestConfirmDeliveryRequiresImage(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	_, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		OrderID:     uuid.New(),
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleRetailer,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmDeliveryRequiresShippingStatus(t *testing.T) {
	retailerID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: retailerID,
		Status:     enums.OrderStatusConfirmed,
	}
	repo := &stubOrdersRepo{order: order}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	_, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		OrderID:          order.ID,
		DeliveryImageURL: "https://cdn.example.com/proof.jpg",
		ActorUserID:      retailerID,
		ActorRole:        enums.UserRoleRetailer,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestGetOrderScopes(t *testing.T) {
	retailerID := uuid.New()
	ownerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: ownerID}
	order := &models.Order{
		ID:         uuid.New(),
		RetailerID: retailerID,
		FarmID:     farm.ID,
		Status:     enums.OrderStatusPending,
	}
	repo := &stubOrdersRepo{order: order, farm: farm}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	if _, err := svc.Get(context.Background(), GetOrderInput{OrderID: order.ID, ActorUserID: retailerID, ActorRole: enums.UserRoleRetailer}); err != nil {
		t.Fatalf("retailer read failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), GetOrderInput{OrderID: order.ID, ActorUserID: ownerID, ActorRole: enums.UserRoleFarmOwner}); err != nil {
		t.Fatalf("farm owner read failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), GetOrderInput{OrderID: order.ID, ActorUserID: uuid.New(), ActorRole: enums.UserRoleAdmin}); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
	_, err := svc.Get(context.Background(), GetOrderInput{OrderID: order.ID, ActorUserID: uuid.New(), ActorRole: enums.UserRoleRetailer})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
}

func TestListOrdersFarmOwnership(t *testing.T) {
	ownerID := uuid.New()
	farm := &models.Farm{ID: uuid.New(), OwnerID: ownerID}
	repo := &stubOrdersRepo{farm: farm}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubStockGuard{}, &stubNotifier{})

	if _, err := svc.List(context.Background(), ListOrdersInput{
		ActorUserID: ownerID,
		ActorRole:   enums.UserRoleFarmOwner,
		FarmID:      farm.ID,
	}); err != nil {
		t.Fatalf("owner list failed: %v", err)
	}

	_, err := svc.List(context.Background(), ListOrdersInput{
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleFarmOwner,
		FarmID:      farm.ID,
	})
	if got := pkgerrors.As(err); got == nil || got.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
}
