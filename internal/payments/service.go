package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haiminhngo/farmlink-backend/internal/audit"
	"github.com/haiminhngo/farmlink-backend/internal/notifications"
	"github.com/haiminhngo/farmlink-backend/pkg/db/models"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
	pkgerrors "github.com/haiminhngo/farmlink-backend/pkg/errors"
	"github.com/haiminhngo/farmlink-backend/pkg/gateway"
	"github.com/haiminhngo/farmlink-backend/pkg/logger"
	"github.com/haiminhngo/farmlink-backend/pkg/outbox"
	"github.com/haiminhngo/farmlink-backend/pkg/outbox/payloads"
)

// Callback parameter keys shared by the return and IPN channels.
const (
	paramTxnRef            = "txnRef"
	paramAmount            = "amount"
	paramResponseCode      = "responseCode"
	paramTransactionStatus = "transactionStatus"
	paramTransactionNo     = "transactionNo"
	paramBankCode          = "bankCode"
)

// ipnConsumer namespaces the redis replay guard for gateway callbacks.
const ipnConsumer = "gateway-callback"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, params notifications.NotifyParams) error
}

type gatewayClient interface {
	BuildPaymentURL(req gateway.PaymentURLRequest) (string, error)
	VerifyCallback(params map[string]string) bool
}

type replayGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, id string) (bool, error)
	Delete(ctx context.Context, consumer, id string) error
}

type auditWriter interface {
	Write(ctx context.Context, params audit.WriteParams) (*uuid.UUID, bool)
}

// Service builds signed payment requests and reconciles gateway callbacks.
type Service interface {
	Request(ctx context.Context, input RequestPaymentInput) (*RequestPaymentResult, error)
	HandleReturn(ctx context.Context, params map[string]string) *ReturnResult
	HandleNotification(ctx context.Context, params map[string]string) *NotificationAck
	Get(ctx context.Context, input GetPaymentInput) (*models.Payment, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	notify notifier
	gw     gatewayClient
	guard  replayGuard
	audit  auditWriter
	logg   *logger.Logger
}

// NewService wires the payment reconciliation subsystem. The replay guard
// and audit writer are optional, reconciliation stays correct without them
// because the settle step is a conditional update.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, notify notifier, gw gatewayClient, guard replayGuard, auditW auditWriter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
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
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		notify: notify,
		gw:     gw,
		guard:  guard,
		audit:  auditW,
		logg:   logg,
	}, nil
}

// newTxnRef produces a merchant transaction reference. The gateway caps the
// field at 34 alphanumeric characters.
func newTxnRef(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
	return "FL" + now.UTC().Format("20060102150405") + suffix
}

func (s *service) Request(ctx context.Context, input RequestPaymentInput) (*RequestPaymentResult, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment type")
	}

	var result *RequestPaymentResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var (
			amount         int64
			orderID        *uuid.UUID
			subscriptionID *uuid.UUID
			orderInfo      string
		)
		switch {
		case input.Type.IsOrderScoped():
			if input.OrderID == nil || *input.OrderID == uuid.Nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
			}
			order, err := repo.FindOrder(ctx, *input.OrderID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}
			if order.RetailerID != input.ActorUserID && input.ActorRole != enums.UserRoleAdmin {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
			}

			switch input.Type {
			case enums.PaymentTypeOrderDeposit:
				if order.Status != enums.OrderStatusPending {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "deposit is only payable on a pending order")
				}
				amount = order.DepositAmountVND
				orderInfo = fmt.Sprintf("Thanh toan dat coc don hang %s", order.ID)
			case enums.PaymentTypeOrderFull:
				if order.Status != enums.OrderStatusDeposited {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "balance is only payable after the deposit settles")
				}
				amount = order.TotalPriceVND - order.DepositAmountVND
				orderInfo = fmt.Sprintf("Thanh toan don hang %s", order.ID)
			}
			orderID = &order.ID
		default:
			if input.SubscriptionID == nil || *input.SubscriptionID == uuid.Nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
			}
			if input.ExpectedAmountVND == nil || *input.ExpectedAmountVND <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "amount required for subscription payments")
			}
			amount = *input.ExpectedAmountVND
			subscriptionID = input.SubscriptionID
			orderInfo = fmt.Sprintf("Thanh toan goi dich vu %s", *input.SubscriptionID)
		}

		if amount <= 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "nothing to pay")
		}
		if input.ExpectedAmountVND != nil && *input.ExpectedAmountVND != amount {
			return pkgerrors.New(pkgerrors.CodeAmountMismatch, "expected amount does not match computed amount").
				WithDetails(map[string]any{"expected": *input.ExpectedAmountVND, "computed": amount})
		}

		now := time.Now()
		txnRef := newTxnRef(now)
		paymentURL, err := s.gw.BuildPaymentURL(gateway.PaymentURLRequest{
			TxnRef:    txnRef,
			AmountVND: amount,
			OrderInfo: orderInfo,
			ClientIP:  input.ClientIP,
			CreatedAt: now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment url")
		}

		// The signed URL is stored with the row so support can replay the
		// redirect while the attempt is still pending.
		payment := models.Payment{
			OrderID:        orderID,
			SubscriptionID: subscriptionID,
			UserID:         input.ActorUserID,
			Type:           input.Type,
			AmountVND:      amount,
			Currency:       enums.CurrencyVND,
			Status:         enums.PaymentStatusPending,
			GatewayTxnRef:  txnRef,
			PaymentURL:     &paymentURL,
		}
		if _, err := repo.Create(ctx, &payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		result = &RequestPaymentResult{
			PaymentURL: paymentURL,
			TxnRef:     payment.GatewayTxnRef,
			PaymentID:  payment.ID,
			AmountVND:  amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// outcomeFromParams maps the gateway's response code and transaction status
// to a terminal payment status. Success requires both to report settlement.
func outcomeFromParams(params map[string]string) enums.PaymentStatus {
	respCode := params[paramResponseCode]
	txnStatus := params[paramTransactionStatus]
	switch {
	case respCode == gateway.RespCodeSuccess && txnStatus == gateway.RespCodeSuccess:
		return enums.PaymentStatusSuccess
	case respCode == gateway.RespCodeUserCancelled:
		return enums.PaymentStatusCancelled
	default:
		return enums.PaymentStatusFailed
	}
}

// HandleNotification processes the server-to-server callback. Every failure
// path maps to the gateway's acknowledgement format, the gateway retries on
// anything resembling a server error.
func (s *service) HandleNotification(ctx context.Context, params map[string]string) *NotificationAck {
	ctx = s.logg.WithTxnRef(ctx, params[paramTxnRef])

	if !s.gw.VerifyCallback(params) {
		s.logg.Warn(ctx, "gateway callback signature mismatch")
		return &NotificationAck{RspCode: gateway.AckInvalidSignature, Message: "Invalid signature"}
	}

	txnRef := params[paramTxnRef]
	payment, err := s.repo.FindByTxnRef(ctx, txnRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &NotificationAck{RspCode: gateway.AckTxnRefNotFound, Message: "Transaction not found"}
		}
		s.logg.Error(ctx, "payment lookup failed", err)
		return &NotificationAck{RspCode: gateway.AckUnknownError, Message: "Unknown error"}
	}

	amount, err := gateway.ParseCallbackAmount(params[paramAmount])
	if err != nil || amount != payment.AmountVND {
		return &NotificationAck{RspCode: gateway.AckAmountMismatch, Message: "Invalid amount"}
	}

	if payment.Status != enums.PaymentStatusPending {
		return &NotificationAck{RspCode: gateway.AckAlreadyConfirmed, Message: "Transaction already confirmed"}
	}

	if s.guard != nil {
		processed, guardErr := s.guard.CheckAndMarkProcessed(ctx, ipnConsumer, txnRef)
		if guardErr != nil {
			// The conditional update below is the authoritative guard.
			s.logg.Warn(ctx, "callback replay guard unavailable")
		} else if processed {
			return &NotificationAck{RspCode: gateway.AckAlreadyConfirmed, Message: "Transaction already confirmed"}
		}
	}

	settled, err := s.settle(ctx, payment, params)
	if err != nil {
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, ipnConsumer, txnRef); delErr != nil {
				s.logg.Warn(ctx, "failed to release callback replay guard")
			}
		}
		s.logg.Error(ctx, "payment settlement failed", err)
		return &NotificationAck{RspCode: gateway.AckUnknownError, Message: "Unknown error"}
	}
	if !settled {
		return &NotificationAck{RspCode: gateway.AckAlreadyConfirmed, Message: "Transaction already confirmed"}
	}
	return &NotificationAck{RspCode: gateway.AckSuccess, Message: "Confirm success"}
}

// HandleReturn processes the browser return. It never errors outward, every
// input maps to a terminal redirect status. Reconciliation runs here too so
// the user sees the settled state even when the IPN channel is delayed.
func (s *service) HandleReturn(ctx context.Context, params map[string]string) *ReturnResult {
	ctx = s.logg.WithTxnRef(ctx, params[paramTxnRef])

	if !s.gw.VerifyCallback(params) {
		return &ReturnResult{Status: ReturnStatusInvalidSignature}
	}

	txnRef := params[paramTxnRef]
	payment, err := s.repo.FindByTxnRef(ctx, txnRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &ReturnResult{Status: ReturnStatusNotFound, TxnRef: txnRef}
		}
		s.logg.Error(ctx, "payment lookup failed", err)
		return &ReturnResult{Status: ReturnStatusError, TxnRef: txnRef}
	}

	result := &ReturnResult{TxnRef: txnRef, OrderID: payment.OrderID}

	if payment.Status == enums.PaymentStatusPending {
		amount, amountErr := gateway.ParseCallbackAmount(params[paramAmount])
		if amountErr != nil || amount != payment.AmountVND {
			result.Status = ReturnStatusFailed
			return result
		}
		if _, settleErr := s.settle(ctx, payment, params); settleErr != nil {
			s.logg.Error(ctx, "payment settlement failed", settleErr)
			result.Status = ReturnStatusError
			return result
		}
		result.Status = returnStatusFor(outcomeFromParams(params))
		return result
	}

	result.Status = returnStatusFor(payment.Status)
	return result
}

func returnStatusFor(status enums.PaymentStatus) string {
	switch status {
	case enums.PaymentStatusSuccess:
		return ReturnStatusSuccess
	case enums.PaymentStatusCancelled:
		return ReturnStatusCancelled
	default:
		return ReturnStatusFailed
	}
}

// settle claims the pending payment and applies business side effects
// exactly once. The false return means another caller won the claim.
func (s *service) settle(ctx context.Context, payment *models.Payment, params map[string]string) (bool, error) {
	outcome := outcomeFromParams(params)

	updates := map[string]any{
		"gateway_resp_code": params[paramResponseCode],
	}
	if tranNo := params[paramTransactionNo]; tranNo != "" {
		updates["gateway_tran_no"] = tranNo
	}
	if bankCode := params[paramBankCode]; bankCode != "" {
		updates["gateway_bank_code"] = bankCode
	}
	if outcome == enums.PaymentStatusSuccess {
		updates["confirmed_at"] = time.Now().UTC()
	}

	claimed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.ClaimOutcome(ctx, payment.GatewayTxnRef, outcome, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment")
		}
		if rows == 0 {
			return nil
		}
		claimed = true

		if outcome == enums.PaymentStatusSuccess {
			if err := s.applySuccess(ctx, tx, repo, payment); err != nil {
				return err
			}
		}

		eventType := enums.OutboxEventPaymentSucceeded
		if outcome != enums.PaymentStatusSuccess {
			eventType = enums.OutboxEventPaymentFailed
		}
		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentOutcomeEvent{
				PaymentID:       payment.ID,
				OrderID:         payment.OrderID,
				SubscriptionID:  payment.SubscriptionID,
				Type:            payment.Type,
				Status:          outcome,
				AmountVND:       payment.AmountVND,
				GatewayTxnRef:   payment.GatewayTxnRef,
				GatewayRespCode: params[paramResponseCode],
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil || !claimed {
		return claimed, err
	}

	s.writeReceipt(ctx, payment, outcome)
	return true, nil
}

// applySuccess advances the order for a settled payment. A lost order
// transition is logged rather than failed, the money already moved and the
// payment row is the ledger of record.
func (s *service) applySuccess(ctx context.Context, tx *gorm.DB, repo Repository, payment *models.Payment) error {
	if payment.OrderID == nil {
		return nil
	}

	order, err := repo.FindOrder(ctx, *payment.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	farm, err := repo.FindFarm(ctx, order.FarmID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farm")
	}

	var (
		from, to enums.OrderStatus
		title    string
		message  string
	)
	switch payment.Type {
	case enums.PaymentTypeOrderDeposit:
		from, to = enums.OrderStatusPending, enums.OrderStatusDeposited
		title = "Deposit received"
		message = fmt.Sprintf("Deposit of %d VND settled for order %s", payment.AmountVND, order.ID)
	case enums.PaymentTypeOrderFull:
		from, to = enums.OrderStatusDeposited, enums.OrderStatusConfirmed
		title = "Balance received"
		message = fmt.Sprintf("Balance of %d VND settled for order %s", payment.AmountVND, order.ID)
	default:
		return nil
	}

	rows, err := repo.UpdateOrderStatus(ctx, order.ID, from, to)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order")
	}
	if rows == 0 {
		s.logg.Warn(ctx, fmt.Sprintf("order %s left %s before payment settled", order.ID, from))
	}

	// Alerts are advisory, a failed insert must never unwind a settlement.
	if err := s.notify.Notify(ctx, tx, notifications.NotifyParams{
		UserID:  farm.OwnerID,
		Type:    enums.NotificationTypePaymentAlert,
		Title:   title,
		Message: message,
	}); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment notification not delivered")
	}
	return nil
}

// writeReceipt records the settlement in the audit store. Failures are
// non-fatal, the payment simply carries no receipt.
func (s *service) writeReceipt(ctx context.Context, payment *models.Payment, outcome enums.PaymentStatus) {
	if s.audit == nil {
		return
	}
	actorID := payment.UserID
	receipt, ok := s.audit.Write(ctx, audit.WriteParams{
		Action:     "payment." + string(outcome),
		EntityType: "payment",
		EntityID:   payment.ID,
		ActorID:    actorID,
		Detail:     fmt.Sprintf("txnRef=%s amount=%d", payment.GatewayTxnRef, payment.AmountVND),
	})
	if !ok {
		return
	}
	if err := s.repo.Update(ctx, payment.ID, map[string]any{"audit_receipt_id": *receipt}); err != nil {
		s.logg.Error(ctx, "failed to attach audit receipt", err)
	}
}

func (s *service) Get(ctx context.Context, input GetPaymentInput) (*models.Payment, error) {
	if strings.TrimSpace(input.TxnRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "txn ref required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	payment, err := s.repo.FindByTxnRef(ctx, input.TxnRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.UserID != input.ActorUserID && input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to user")
	}
	return payment, nil
}
