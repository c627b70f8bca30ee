package payments

import (
	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

// RequestPaymentInput captures a payment attempt request. ExpectedAmountVND
// is optional for order-scoped payments (the server computes the amount) and
// required for subscription payments.
type RequestPaymentInput struct {
	Type              enums.PaymentType
	OrderID           *uuid.UUID
	SubscriptionID    *uuid.UUID
	ExpectedAmountVND *int64
	ClientIP          string
	ActorUserID       uuid.UUID
	ActorRole         enums.UserRole
}

// RequestPaymentResult is handed back to the client for the redirect.
type RequestPaymentResult struct {
	PaymentURL string    `json:"payment_url"`
	TxnRef     string    `json:"txn_ref"`
	PaymentID  uuid.UUID `json:"payment_id"`
	AmountVND  int64     `json:"amount_vnd"`
}

// ReturnResult is the terminal outcome shown to the returning browser.
// It is always produced, malformed input maps to a failure status.
type ReturnResult struct {
	Status  string     `json:"status"`
	TxnRef  string     `json:"txn_ref,omitempty"`
	OrderID *uuid.UUID `json:"order_id,omitempty"`
}

// Return statuses for the browser redirect.
const (
	ReturnStatusSuccess          = "success"
	ReturnStatusFailed           = "failed"
	ReturnStatusCancelled        = "cancelled"
	ReturnStatusNotFound         = "not_found"
	ReturnStatusInvalidSignature = "invalid_signature"
	ReturnStatusError            = "error"
)

// NotificationAck is the structured acknowledgement returned to the gateway
// from the IPN endpoint. The gateway retries on anything else.
type NotificationAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// GetPaymentInput scopes a payment lookup to the requesting user.
type GetPaymentInput struct {
	TxnRef      string
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}
