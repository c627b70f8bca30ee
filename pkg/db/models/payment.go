package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

// Payment is one gateway payment attempt. GatewayTxnRef is the merchant
// transaction reference sent to the gateway, callbacks are matched on it.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	SubscriptionID  *uuid.UUID          `gorm:"column:subscription_id;type:uuid"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Type            enums.PaymentType   `gorm:"column:type;type:payment_type;not null"`
	AmountVND       int64               `gorm:"column:amount_vnd;not null"`
	Currency        enums.Currency      `gorm:"column:currency;type:text;not null;default:VND"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:pending"`
	GatewayTxnRef   string              `gorm:"column:gateway_txn_ref;type:text;not null;uniqueIndex"`
	GatewayTranNo   *string             `gorm:"column:gateway_tran_no;type:text"`
	GatewayRespCode *string             `gorm:"column:gateway_resp_code;type:text"`
	GatewayBankCode *string             `gorm:"column:gateway_bank_code;type:text"`
	PaymentURL      *string             `gorm:"column:payment_url;type:text"`
	ConfirmedAt     *time.Time          `gorm:"column:confirmed_at"`
	AuditReceiptID  *uuid.UUID          `gorm:"column:audit_receipt_id;type:uuid"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
