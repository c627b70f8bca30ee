package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

// Order represents a retailer's purchase of a single product from a farm.
// UnitPriceVND is snapshotted at creation so later price edits do not move
// the total.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RetailerID       uuid.UUID         `gorm:"column:retailer_id;type:uuid;not null"`
	FarmID           uuid.UUID         `gorm:"column:farm_id;type:uuid;not null"`
	ProductID        uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	Quantity         int               `gorm:"column:quantity;not null"`
	UnitPriceVND     int64             `gorm:"column:unit_price_vnd;not null"`
	TotalPriceVND    int64             `gorm:"column:total_price_vnd;not null"`
	DepositAmountVND int64             `gorm:"column:deposit_amount_vnd;not null;default:0"`
	Status           enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:pending"`
	DeliveryAddress  string            `gorm:"column:delivery_address;type:text;not null"`
	ContractTerms    *string           `gorm:"column:contract_terms;type:text"`
	Note             *string           `gorm:"column:note;type:text"`
	DeliveryImageURL *string           `gorm:"column:delivery_image_url;type:text"`
	Payments         []Payment         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipment         *Shipment         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
