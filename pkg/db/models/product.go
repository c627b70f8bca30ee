package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

// Product represents a farm produce listing. StockQty is the remaining
// sellable quantity, reservations decrement it directly.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmID      uuid.UUID           `gorm:"column:farm_id;type:uuid;not null"`
	Name        string              `gorm:"column:name;type:text;not null"`
	Description *string             `gorm:"column:description;type:text"`
	Unit        string              `gorm:"column:unit;type:text;not null"`
	PriceVND    int64               `gorm:"column:price_vnd;not null"`
	StockQty    int                 `gorm:"column:stock_qty;not null;default:0"`
	Status      enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:available"`
	ImageURL    *string             `gorm:"column:image_url;type:text"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
