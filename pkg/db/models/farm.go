package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Farm represents a producing farm owned by a farm_owner user.
type Farm struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID        uuid.UUID      `gorm:"column:owner_id;type:uuid;not null"`
	Name           string         `gorm:"column:name;type:text;not null"`
	Address        string         `gorm:"column:address;type:text;not null"`
	Province       string         `gorm:"column:province;type:text;not null"`
	Certifications pq.StringArray `gorm:"column:certifications;type:text[];not null;default:ARRAY[]::text[]"`
	Description    *string        `gorm:"column:description;type:text"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true"`
	Products       []Product      `gorm:"foreignKey:FarmID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
