package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseItem is one material line within a purchase. Immutable once the
// purchase is finalized. ItemID may reference a StockItem or may be a
// purchase-scoped id unrelated to any warehouse row — resolution by name+unit
// is the durable fallback.
type PurchaseItem struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Purchase is owned by the purchasing subsystem; this engine only reads it.
// Items are stored as a JSON document, mirroring the purchases table layout.
type Purchase struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Supplier     string          `gorm:"not null"`
	PurchaseDate time.Time       `gorm:"not null"`
	Items        []PurchaseItem  `gorm:"serializer:json"`
	TotalValue   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Status       string          `gorm:"not null;default:'pending'"` // pending | completed | cancelled
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
