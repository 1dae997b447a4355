package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItem is one warehouse row per distinct material, scoped to an owner.
// Stock and AvgUnitCost (the running weighted-average cost) are always >= 0.
// Rows are created the first time a material name+unit is seen and mutated on
// every purchase application; this engine never deletes them as part of a sync.
type StockItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_items_owner_name_unit,priority:1"`
	Name          string          `gorm:"not null;index:idx_stock_items_owner_name_unit,priority:2"`
	Category      string          `gorm:"not null;default:''"`
	Unit          string          `gorm:"not null;index:idx_stock_items_owner_name_unit,priority:3"`
	Stock         decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	AvgUnitCost   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	LastUnitPrice decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	MinStock      decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	// Suppliers is a comma-joined list of distinct supplier names this
	// material has been purchased from (provenance, merged per purchase).
	Suppliers string `gorm:"not null;default:''"`
	// Version increments on every update; updates carry a version predicate
	// so a stale writer surfaces a conflict instead of silently overwriting.
	Version   int64 `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
