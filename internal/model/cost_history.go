package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostHistory records every stock/WAC mutation on a StockItem.
// Rows are immutable — never updated or deleted.
type CostHistory struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StockItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Supplier    string          `gorm:"not null;default:''"`
	StockBefore decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	StockAfter  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	CostBefore  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CostAfter   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Reason      string          `gorm:"not null"` // purchase_apply | purchase_reverse | recalculate | manual_adjust
	ReferenceID *uuid.UUID      `gorm:"type:uuid"` // purchase id when applicable

	CreatedAt time.Time
}

// TableName overrides GORM's default pluralization (cost_histories → cost_history).
func (CostHistory) TableName() string { return "cost_history" }
