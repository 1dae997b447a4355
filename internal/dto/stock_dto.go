package dto

import (
	"github.com/shopspring/decimal"
)

// StockItemResponse is the API shape of a warehouse row.
type StockItemResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Unit          string          `json:"unit"`
	Stock         decimal.Decimal `json:"stock"`
	AvgUnitCost   decimal.Decimal `json:"avg_unit_cost"`
	LastUnitPrice decimal.Decimal `json:"last_unit_price"`
	MinStock      decimal.Decimal `json:"min_stock"`
	Suppliers     string          `json:"suppliers"`
	Version       int64           `json:"version"`
	UpdatedAt     string          `json:"updated_at"`
}

// StockFilter narrows the warehouse listing.
type StockFilter struct {
	Name     string `form:"name"`
	Category string `form:"category"`
	Unit     string `form:"unit"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// UpdateStockItemRequest patches editable fields of a warehouse row.
// Nil pointers mean "leave unchanged".
type UpdateStockItemRequest struct {
	Name     *string          `json:"name"`
	Category *string          `json:"category"`
	MinStock *decimal.Decimal `json:"min_stock"`
}

// BulkDeleteRequest removes warehouse rows by id (CRUD concern, but routed
// through the durable queue when offline).
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// StockListResponse is a paginated warehouse listing.
type StockListResponse struct {
	Data  []StockItemResponse `json:"data"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}
