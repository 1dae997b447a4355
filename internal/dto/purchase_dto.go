package dto

import (
	"github.com/shopspring/decimal"
)

// PurchaseItemPayload mirrors one purchase line item as sent by the purchasing
// workflow. Per-item validation (positive quantity, non-blank name) is done by
// the sync service so that one bad line never rejects the whole request.
type PurchaseItemPayload struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// ApplyPurchaseRequest is issued by the purchasing workflow right after a
// purchase is marked completed.
type ApplyPurchaseRequest struct {
	PurchaseID string                `json:"purchase_id"`
	Supplier   string                `json:"supplier"`
	Items      []PurchaseItemPayload `json:"items" validate:"required,min=1"`
}

// ItemOutcome reports what happened to a single line item.
type ItemOutcome struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Status    string          `json:"status"`     // applied | skipped | failed
	MatchType string          `json:"match_type"` // id | exact_name | similar_name | created | none
	Message   string          `json:"message,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
	OldStock  decimal.Decimal `json:"old_stock"`
	NewStock  decimal.Decimal `json:"new_stock"`
	OldCost   decimal.Decimal `json:"old_cost"`
	NewCost   decimal.Decimal `json:"new_cost"`
}

// ApplySummary aggregates per-item outcomes of one purchase application.
type ApplySummary struct {
	PurchaseID   string        `json:"purchase_id"`
	AppliedCount int           `json:"applied_count"`
	Applied      []ItemOutcome `json:"applied"`
	Skipped      []ItemOutcome `json:"skipped"`
	Failed       []ItemOutcome `json:"failed"`
}

// QueuedResponse is returned when a mutation could not be applied now and was
// persisted to the durable queue instead.
type QueuedResponse struct {
	OperationID string `json:"operation_id"`
	Message     string `json:"message"`
}

// SyncResult is one item's outcome of a full WAC recalculation.
type SyncResult struct {
	ItemID   string          `json:"item_id"`
	ItemName string          `json:"item_name"`
	OldCost  decimal.Decimal `json:"old_cost"`
	NewCost  decimal.Decimal `json:"new_cost"`
	Status   string          `json:"status"` // success | skipped | error
	Message  string          `json:"message,omitempty"`
}

// SyncSummary aggregates a full recalculation pass.
type SyncSummary struct {
	TotalItems int          `json:"total_items"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Results    []SyncResult `json:"results"`
	DurationMs int64        `json:"duration_ms"`
}
