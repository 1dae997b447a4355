package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation kinds the queue knows how to replay.
const (
	KindApplyPurchase   = "apply_purchase"
	KindReversePurchase = "reverse_purchase"
	KindUpdateStockItem = "update_stock_item"
	KindBulkDeleteStock = "bulk_delete_stock"
)

// QueuedOperation is one durable mutation awaiting replay. Data is the
// original request payload, opaque to the queue itself; the registered
// executor for Type knows how to decode it.
type QueuedOperation struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
}

// ExecutorFunc replays one operation against the live services. A nil return
// removes the operation from the queue; the error's retry classification
// decides between re-queueing and dropping.
type ExecutorFunc func(ctx context.Context, op QueuedOperation) error

// ExecutorRegistry maps operation kinds to their replay functions. Populated
// once at startup, read-only afterwards.
type ExecutorRegistry struct {
	executors map[string]ExecutorFunc
}

func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{executors: make(map[string]ExecutorFunc)}
}

func (r *ExecutorRegistry) Register(kind string, fn ExecutorFunc) {
	r.executors[kind] = fn
}

// Execute dispatches op to its executor. An unknown kind is a terminal
// error: retrying will never make an executor appear.
func (r *ExecutorRegistry) Execute(ctx context.Context, op QueuedOperation) error {
	fn, ok := r.executors[op.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
	return fn(ctx, op)
}
