package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/dto"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/netmon"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrUnknownOperation marks a queued operation whose kind has no registered
// executor. Terminal: the operation is dropped, not retried.
var ErrUnknownOperation = errors.New("no executor for operation kind")

// interItemDelay paces replay so a reconnecting process does not hammer a
// store that just came back.
const interItemDelay = 200 * time.Millisecond

// ConnectivitySource reports whether the backing store is reachable.
// Satisfied by netmon.Monitor.
type ConnectivitySource interface {
	IsOnline() bool
}

// Options tune a DurableQueue. Zero values select the defaults.
type Options struct {
	MaxRetries  int           // retry ceiling per operation (default 3)
	RepassDelay time.Duration // delay before re-running a partial pass (default 30s)
}

// DurableQueue holds mutations that could not be applied because the backing
// store was unreachable, persists them across restarts, and replays them in
// arrival order once connectivity returns.
//
// Replay runs single-flight: concurrent ProcessQueue calls collapse into the
// one pass already running. Removal is by operation id and idempotent, so a
// pass observing a queue mutated under it stays correct. Every queue mutation
// (enqueue, removal, retry bump) is written through to disk before the pass
// moves on — a crash mid-pass never resurrects an operation that already
// succeeded.
type DurableQueue struct {
	store    *FileStore
	registry *ExecutorRegistry
	notifier Notifier
	conn     ConnectivitySource

	maxRetries  int
	repassDelay time.Duration

	mu         sync.Mutex
	ops        []QueuedOperation
	processing bool
	repass     *time.Timer
	closed     bool
}

// NewDurableQueue loads any persisted backlog from the store and returns a
// ready queue. Call Close before process exit to stop the re-pass timer.
func NewDurableQueue(store *FileStore, registry *ExecutorRegistry, notifier Notifier, conn ConnectivitySource, opts Options) *DurableQueue {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RepassDelay <= 0 {
		opts.RepassDelay = 30 * time.Second
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}

	q := &DurableQueue{
		store:       store,
		registry:    registry,
		notifier:    notifier,
		conn:        conn,
		maxRetries:  opts.MaxRetries,
		repassDelay: opts.RepassDelay,
		ops:         store.Load(),
	}
	if n := len(q.ops); n > 0 {
		log.Info().Int("count", n).Msg("queue: restored persisted backlog")
	}
	return q
}

// Enqueue persists a mutation for later replay and returns its operation id.
// The write to disk happens before Enqueue returns; an acknowledged enqueue
// survives a crash.
func (q *DurableQueue) Enqueue(kind string, ownerID uuid.UUID, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	op := QueuedOperation{
		ID:         uuid.NewString(),
		Type:       kind,
		OwnerID:    ownerID,
		Data:       data,
		Timestamp:  time.Now(),
		MaxRetries: q.maxRetries,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	persisted, err := q.store.Save(append(q.ops, op))
	if err != nil {
		return "", err
	}
	q.ops = persisted

	log.Info().Str("op_id", op.ID).Str("kind", kind).Int("pending", len(q.ops)).Msg("queue: operation enqueued")
	return op.ID, nil
}

// ProcessQueue replays the backlog in arrival order. No-op when offline, when
// the queue is empty, or when a pass is already running. Operations that fail
// with a retryable error stay queued with an incremented retry count until
// the ceiling; terminal failures and exhausted operations are dropped and
// reported through the notifier. A pass that leaves work behind schedules
// itself again after the re-pass delay.
func (q *DurableQueue) ProcessQueue(ctx context.Context) {
	q.mu.Lock()
	if q.processing || q.closed || len(q.ops) == 0 || !q.conn.IsOnline() {
		q.mu.Unlock()
		return
	}
	q.processing = true
	snapshot := make([]QueuedOperation, len(q.ops))
	copy(snapshot, q.ops)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.processing = false
		q.mu.Unlock()
	}()

	log.Info().Int("count", len(snapshot)).Msg("queue: replay started")
	summary := ReplaySummary{}

	for i, op := range snapshot {
		if ctx.Err() != nil {
			break
		}
		if !q.conn.IsOnline() {
			log.Warn().Msg("queue: connectivity lost mid-pass, stopping")
			break
		}

		err := q.registry.Execute(ctx, op)
		if err == nil {
			q.remove(op.ID)
			summary.Succeeded++
		} else {
			summary.Failed++
			c := netmon.Classify(err)
			switch {
			case !c.Retryable:
				log.Error().Err(err).Str("op_id", op.ID).Str("kind", op.Type).Msg("queue: terminal failure, dropping")
				q.remove(op.ID)
				summary.Dropped = append(summary.Dropped, op)
			case op.RetryCount+1 >= op.MaxRetries:
				log.Error().Err(err).Str("op_id", op.ID).Str("kind", op.Type).Int("retries", op.RetryCount+1).Msg("queue: retries exhausted, dropping")
				q.remove(op.ID)
				op.RetryCount++
				summary.Dropped = append(summary.Dropped, op)
			default:
				log.Warn().Err(err).Str("op_id", op.ID).Str("kind", op.Type).Int("retry", op.RetryCount+1).Msg("queue: retryable failure, keeping")
				q.bumpRetry(op.ID)
			}
		}

		if i < len(snapshot)-1 {
			time.Sleep(interItemDelay)
		}
	}

	q.persist()
	q.notifier.ReplayFinished(summary)

	q.mu.Lock()
	remaining := len(q.ops)
	if remaining > 0 && !q.closed {
		if q.repass != nil {
			q.repass.Stop()
		}
		q.repass = time.AfterFunc(q.repassDelay, func() { q.ProcessQueue(context.Background()) })
	}
	q.mu.Unlock()

	if remaining > 0 {
		log.Info().Int("remaining", remaining).Dur("repass_in", q.repassDelay).Msg("queue: pass incomplete, re-pass scheduled")
	}
}

// Status reports the queue for the diagnostics surface.
func (q *DurableQueue) Status() dto.QueueStatusResponse {
	q.mu.Lock()
	defer q.mu.Unlock()

	infos := make([]dto.QueuedOpInfo, 0, len(q.ops))
	for _, op := range q.ops {
		infos = append(infos, dto.QueuedOpInfo{
			ID:         op.ID,
			Kind:       op.Type,
			Timestamp:  op.Timestamp.UnixMilli(),
			RetryCount: op.RetryCount,
		})
	}
	return dto.QueueStatusResponse{
		Count:        len(q.ops),
		IsProcessing: q.processing,
		IsOnline:     q.conn.IsOnline(),
		Operations:   infos,
	}
}

// Close stops the re-pass timer. Pending operations stay persisted for the
// next start.
func (q *DurableQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if q.repass != nil {
		q.repass.Stop()
		q.repass = nil
	}
}

func (q *DurableQueue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, op := range q.ops {
		if op.ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			q.persistLocked()
			return
		}
	}
}

func (q *DurableQueue) bumpRetry(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.ops {
		if q.ops[i].ID == id {
			q.ops[i].RetryCount++
			q.persistLocked()
			return
		}
	}
}

func (q *DurableQueue) persist() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.persistLocked()
}

func (q *DurableQueue) persistLocked() {
	persisted, err := q.store.Save(q.ops)
	if err != nil {
		log.Error().Err(err).Msg("queue: persist failed")
		return
	}
	q.ops = persisted
}
