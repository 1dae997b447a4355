package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	mu     sync.Mutex
	online bool
}

func (c *stubConn) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

func (c *stubConn) set(online bool) {
	c.mu.Lock()
	c.online = online
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []ReplaySummary
}

func (n *recordingNotifier) ReplayFinished(s ReplaySummary) {
	n.mu.Lock()
	n.summaries = append(n.summaries, s)
	n.mu.Unlock()
}

func (n *recordingNotifier) last(t *testing.T) ReplaySummary {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.summaries)
	return n.summaries[len(n.summaries)-1]
}

func newTestQueue(t *testing.T, registry *ExecutorRegistry, conn ConnectivitySource, notifier Notifier) *DurableQueue {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "queue.json"))
	q := NewDurableQueue(store, registry, notifier, conn, Options{
		MaxRetries:  3,
		RepassDelay: time.Hour, // keep the re-pass timer out of the test's way
	})
	t.Cleanup(q.Close)
	return q
}

func TestQueue_EnqueueIsDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store := NewFileStore(path)
	conn := &stubConn{}
	q := NewDurableQueue(store, NewExecutorRegistry(), LogNotifier{}, conn, Options{RepassDelay: time.Hour})
	defer q.Close()

	opID, err := q.Enqueue(KindApplyPurchase, uuid.New(), map[string]string{"purchase_id": "p1"})
	require.NoError(t, err)
	require.NotEmpty(t, opID)

	// A fresh queue over the same file restores the backlog.
	q2 := NewDurableQueue(NewFileStore(path), NewExecutorRegistry(), LogNotifier{}, conn, Options{RepassDelay: time.Hour})
	defer q2.Close()
	status := q2.Status()
	require.Equal(t, 1, status.Count)
	assert.Equal(t, opID, status.Operations[0].ID)
}

func TestQueue_ProcessInArrivalOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	registry := NewExecutorRegistry()
	registry.Register(KindApplyPurchase, func(_ context.Context, op QueuedOperation) error {
		mu.Lock()
		order = append(order, op.ID)
		mu.Unlock()
		return nil
	})

	conn := &stubConn{online: true}
	q := newTestQueue(t, registry, conn, LogNotifier{})

	id1, err := q.Enqueue(KindApplyPurchase, uuid.New(), "a")
	require.NoError(t, err)
	id2, err := q.Enqueue(KindApplyPurchase, uuid.New(), "b")
	require.NoError(t, err)

	q.ProcessQueue(context.Background())

	assert.Equal(t, []string{id1, id2}, order)
	assert.Equal(t, 0, q.Status().Count)
}

func TestQueue_OfflineIsNoOp(t *testing.T) {
	called := false
	registry := NewExecutorRegistry()
	registry.Register(KindApplyPurchase, func(_ context.Context, _ QueuedOperation) error {
		called = true
		return nil
	})

	conn := &stubConn{online: false}
	q := newTestQueue(t, registry, conn, LogNotifier{})
	_, err := q.Enqueue(KindApplyPurchase, uuid.New(), "a")
	require.NoError(t, err)

	q.ProcessQueue(context.Background())

	assert.False(t, called)
	assert.Equal(t, 1, q.Status().Count)
}

func TestQueue_RetryableFailureKeptUntilCeiling(t *testing.T) {
	attempts := 0
	registry := NewExecutorRegistry()
	registry.Register(KindApplyPurchase, func(_ context.Context, _ QueuedOperation) error {
		attempts++
		return context.DeadlineExceeded // classified retryable
	})

	conn := &stubConn{online: true}
	notifier := &recordingNotifier{}
	q := newTestQueue(t, registry, conn, notifier)
	_, err := q.Enqueue(KindApplyPurchase, uuid.New(), "a")
	require.NoError(t, err)

	// Passes 1 and 2: kept with bumped retry count.
	q.ProcessQueue(context.Background())
	require.Equal(t, 1, q.Status().Count)
	assert.Equal(t, 1, q.Status().Operations[0].RetryCount)

	q.ProcessQueue(context.Background())
	require.Equal(t, 1, q.Status().Count)
	assert.Equal(t, 2, q.Status().Operations[0].RetryCount)

	// Pass 3 exhausts the ceiling: dropped and reported.
	q.ProcessQueue(context.Background())
	assert.Equal(t, 0, q.Status().Count)
	assert.Equal(t, 3, attempts)
	assert.Len(t, notifier.last(t).Dropped, 1)
}

func TestQueue_TerminalFailureDroppedImmediately(t *testing.T) {
	attempts := 0
	registry := NewExecutorRegistry()
	registry.Register(KindApplyPurchase, func(_ context.Context, _ QueuedOperation) error {
		attempts++
		return errors.New("constraint violation")
	})

	conn := &stubConn{online: true}
	notifier := &recordingNotifier{}
	q := newTestQueue(t, registry, conn, notifier)
	_, err := q.Enqueue(KindApplyPurchase, uuid.New(), "a")
	require.NoError(t, err)

	q.ProcessQueue(context.Background())

	assert.Equal(t, 1, attempts)
	assert.Equal(t, 0, q.Status().Count)
	assert.Len(t, notifier.last(t).Dropped, 1)
}

func TestQueue_UnknownKindDropped(t *testing.T) {
	conn := &stubConn{online: true}
	notifier := &recordingNotifier{}
	q := newTestQueue(t, NewExecutorRegistry(), conn, notifier)
	_, err := q.Enqueue("no_such_kind", uuid.New(), "a")
	require.NoError(t, err)

	q.ProcessQueue(context.Background())

	assert.Equal(t, 0, q.Status().Count)
	assert.Len(t, notifier.last(t).Dropped, 1)
}

func TestQueue_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var running int
	var mu sync.Mutex

	registry := NewExecutorRegistry()
	registry.Register(KindApplyPurchase, func(_ context.Context, _ QueuedOperation) error {
		mu.Lock()
		running++
		mu.Unlock()
		close(started)
		<-release
		return nil
	})

	conn := &stubConn{online: true}
	q := newTestQueue(t, registry, conn, LogNotifier{})
	_, err := q.Enqueue(KindApplyPurchase, uuid.New(), "a")
	require.NoError(t, err)

	go q.ProcessQueue(context.Background())
	<-started

	// Second trigger while the first pass holds the flag: must return without
	// executing anything.
	q.ProcessQueue(context.Background())
	mu.Lock()
	assert.Equal(t, 1, running)
	mu.Unlock()

	close(release)
	require.Eventually(t, func() bool { return q.Status().Count == 0 }, time.Second, 10*time.Millisecond)
}

func TestQueue_CompletedOperationRemovedFromDiskBeforeNextItem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	conn := &stubConn{online: true}

	// The second executor run inspects the file as a restart at that moment
	// would see it: the first operation already succeeded and must be gone.
	var id1, id2 string
	var onDisk []string
	registry := NewExecutorRegistry()
	registry.Register(KindApplyPurchase, func(_ context.Context, op QueuedOperation) error {
		if op.ID == id2 {
			for _, persisted := range NewFileStore(path).Load() {
				onDisk = append(onDisk, persisted.ID)
			}
		}
		return nil
	})

	q := NewDurableQueue(NewFileStore(path), registry, LogNotifier{}, conn, Options{RepassDelay: time.Hour})
	defer q.Close()

	var err error
	id1, err = q.Enqueue(KindApplyPurchase, uuid.New(), "a")
	require.NoError(t, err)
	id2, err = q.Enqueue(KindApplyPurchase, uuid.New(), "b")
	require.NoError(t, err)

	q.ProcessQueue(context.Background())

	assert.NotContains(t, onDisk, id1)
	assert.Contains(t, onDisk, id2)
}

func TestQueue_RetryBumpPersistedBeforeNextItem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	conn := &stubConn{online: true}

	var id1, id2 string
	var persistedRetries int
	registry := NewExecutorRegistry()
	registry.Register(KindApplyPurchase, func(_ context.Context, op QueuedOperation) error {
		switch op.ID {
		case id1:
			return context.DeadlineExceeded // classified retryable
		case id2:
			for _, persisted := range NewFileStore(path).Load() {
				if persisted.ID == id1 {
					persistedRetries = persisted.RetryCount
				}
			}
		}
		return nil
	})

	q := NewDurableQueue(NewFileStore(path), registry, LogNotifier{}, conn, Options{RepassDelay: time.Hour})
	defer q.Close()

	var err error
	id1, err = q.Enqueue(KindApplyPurchase, uuid.New(), "a")
	require.NoError(t, err)
	id2, err = q.Enqueue(KindApplyPurchase, uuid.New(), "b")
	require.NoError(t, err)

	q.ProcessQueue(context.Background())

	assert.Equal(t, 1, persistedRetries)
}

func TestQueue_StopsWhenConnectivityDropsMidPass(t *testing.T) {
	conn := &stubConn{online: true}
	executed := 0
	registry := NewExecutorRegistry()
	registry.Register(KindApplyPurchase, func(_ context.Context, _ QueuedOperation) error {
		executed++
		conn.set(false) // connection dies after the first item
		return nil
	})

	q := newTestQueue(t, registry, conn, LogNotifier{})
	_, err := q.Enqueue(KindApplyPurchase, uuid.New(), "a")
	require.NoError(t, err)
	_, err = q.Enqueue(KindApplyPurchase, uuid.New(), "b")
	require.NoError(t, err)

	q.ProcessQueue(context.Background())

	assert.Equal(t, 1, executed)
	assert.Equal(t, 1, q.Status().Count)
}
