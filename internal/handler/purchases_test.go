package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/dto"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/middleware"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/netmon"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSyncService struct {
	summary *dto.ApplySummary
	calls   int
}

func (s *stubSyncService) ApplyPurchase(_ context.Context, _ uuid.UUID, _ dto.ApplyPurchaseRequest) (*dto.ApplySummary, error) {
	s.calls++
	return s.summary, nil
}

func (s *stubSyncService) ApplyPurchaseByID(_ context.Context, _, _ uuid.UUID) (*dto.ApplySummary, error) {
	return s.summary, nil
}

func (s *stubSyncService) ReversePurchase(_ context.Context, _ uuid.UUID, _ dto.ApplyPurchaseRequest) (*dto.ApplySummary, error) {
	s.calls++
	return s.summary, nil
}

func (s *stubSyncService) RecalculateAllWAC(_ context.Context, _ uuid.UUID) (*dto.SyncSummary, error) {
	return &dto.SyncSummary{}, nil
}

// newSyncRouter wires an ApplyPurchase route against an offline monitor and a
// queue persisted at queuePath, with auth claims injected directly.
func newSyncRouter(t *testing.T, queuePath string, svc *stubSyncService) (*gin.Engine, *worker.DurableQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	monitor := netmon.NewMonitor(func(context.Context) error { return nil }, time.Hour)
	queue := worker.NewDurableQueue(worker.NewFileStore(queuePath), worker.NewExecutorRegistry(), worker.LogNotifier{}, monitor, worker.Options{RepassDelay: time.Hour})
	t.Cleanup(queue.Close)

	h := NewSyncHandler(svc, queue, monitor)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, &middleware.JWTClaims{OwnerID: uuid.NewString()})
	})
	r.POST("/v1/sync/purchases/apply", h.ApplyPurchase)
	return r, queue
}

func applyBody(t *testing.T) *bytes.Reader {
	t.Helper()
	req := dto.ApplyPurchaseRequest{
		PurchaseID: uuid.NewString(),
		Supplier:   "Toko Tepung",
		Items: []dto.PurchaseItemPayload{{
			Name:      "Tepung Terigu",
			Unit:      "kg",
			Quantity:  decimal.NewFromInt(10),
			UnitPrice: decimal.NewFromInt(12000),
		}},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestApplyPurchase_OfflineParksInQueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	svc := &stubSyncService{summary: &dto.ApplySummary{AppliedCount: 1}}
	r, queue := newSyncRouter(t, path, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sync/purchases/apply", applyBody(t)))

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp dto.QueuedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.OperationID)
	assert.Equal(t, 1, queue.Status().Count)
	assert.Equal(t, 0, svc.calls)
}

func TestApplyPurchase_QueuePersistenceFailureRunsDirectly(t *testing.T) {
	// Queue path whose parent is a regular file: every persistence attempt
	// fails, so the handler must run the mutation without offline protection
	// and report the immediate outcome instead of rejecting it.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "store")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	path := filepath.Join(blocker, "queue.json")

	svc := &stubSyncService{summary: &dto.ApplySummary{AppliedCount: 1}}
	r, queue := newSyncRouter(t, path, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sync/purchases/apply", applyBody(t)))

	require.Equal(t, http.StatusOK, w.Code)
	var summary dto.ApplySummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.AppliedCount)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, 0, queue.Status().Count)
}
