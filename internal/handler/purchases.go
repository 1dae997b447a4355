package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/apierror"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/dto"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/middleware"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/netmon"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/service"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const queuedMessage = "Tidak ada koneksi. Operasi disimpan dan akan disinkronkan otomatis."

// SyncHandler exposes the purchase-to-warehouse sync operations. When the
// backing store is offline, or an attempt fails without applying anything for
// a retryable reason, the request is parked in the durable queue and answered
// with 202 Accepted.
type SyncHandler struct {
	svc     service.PurchaseSyncService
	queue   *worker.DurableQueue
	monitor *netmon.Monitor
}

func NewSyncHandler(svc service.PurchaseSyncService, queue *worker.DurableQueue, monitor *netmon.Monitor) *SyncHandler {
	return &SyncHandler{svc: svc, queue: queue, monitor: monitor}
}

func (h *SyncHandler) ApplyPurchase(c *gin.Context) {
	var req dto.ApplyPurchaseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ownerID := middleware.OwnerID(c)

	if !h.monitor.IsOnline() {
		if tryEnqueue(c, h.queue, worker.KindApplyPurchase, ownerID, req) {
			return
		}
		h.respondDirect(c, ownerID, req, h.svc.ApplyPurchase)
		return
	}

	summary, err := h.svc.ApplyPurchase(c.Request.Context(), ownerID, req)
	if err != nil {
		h.handleFailure(c, worker.KindApplyPurchase, ownerID, req, err)
		return
	}
	if shouldQueue(summary) && tryEnqueue(c, h.queue, worker.KindApplyPurchase, ownerID, req) {
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ApplyPurchaseByID resolves the purchase from the store, so it has no
// offline fallback: the row cannot be read while disconnected.
func (h *SyncHandler) ApplyPurchaseByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID tidak valid"))
		return
	}
	if !h.monitor.IsOnline() {
		c.JSON(http.StatusServiceUnavailable, apierror.New("Tidak ada koneksi. Coba lagi setelah tersambung."))
		return
	}

	summary, err := h.svc.ApplyPurchaseByID(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, apierror.New("Pembelian tidak ditemukan."))
		case errors.Is(err, service.ErrPurchaseNotCompleted):
			c.JSON(http.StatusBadRequest, apierror.New("Pembelian belum selesai, tidak bisa diterapkan."))
		default:
			c.JSON(http.StatusInternalServerError, apierror.New(netmon.Classify(err).UserMessage))
		}
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *SyncHandler) ReversePurchase(c *gin.Context) {
	var req dto.ApplyPurchaseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ownerID := middleware.OwnerID(c)

	if !h.monitor.IsOnline() {
		if tryEnqueue(c, h.queue, worker.KindReversePurchase, ownerID, req) {
			return
		}
		h.respondDirect(c, ownerID, req, h.svc.ReversePurchase)
		return
	}

	summary, err := h.svc.ReversePurchase(c.Request.Context(), ownerID, req)
	if err != nil {
		h.handleFailure(c, worker.KindReversePurchase, ownerID, req, err)
		return
	}
	if shouldQueue(summary) && tryEnqueue(c, h.queue, worker.KindReversePurchase, ownerID, req) {
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *SyncHandler) RecalculateAll(c *gin.Context) {
	summary, err := h.svc.RecalculateAllWAC(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(netmon.Classify(err).UserMessage))
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleFailure deals with errors raised before any item was attempted:
// retryable ones are queued (and flip the monitor offline on connection
// failures), terminal ones are surfaced.
func (h *SyncHandler) handleFailure(c *gin.Context, kind string, ownerID uuid.UUID, req dto.ApplyPurchaseRequest, err error) {
	cls := netmon.Classify(err)
	if cls.Retryable {
		h.monitor.SetOnline(false)
		if tryEnqueue(c, h.queue, kind, ownerID, req) {
			return
		}
		c.JSON(http.StatusServiceUnavailable, apierror.New(cls.UserMessage))
		return
	}
	c.JSON(http.StatusBadRequest, apierror.New(cls.UserMessage))
}

// respondDirect runs the mutation without offline protection and reports the
// immediate outcome. Used when the durable queue cannot persist.
func (h *SyncHandler) respondDirect(c *gin.Context, ownerID uuid.UUID, req dto.ApplyPurchaseRequest, apply func(context.Context, uuid.UUID, dto.ApplyPurchaseRequest) (*dto.ApplySummary, error)) {
	summary, err := apply(c.Request.Context(), ownerID, req)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, apierror.New(netmon.Classify(err).UserMessage))
		return
	}
	c.JSON(http.StatusOK, summary)
}

// tryEnqueue parks the payload in the durable queue and answers 202. When
// queue persistence itself fails it writes no response and reports false, so
// the caller can proceed without offline protection instead of rejecting the
// mutation outright.
func tryEnqueue(c *gin.Context, queue *worker.DurableQueue, kind string, ownerID uuid.UUID, payload interface{}) bool {
	opID, err := queue.Enqueue(kind, ownerID, payload)
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("queue persistence failed, proceeding without offline protection")
		return false
	}
	c.JSON(http.StatusAccepted, dto.QueuedResponse{OperationID: opID, Message: queuedMessage})
	return true
}

// shouldQueue: nothing applied, at least one failure, and all of it retryable
// noise rather than bad input. Partial successes are never re-queued — a
// replay would double-apply the lines that went through.
func shouldQueue(summary *dto.ApplySummary) bool {
	if summary.AppliedCount > 0 || len(summary.Failed) == 0 {
		return false
	}
	for _, out := range summary.Failed {
		if out.Retryable {
			return true
		}
	}
	return false
}
