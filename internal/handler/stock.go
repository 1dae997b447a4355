package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/apierror"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/dto"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/middleware"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/netmon"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/repository"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/service"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockHandler serves the warehouse CRUD surface. Reads always hit the live
// path; mutations fall back to the durable queue when offline.
type StockHandler struct {
	svc     service.StockService
	queue   *worker.DurableQueue
	monitor *netmon.Monitor
}

func NewStockHandler(svc service.StockService, queue *worker.DurableQueue, monitor *netmon.Monitor) *StockHandler {
	return &StockHandler{svc: svc, queue: queue, monitor: monitor}
}

func (h *StockHandler) List(c *gin.Context) {
	var filter dto.StockFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parameter tidak valid"))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), middleware.OwnerID(c), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(netmon.Classify(err).UserMessage))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StockHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID tidak valid"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("Data tidak ditemukan."))
			return
		}
		c.JSON(http.StatusInternalServerError, apierror.New(netmon.Classify(err).UserMessage))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// updateStockPayload is the queue-persisted form of a stock patch: the route
// param folded into the body so an executor can replay it standalone.
type updateStockPayload struct {
	ID string `json:"id"`
	dto.UpdateStockItemRequest
}

func (h *StockHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID tidak valid"))
		return
	}
	var req dto.UpdateStockItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ownerID := middleware.OwnerID(c)
	payload := updateStockPayload{ID: id.String(), UpdateStockItemRequest: req}

	// Offline with a working queue: park and acknowledge. If queue
	// persistence fails, fall through and run without offline protection.
	if !h.monitor.IsOnline() && tryEnqueue(c, h.queue, worker.KindUpdateStockItem, ownerID, payload) {
		return
	}

	resp, err := h.svc.UpdateItem(c.Request.Context(), ownerID, id, req)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, apierror.New("Data tidak ditemukan."))
		case errors.Is(err, repository.ErrStaleStockItem):
			c.JSON(http.StatusConflict, apierror.New(netmon.Classify(err).UserMessage))
		default:
			cls := netmon.Classify(err)
			if cls.Retryable {
				h.monitor.SetOnline(false)
				if tryEnqueue(c, h.queue, worker.KindUpdateStockItem, ownerID, payload) {
					return
				}
				c.JSON(http.StatusServiceUnavailable, apierror.New(cls.UserMessage))
				return
			}
			c.JSON(http.StatusInternalServerError, apierror.New(cls.UserMessage))
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StockHandler) BulkDelete(c *gin.Context) {
	var req dto.BulkDeleteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ownerID := middleware.OwnerID(c)

	if !h.monitor.IsOnline() && tryEnqueue(c, h.queue, worker.KindBulkDeleteStock, ownerID, req) {
		return
	}

	deleted, err := h.svc.BulkDelete(c.Request.Context(), ownerID, req.IDs)
	if err != nil {
		cls := netmon.Classify(err)
		if cls.Retryable {
			h.monitor.SetOnline(false)
			if tryEnqueue(c, h.queue, worker.KindBulkDeleteStock, ownerID, req) {
				return
			}
			c.JSON(http.StatusServiceUnavailable, apierror.New(cls.UserMessage))
			return
		}
		c.JSON(http.StatusInternalServerError, apierror.New(cls.UserMessage))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *StockHandler) Alerts(c *gin.Context) {
	items, err := h.svc.Alerts(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(netmon.Classify(err).UserMessage))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

func (h *StockHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID tidak valid"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.svc.History(c.Request.Context(), middleware.OwnerID(c), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(netmon.Classify(err).UserMessage))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}
