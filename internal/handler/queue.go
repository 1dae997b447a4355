package handler

import (
	"context"
	"net/http"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/worker"

	"github.com/gin-gonic/gin"
)

// QueueHandler is the diagnostics surface over the durable mutation queue.
type QueueHandler struct {
	queue *worker.DurableQueue
}

func NewQueueHandler(queue *worker.DurableQueue) *QueueHandler {
	return &QueueHandler{queue: queue}
}

func (h *QueueHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.Status())
}

// Process triggers a replay pass manually. The pass runs detached from the
// request; single-flight in the queue makes a double trigger harmless.
func (h *QueueHandler) Process(c *gin.Context) {
	go h.queue.ProcessQueue(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"message": "Pemrosesan antrean dimulai."})
}
