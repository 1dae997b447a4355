package handler

import (
	"net/http"
	"time"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/netmon"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler reports liveness of the process and its dependencies.
type HealthHandler struct {
	db      *gorm.DB
	redis   *redis.Client
	monitor *netmon.Monitor
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client, monitor *netmon.Monitor) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb, monitor: monitor}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "error"
	}

	redisStatus := "ok"
	if h.redis == nil {
		redisStatus = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "error"
	}

	status := http.StatusOK
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"database":  dbStatus,
		"redis":     redisStatus,
		"is_online": h.monitor.IsOnline(),
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}
