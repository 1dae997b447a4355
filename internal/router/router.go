package router

import (
	"time"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/config"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/handler"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/middleware"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/netmon"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/service"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires handlers onto a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis; services and
// the queue are built at the composition root so queue executors and HTTP
// handlers share the same instances.
func New(
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
	monitor *netmon.Monitor,
	queue *worker.DurableQueue,
	syncSvc service.PurchaseSyncService,
	stockSvc service.StockService,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Handlers ─────────────────────────────────────────────────────────────
	healthH := handler.NewHealthHandler(db, rdb, monitor)
	syncH := handler.NewSyncHandler(syncSvc, queue, monitor)
	stockH := handler.NewStockHandler(stockSvc, queue, monitor)
	queueH := handler.NewQueueHandler(queue)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", healthH.Health)

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		sync := v1.Group("/sync")
		{
			sync.POST("/purchases/apply", syncH.ApplyPurchase)
			sync.POST("/purchases/:id/apply", syncH.ApplyPurchaseByID)
			sync.POST("/purchases/reverse", syncH.ReversePurchase)
			sync.POST("/recalculate", syncH.RecalculateAll)
		}

		stock := v1.Group("/stock")
		{
			stock.GET("", stockH.List)
			stock.GET("/alerts", stockH.Alerts)
			stock.GET("/:id", stockH.Get)
			stock.GET("/:id/history", stockH.History)
			stock.PATCH("/:id", stockH.Update)
			stock.POST("/bulk-delete", stockH.BulkDelete)
		}

		queueGrp := v1.Group("/queue")
		{
			queueGrp.GET("/status", queueH.Status)
			queueGrp.POST("/process", queueH.Process)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
