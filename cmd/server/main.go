package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/config"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/dto"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/infra"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/netmon"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/repository"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/router"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/service"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	db, err := infra.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	// The cache is optional: a dead redis only costs read latency.
	rdb, err := infra.NewRedis(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
	}

	mailer := infra.NewMailer(cfg)

	// ── Repositories and services ────────────────────────────────────────────
	stockRepo := repository.NewStockRepository(db)
	historyRepo := repository.NewCostHistoryRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)

	syncSvc := service.NewPurchaseSyncService(stockRepo, historyRepo, purchaseRepo)
	stockSvc := service.NewStockService(stockRepo, historyRepo, rdb)

	// ── Connectivity monitor ─────────────────────────────────────────────────
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to unwrap sql.DB")
	}
	monitor := netmon.NewMonitor(sqlDB.PingContext, time.Duration(cfg.ProbeIntervalSec)*time.Second)

	// ── Durable mutation queue ───────────────────────────────────────────────
	// Executors replay queued HTTP mutations through the same services the
	// handlers use, so a replayed operation takes the exact live code path.
	registry := worker.NewExecutorRegistry()
	registry.Register(worker.KindApplyPurchase, func(ctx context.Context, op worker.QueuedOperation) error {
		var req dto.ApplyPurchaseRequest
		if err := json.Unmarshal(op.Data, &req); err != nil {
			return err
		}
		summary, err := syncSvc.ApplyPurchase(ctx, op.OwnerID, req)
		if err != nil {
			return err
		}
		return firstFailure(summary)
	})
	registry.Register(worker.KindReversePurchase, func(ctx context.Context, op worker.QueuedOperation) error {
		var req dto.ApplyPurchaseRequest
		if err := json.Unmarshal(op.Data, &req); err != nil {
			return err
		}
		summary, err := syncSvc.ReversePurchase(ctx, op.OwnerID, req)
		if err != nil {
			return err
		}
		return firstFailure(summary)
	})
	registry.Register(worker.KindUpdateStockItem, func(ctx context.Context, op worker.QueuedOperation) error {
		var req struct {
			ID string `json:"id"`
			dto.UpdateStockItemRequest
		}
		if err := json.Unmarshal(op.Data, &req); err != nil {
			return err
		}
		id, err := uuid.Parse(req.ID)
		if err != nil {
			return err
		}
		_, err = stockSvc.UpdateItem(ctx, op.OwnerID, id, req.UpdateStockItemRequest)
		return err
	})
	registry.Register(worker.KindBulkDeleteStock, func(ctx context.Context, op worker.QueuedOperation) error {
		var req dto.BulkDeleteRequest
		if err := json.Unmarshal(op.Data, &req); err != nil {
			return err
		}
		_, err := stockSvc.BulkDelete(ctx, op.OwnerID, req.IDs)
		return err
	})

	var notifier worker.Notifier = worker.LogNotifier{}
	if mailer.Enabled() {
		notifier = worker.NewMailNotifier(mailer)
	}

	queue := worker.NewDurableQueue(
		worker.NewFileStore(cfg.QueuePath),
		registry,
		notifier,
		monitor,
		worker.Options{
			MaxRetries:  cfg.QueueMaxRetries,
			RepassDelay: time.Duration(cfg.QueueRepassSecs) * time.Second,
		},
	)
	defer queue.Close()

	// Replay the backlog every time connectivity comes back.
	monitor.OnTransition(func(online bool) {
		if online {
			queue.ProcessQueue(context.Background())
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor.Start(ctx)
	defer monitor.Stop()

	r := router.New(cfg, db, rdb, monitor, queue, syncSvc, stockSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("inventory sync engine listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// firstFailure maps a replayed purchase summary onto the queue's
// success/failure contract. Only an all-retryable, nothing-applied pass stays
// queued; once any line has been applied a retry would double-apply it, so
// remaining failures are terminal and reported through the notifier.
func firstFailure(summary *dto.ApplySummary) error {
	if len(summary.Failed) == 0 {
		return nil
	}
	if summary.AppliedCount == 0 {
		for _, out := range summary.Failed {
			if out.Retryable {
				return fmt.Errorf("%w: %s", netmon.ErrOffline, out.Message)
			}
		}
	}
	return fmt.Errorf("replay failed: %s", summary.Failed[0].Message)
}
