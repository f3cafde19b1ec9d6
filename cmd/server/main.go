package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/klimaz/starlotto/internal/auth"
	"github.com/klimaz/starlotto/internal/config"
	"github.com/klimaz/starlotto/internal/handler"
	"github.com/klimaz/starlotto/internal/metrics"
	"github.com/klimaz/starlotto/internal/registry"
	"github.com/klimaz/starlotto/internal/service"
	"github.com/klimaz/starlotto/internal/storage"
	"github.com/klimaz/starlotto/internal/storage/sqlite"
	"github.com/klimaz/starlotto/internal/telegram"
	"github.com/klimaz/starlotto/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize ledger", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("ledger initialized", "database", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(cfg.RoomCapacity)
	if err := recoverRooms(ctx, store, reg); err != nil {
		slog.Error("ledger reconciliation failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	metrics.RegisterOpenRooms(prometheus.DefaultRegisterer, reg.OpenRoomCount)

	picker, err := service.NewPicker()
	if err != nil {
		slog.Error("failed to seed draw source", "error", err)
		os.Exit(1)
	}

	tgClient := telegram.NewClient(cfg.BotAPIURL, cfg.BotToken)
	notifier := telegram.NewNotifier(tgClient)

	admission := service.NewAdmissionService(reg, store, cfg, m)
	engine := service.NewSettlementEngine(reg, store, picker, cfg.WinnerShare, m)
	stats := service.NewStatsService(store)
	scheduler := service.NewScheduler(reg, engine, store, notifier, m, cfg.SweepInterval, cfg.StaleRoomAge)

	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.AdminTokenTTL)
	} else {
		slog.Warn("JWT_SECRET not set, admin routes disabled")
	}

	if cfg.WebhookURL != "" && cfg.BotToken != "" {
		if err := tgClient.SetWebhook(ctx, cfg.WebhookURL+"/webhook"); err != nil {
			slog.Warn("webhook registration failed", "error", err)
		} else {
			slog.Info("webhook registered", "url", cfg.WebhookURL+"/webhook")
		}
	}

	go scheduler.Run(ctx)

	router := gin.Default()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	httpHandler := handler.NewHTTPHandler(cfg, reg, admission, stats, store, tgClient, jwtManager)
	httpHandler.RegisterRoutes(router)

	srv := &http.Server{Addr: cfg.Addr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// recoverRooms rebuilds the in-memory registry from the ledger's last
// durable snapshots. Rooms that were drawing when the process died are
// re-entered as drawing: no draw ever reached the ledger for them, so
// the next scheduler sweep settles them fresh.
func recoverRooms(ctx context.Context, store storage.Store, reg *registry.Registry) error {
	rooms, err := store.ListUnfinishedRooms(ctx)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		reg.Restore(room)
	}
	if len(rooms) > 0 {
		slog.Info("recovered unfinished rooms from ledger", "count", len(rooms))
	}
	return nil
}
