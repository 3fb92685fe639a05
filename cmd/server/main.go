// Package main runs the attendance HTTP server with the live feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qr-attendance/backend/config"
	"github.com/qr-attendance/backend/internal/attendance"
	"github.com/qr-attendance/backend/internal/events"
	"github.com/qr-attendance/backend/internal/qrcode"
	"github.com/qr-attendance/backend/internal/realtime"
	"github.com/qr-attendance/backend/internal/server"
	"github.com/qr-attendance/backend/pkg/queue"
	"github.com/qr-attendance/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	stores, err := server.OpenStores(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}

	var eventStore events.Store = stores.Events
	var rdb *redis.Client
	var hub *realtime.Hub
	deps := server.Deps{
		Codec:              qrcode.NewCodec(cfg.QR.Size, cfg.QR.Margin),
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		StaticDir:          cfg.Server.StaticDir,
		Logger:             logger,
	}

	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		eventStore = events.NewCachedStore(eventStore, rdb, time.Duration(cfg.Redis.EventsCacheTTL)*time.Second, logger)

		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub)
		if err := hub.Subscribe(pubsub); err != nil {
			logger.Warn("live feed limited to this instance", zap.Error(err))
		}
		deps.Exports = queue.NewQueue(rdb.Client, time.Duration(cfg.Redis.ExportResultTTL)*time.Second, logger)
	} else {
		logger.Info("REDIS_ADDR not set: events cache, cross-instance feed and exports disabled")
		hub = realtime.NewHub(logger, nil)
	}

	deps.Events = eventStore
	deps.Hub = hub
	deps.Attendance = attendance.NewService(stores.Attendance, hub, logger)
	router := server.NewRouter(deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("db_driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	hub.Close()
	if err := stores.Close(); err != nil {
		logger.Error("close database", zap.Error(err))
	} else {
		logger.Info("database connection closed")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
