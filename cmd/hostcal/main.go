package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Timezone names must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/dukerupert/hostcal/internal/archive"
	"github.com/dukerupert/hostcal/internal/config"
	"github.com/dukerupert/hostcal/internal/database"
	"github.com/dukerupert/hostcal/internal/kafka"
	"github.com/dukerupert/hostcal/internal/logging"
	"github.com/dukerupert/hostcal/internal/notify"
	"github.com/dukerupert/hostcal/internal/reconcile"
	"github.com/dukerupert/hostcal/internal/scheduler"
	"github.com/dukerupert/hostcal/internal/server"
	"github.com/dukerupert/hostcal/internal/store"
	"github.com/dukerupert/hostcal/internal/syncer"
	ws "github.com/dukerupert/hostcal/internal/websocket"
)

func main() {
	configPath := flag.String("config", os.Getenv("HOSTCAL_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	hub := ws.NewHub(logger.With("component", "websocket"))
	publisher := notify.NewMulti(logger.With("component", "notify"), hub)

	var producer *kafka.Producer
	if cfg.KafkaEnabled() {
		producer, err = kafka.NewProducer(cfg.KafkaProducer(), logger.With("component", "kafka"))
		if err != nil {
			slog.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		publisher.Add(producer)
		slog.Info("kafka publishing enabled", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	// A nil *Archive stores nothing.
	feedArchive := archive.New(cfg.ArchiveStorage())
	if feedArchive != nil {
		slog.Info("feed archive enabled", "bucket", cfg.Archive.Bucket)
	}

	pipeline := syncer.New(
		cfg.Feed(),
		store.NewListingStore(db),
		reconcile.New(store.NewBookingStore(db)),
		store.NewSyncRunStore(db),
		publisher,
		feedArchive,
		logger.With("component", "syncer"),
	)

	srv := server.New(db, pipeline, hub, publisher, logger)

	var sched *scheduler.Scheduler
	if cfg.SyncCron != "" {
		listingID, _ := pipeline.DefaultListingID()
		sched, err = scheduler.New(cfg.SyncCron, listingID, pipeline, logger.With("component", "scheduler"))
		if err != nil {
			slog.Error("failed to create sync scheduler", "error", err)
			os.Exit(1)
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A sync request waits on the feed fetch.
		WriteTimeout:      cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if sched != nil {
		sched.Start(bgCtx)
	}

	// Background cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("hostcal starting", "addr", cfg.Addr(), "db", cfg.DBPath, "timezone", cfg.Timezone)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	if sched != nil {
		sched.Stop()
	}
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			slog.Error("close kafka producer", "error", err)
		}
	}
}
