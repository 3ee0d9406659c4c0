package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"solemarket-pipeline/internal/config"
	"solemarket-pipeline/internal/observability"
	"solemarket-pipeline/internal/projection"
	chstore "solemarket-pipeline/internal/storage/clickhouse"
	"solemarket-pipeline/internal/storage/migrations"
	pgstore "solemarket-pipeline/internal/storage/postgres"
)

func main() {
	once := flag.Bool("once", false, "Run a single rebuild and exit instead of looping")
	interval := flag.Duration("interval", time.Minute, "Rebuild interval when looping")
	flag.Parse()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	if cfg.ListenAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.WithField("addr", cfg.ListenAddr).Info("starting metrics server")
			if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig).Info("shutting down")
		cancel()

		select {
		case <-sigCh:
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err := run(ctx, cfg, logger, *once, *interval)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.WithError(err).Fatal("projection failed")
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, once bool, interval time.Duration) error {
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("run postgres migrations: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		return fmt.Errorf("run clickhouse migrations: %w", err)
	}

	rebuilder := projection.NewRebuilder(
		pgstore.NewMarketRecordStore(pool),
		chstore.NewLatestSnapshotStore(conn),
		logger,
	)

	for {
		err := rebuilder.Rebuild(ctx)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if once {
			return err
		}
		if err != nil {
			logger.WithError(err).Error("projection rebuild failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
