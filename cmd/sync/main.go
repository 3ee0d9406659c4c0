package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"solemarket-pipeline/internal/config"
	"solemarket-pipeline/internal/ingestion"
	"solemarket-pipeline/internal/normalization"
	"solemarket-pipeline/internal/observability"
	"solemarket-pipeline/internal/provider/peer"
	"solemarket-pipeline/internal/provider/resale"
	"solemarket-pipeline/internal/snapshot"
	"solemarket-pipeline/internal/storage"
	"solemarket-pipeline/internal/storage/memory"
	"solemarket-pipeline/internal/storage/migrations"
	pgstore "solemarket-pipeline/internal/storage/postgres"
)

func main() {
	provider := flag.String("provider", "all", "Provider to sync: resale, peer, or all")
	products := flag.String("products", "", "Comma-separated resale product IDs")
	catalogs := flag.String("catalogs", "", "Comma-separated peer catalog IDs")
	once := flag.Bool("once", false, "Run a single sync and exit instead of looping")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	productIDs := splitList(*products)
	catalogIDs := splitList(*catalogs)
	if (*provider == "resale" || *provider == "all") && len(productIDs) == 0 {
		logger.Fatal("no resale products specified, use --products")
	}
	if (*provider == "peer" || *provider == "all") && len(catalogIDs) == 0 {
		logger.Fatal("no peer catalog items specified, use --catalogs")
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

	err := run(ctx, cfg, logger, *provider, productIDs, catalogIDs, *once, *useMemory)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.WithError(err).Fatal("sync failed")
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, provider string, productIDs, catalogIDs []string, once, useMemory bool) error {
	var snapshotStore storage.RawSnapshotStore = memory.NewRawSnapshotStore()
	var recordStore storage.MarketRecordStore = memory.NewMarketRecordStore()

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		snapshotStore = pgstore.NewRawSnapshotStore(pool)
		recordStore = pgstore.NewMarketRecordStore(pool)
	}

	recorder := snapshot.NewRecorder(snapshotStore, logger)

	var resaleSyncer *ingestion.ResaleSyncer
	if provider == "resale" || provider == "all" {
		client := resale.NewClient(cfg.ResaleBaseURL, cfg.ResaleAPIKey)
		resaleSyncer = ingestion.NewResaleSyncer(client, recorder, recordStore, logger)
	}

	var peerSyncer *ingestion.PeerSyncer
	if provider == "peer" || provider == "all" {
		client := peer.NewClient(cfg.PeerBaseURL, cfg.PeerAPIKey)
		opts := normalization.AvailabilityOptions{IncludeConsigned: cfg.IncludeConsigned}
		peerSyncer = ingestion.NewPeerSyncer(client, client, recorder, recordStore, opts, logger)
	}

	for {
		if resaleSyncer != nil {
			if _, err := resaleSyncer.Sync(ctx, productIDs); err != nil {
				return err
			}
		}
		if peerSyncer != nil {
			if _, err := peerSyncer.Sync(ctx, catalogIDs); err != nil {
				return err
			}
		}

		if once {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.SyncInterval):
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
