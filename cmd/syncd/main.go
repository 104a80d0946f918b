package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"stridesync/internal/config"
	"stridesync/internal/events"
	"stridesync/internal/logging"
	"stridesync/internal/metrics"
	"stridesync/internal/queue"
	"stridesync/internal/remote"
	"stridesync/internal/repository"
	"stridesync/internal/store"
	"stridesync/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := baseLogger.With().Str("component", "syncd").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, err := store.Open(cfg.Database.Path, baseLogger)
	if err != nil {
		return err
	}
	defer local.Close()

	metrics.Register()

	q, err := openQueue(ctx, cfg, baseLogger)
	if err != nil {
		return err
	}

	remoteClient := remote.NewClient(remote.ClientConfig{
		BaseURL: cfg.Remote.BaseURL,
		Token:   cfg.Remote.Token,
		RPS:     cfg.Remote.RPS,
		Burst:   cfg.Remote.Burst,
		Timeout: time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
	}, baseLogger)

	bus := events.NewBus()
	bus.Subscribe(events.EventSyncStatusChanged, func(event *events.Event) error {
		logger.Debug().RawJSON("status", event.Payload).Msg("sync status changed")
		return nil
	})

	orch := syncer.New(remoteClient, local, q, bus, cfg.RetryConfig(), baseLogger)

	loop := syncer.NewRetryLoop(orch, q, remoteClient, cfg.RetryConfig(), cfg.Interval(), baseLogger)
	go loop.Start(ctx)

	if cfg.Monitoring.PrometheusEnabled {
		go serveMetrics(cfg.Monitoring.PrometheusPort, &logger)
	}

	// Catch up on anything that went dirty while the daemon was down.
	go orch.SyncDirty(ctx)

	logger.Info().Msg("syncd running")
	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}

// openQueue loads the pending-operation queue from redis when configured,
// degrading to a memory-backed blob store otherwise.
func openQueue(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*queue.Queue, error) {
	var blobs repository.BlobStore = repository.NewMemoryBlobStore()
	if cfg.Redis.Address != "" {
		client := repository.NewRedisClient(repository.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		blobs = repository.NewFailoverBlobStore(
			repository.NewRedisBlobStore(client),
			repository.NewMemoryBlobStore(),
			logger,
		)
	} else {
		logger.Warn().Msg("redis not configured; pending queue will not survive restarts")
	}
	return queue.Load(ctx, blobs, logger)
}

func serveMetrics(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
