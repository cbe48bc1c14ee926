package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brigade/internal/api"
	"brigade/internal/backend"
	"brigade/internal/board"
	"brigade/internal/config"
	"brigade/internal/dispatch"
	"brigade/internal/metrics"
	"brigade/internal/store"

	"go.uber.org/zap"
)

var configFile = flag.String("config", "", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendToken)
	st := store.NewStore(client, log)
	m := metrics.New()

	b := board.NewBoard(cfg, st, m, log)
	d := dispatch.NewDispatcher(client, st, b.ForceRefresh, log, m)
	b.AttachDispatcher(d)

	go b.Run(ctx)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(b, d, m, log).Router(),
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown error", zap.Error(err))
		}
		cancel()
	}()

	log.Info("kds display core listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("backend", cfg.BackendURL))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = parsed
	}
	return zapCfg.Build()
}
