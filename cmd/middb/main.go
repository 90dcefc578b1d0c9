// Command middb runs the storage engine behind its HTTP API.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/middb"
	"github.com/hupe1980/middb/config"
	"github.com/hupe1980/middb/httpapi"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := pflag.String("config", "", "path to a config file (default: search ./middb.yaml)")
	config.BindFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.LoadWithFlags(*configPath, pflag.CommandLine)
	if err != nil {
		return err
	}

	logger := middb.NewJSONLogger(slog.LevelInfo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := middb.Open(ctx, cfg.StorageDir,
		middb.WithBatchSize(cfg.BatchSize),
		middb.WithIdleWait(cfg.IdleWait),
		middb.WithCapacityHint(cfg.ANNCapacityHint),
		middb.WithLogger(logger),
		middb.WithMetricsCollector(&middb.BasicMetricsCollector{}),
	)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.New(engine),
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown", "error", err)
		}
		if err := engine.Close(shutdownCtx); err != nil {
			logger.Error("engine close", "error", err)
		}
		cancel()
	}()

	logger.Info("middb listening", "addr", cfg.ListenAddr, "storageDir", cfg.StorageDir)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
