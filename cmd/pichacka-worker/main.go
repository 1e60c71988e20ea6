package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	appamqp "github.com/Martyparty1988/PichackaTracker/internal/amqp"
	"github.com/Martyparty1988/PichackaTracker/internal/cli"
	applog "github.com/Martyparty1988/PichackaTracker/internal/log"
	"github.com/Martyparty1988/PichackaTracker/internal/worker"
)

const archiveBatchSize = 100

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting pichacka-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	archiveWorker := worker.NewArchiveWorker(repo, archiveBatchSize)

	// Catch up on work logs whose messages were lost while down.
	if err := archiveWorker.StartupBacklogCheck(ctx); err != nil {
		logger.Error("Startup backlog check failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeWorkLogSettled(gctx, func(msg *appamqp.WorkLogSettledMessage) error {
			return archiveWorker.HandleSettledMessage(gctx, msg)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
