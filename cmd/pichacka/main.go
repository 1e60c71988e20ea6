package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	appamqp "github.com/Martyparty1988/PichackaTracker/internal/amqp"
	"github.com/Martyparty1988/PichackaTracker/internal/cli"
	"github.com/Martyparty1988/PichackaTracker/internal/clock"
	apphttp "github.com/Martyparty1988/PichackaTracker/internal/http"
	"github.com/Martyparty1988/PichackaTracker/internal/ledger"
	applog "github.com/Martyparty1988/PichackaTracker/internal/log"
	"github.com/Martyparty1988/PichackaTracker/internal/services"
	"github.com/Martyparty1988/PichackaTracker/internal/timer"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx := context.Background()
	clk := clock.System{}

	snapshot, err := repo.LoadLedgerState(ctx)
	if err != nil {
		logger.Error("Failed to load ledger state", "error", err)
		os.Exit(1)
	}
	lgr := ledger.NewFromSnapshot(clk, snapshot)

	directory, err := services.LoadDirectory(ctx, repo)
	if err != nil {
		logger.Error("Failed to load person and activity catalogs", "error", err)
		os.Exit(1)
	}

	engine := timer.New(clk, directory, cfg.DefaultPersonID, cfg.DefaultActivityID)

	// The archive pipeline is optional: without a broker everything
	// still settles locally.
	var publisher services.SettlementPublisher
	amqpClient, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, settlement messages disabled", "error", err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	sessions := services.NewSessionService(engine, lgr, repo, directory, publisher, clk)
	if err := sessions.Restore(ctx); err != nil {
		logger.Error("Failed to restore timer state", "error", err)
		os.Exit(1)
	}
	finances := services.NewFinanceService(lgr, repo, clk, cfg.RentAmount)
	reports := services.NewReportService(repo, clk)

	srv := apphttp.NewServer(":"+cfg.Port, sessions, finances, reports, directory, cfg.SummaryCacheTTL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func() {
		timeoutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(timeoutCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	g, _ := errgroup.WithContext(shutdownCtx)
	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
