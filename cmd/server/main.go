package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/accounting"
	accthandler "github.com/taplab/salesdash/internal/accounting/handler"
	"github.com/taplab/salesdash/internal/app"
	"github.com/taplab/salesdash/internal/config"
	"github.com/taplab/salesdash/internal/handler"
	"github.com/taplab/salesdash/internal/router"
	"github.com/taplab/salesdash/internal/ws"
)

func main() {
	// A missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sales := app.NewSales(ctx, cfg, logger)
	defer sales.Close()

	hub := ws.NewHub()
	go hub.Run(ctx)
	poller := ws.NewPoller(hub, sales.Service, cfg.LiveInterval, logger)
	go poller.Run(ctx)

	ledger := accounting.NewClient(cfg.Tripletex, logger)

	r := router.New(cfg, logger, router.Handlers{
		Sales:  handler.NewSalesHandler(sales.Service, sales.Location, logger),
		Ledger: accthandler.NewLedgerHandler(ledger, cfg.Tripletex, sales.Location, logger),
		Live:   ws.NewLiveHandler(hub, poller, sales.Location, logger),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{
		"port":       cfg.Port,
		"timezone":   sales.Location.String(),
		"live":       cfg.HasLightspeedCredentials(),
		"snapshots":  cfg.SnapshotDir,
		"maxPeriods": cfg.Lightspeed.MaxPeriods,
	}).Info("starting server")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			config.LogError(logger, "main", "Shutdown", nil, err)
		}
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.LogError(logger, "main", "ListenAndServe", cfg.Port, err)
			os.Exit(1)
		}
	}
}
