package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/config"
	"github.com/mind-engage/college-erp/internal/db"
	"github.com/mind-engage/college-erp/internal/logging"
)

func main() {
	bootLog := logging.New("info", "text", os.Stderr)
	if err := config.LoadEnvFile(""); err != nil {
		bootLog.WithError(err).Fatal("load env file")
	}
	cfg := config.FromEnv()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}
	defer dbh.Close()

	a, err := newApp(ctx, cfg, log, dbh)
	if err != nil {
		log.WithError(err).Fatal("wiring failed")
	}
	defer a.Close()

	go runSweeper(ctx, a.tracker, cfg.SweepInterval, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"addr": cfg.HTTPAddr,
		"mode": cfg.Mode,
		"db":   cfg.DBDriver,
	}).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server failed")
	}
}
