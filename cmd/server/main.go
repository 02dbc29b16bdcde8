package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dkoski/phishguard/internal/auth"
	"github.com/dkoski/phishguard/internal/classifier"
	"github.com/dkoski/phishguard/internal/config"
	"github.com/dkoski/phishguard/internal/httpserver"
	"github.com/dkoski/phishguard/internal/ingest"
	"github.com/dkoski/phishguard/internal/mailsource"
	"github.com/dkoski/phishguard/internal/store"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("phishguard version %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	// Set log level
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Starting phishguard server")

	// Initialize user database and auth service
	userDB, err := auth.NewDB(cfg.UsersDBPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize user database")
	}
	defer userDB.Close()

	authSvc := auth.NewService(auth.NewStore(userDB, logger), cfg.JWTSecret, logger)

	// Classifier artifacts load lazily on first prediction
	cls := classifier.NewLocal(cfg.VectorizerPath, cfg.ModelPath, logger)

	// Shared in-memory mailbox store
	st := store.New(logger)

	// Mail source factory; the scheduler and each on-demand fetch build
	// independent provider handles from it
	factory := func(ctx context.Context) (ingest.Source, error) {
		return mailsource.New(ctx, cfg, logger)
	}

	ingestSvc := ingest.NewService(st, cls, factory, cfg.FetchLimit, logger)

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Run the background poller in a goroutine
	scheduler := ingest.NewScheduler(ingestSvc, factory, cfg.PollUser, cfg.PollInterval, logger)
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		if err := scheduler.Run(ctx); err != nil {
			logger.WithError(err).Error("Background poller error")
		}
	}()

	// Run the HTTP server in a goroutine
	handler := httpserver.NewHandler(authSvc, ingestSvc, st, cls, logger)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpserver.NewRouter(handler, authSvc, logger),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
	case err := <-errChan:
		logger.WithError(err).Error("Server error")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown failed")
	}
	<-pollerDone

	logger.Info("phishguard server stopped")
}
