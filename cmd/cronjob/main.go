package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	ophttp "reservation-settlement-backend/internal/api/http"
	"reservation-settlement-backend/internal/config"
	"reservation-settlement-backend/internal/jobs"
	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository/postgres"
	"reservation-settlement-backend/internal/scheduler"
	"reservation-settlement-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit ('expire-stale-negotiations', 'flag-overdue-financing', 'all')")
	initSchema := flag.Bool("init-schema", false, "Create missing tables and indexes before starting")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting reservation settlement cronjob runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if *initSchema {
		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		logger.Info("Database schema applied")
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Services
	negotiationService := service.NewNegotiationService(store, &store.Repositories, cfg.NegotiationWindow(), nil)
	financingService := service.NewFinancingService(store, &store.Repositories, nil)

	jobServices := &jobs.Services{
		Negotiation: negotiationService,
		Financing:   financingService,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce); err != nil {
			logger.Error("Job execution failed", "job", *runOnce, "error", err)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start ops server
	var opsServer *http.Server
	if cfg.Ops.Port > 0 {
		opsServer = &http.Server{
			Addr:              cfg.GetOpsAddress(),
			Handler:           ophttp.NewRouter(jobRunner, db),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Ops server listening", "addr", opsServer.Addr)
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Ops server failed", "error", err)
			}
		}()
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	if opsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := opsServer.Shutdown(ctx); err != nil {
			logger.Error("Ops server shutdown failed", "error", err)
		}
		cancel()
	}
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	ctx := context.Background()

	var results []jobs.Result
	if jobName == "all" {
		results = jobRunner.RunAll(ctx)
	} else {
		res, err := jobRunner.Run(ctx, jobName)
		if err != nil {
			fmt.Printf("Available jobs:\n")
			for _, name := range jobRunner.Names() {
				fmt.Printf("  - %s\n", name)
			}
			fmt.Printf("  - all\n")
			return err
		}
		results = []jobs.Result{res}
	}

	for _, res := range results {
		if res.Error != "" {
			return fmt.Errorf("%s: %s", res.Job, res.Error)
		}
		if res.Failed > 0 {
			return fmt.Errorf("%s: %d of %d records failed", res.Job, res.Failed, res.Candidates)
		}
	}
	return nil
}
