// Command worker runs the job-queue loop: it polls the jobs table,
// claims and executes work, and delivers completion callbacks, grounded
// on the pack's job-worker entrypoint shape (worker identity, graceful
// shutdown on SIGINT/SIGTERM) rather than the teacher's chat-only
// cmd/server/main.go, since the teacher never ran a background worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/config"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/jobqueue"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/logger"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/orchestrator"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/pipeline"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/provider"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository/postgres"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/sessionlock"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/tools"
)

// workerIdentity returns "host:pid", the identity stamped into
// jobs.locked_by so a stale lease can be traced back to the process that
// held it.
func workerIdentity() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}

// providerTimeout mirrors cmd/server/main.go's helper of the same name;
// the worker needs its own orchestrator to run the pipeline it executes
// SEND_MESSAGE jobs against.
func providerTimeout(cfg *config.AppConfig) orchestrator.TimeoutPolicy {
	return func(name domain.ProviderName) time.Duration {
		switch name {
		case domain.ProviderVendorA:
			return cfg.Provider.VendorATimeout
		case domain.ProviderVendorB:
			return cfg.Provider.VendorBTimeout
		default:
			return cfg.Provider.VendorATimeout
		}
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load configuration")
	}

	store, err := postgres.New(cfg.Database)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to database")
	}
	defer store.Close()

	registry := provider.NewRegistry()
	orch := orchestrator.New(registry, orchestrator.Policy{
		MaxAttempts:  cfg.Provider.MaxAttempts,
		InitialDelay: cfg.Provider.InitialDelay,
		MaxDelay:     cfg.Provider.MaxDelay,
		Multiplier:   cfg.Provider.Multiplier,
	}, providerTimeout(cfg))

	toolReg := tools.NewRegistry()
	locker := sessionlock.NewPostgresLocker(store.DB())
	pipe := pipeline.New(store, locker, orch, toolReg, cfg.Server.MaxHistory, cfg.Job.SessionLockTimeout)

	id := workerIdentity()
	worker := jobqueue.New(id, store, pipe, cfg.Job.LeaseDuration, cfg.Job.PollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	logger.Log.WithField("worker_id", id).Info("job worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Log.Info("job worker shutting down")
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			logger.Log.WithError(err).Error("job worker exited")
		}
	}
}
