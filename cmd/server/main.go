// Command server runs the gateway's HTTP API process: it wires together
// serves /api/v1, generalizing the teacher's cmd/server/main.go (mux
// wiring + enableCORS composition) from a single-user chat app onto the
// multi-tenant gateway's route table (SPEC_FULL.md §6.7).
package main

import (
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/api/httpapi"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/config"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/logger"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/orchestrator"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/pipeline"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/provider"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository/postgres"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/sessionlock"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/tools"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, err := postgres.New(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.RunMigrations("migrations"); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

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

	server := httpapi.New(store, pipe, cfg)

	logger.Log.WithField("port", cfg.Server.Port).Info("gateway server starting")
	if err := http.ListenAndServe(":"+cfg.Server.Port, server.Routes()); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// providerTimeout builds the orchestrator's per-vendor timeout lookup from
// configuration.
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
