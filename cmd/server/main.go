// Package main is the entry point for the ballast capital allocation
// manager. It wires the databases, the implementation registry, the risk
// engine and the manager itself, then serves the HTTP API and runs the
// background jobs until shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/config"
	"github.com/ballastfund/ballast/internal/database"
	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/events"
	"github.com/ballastfund/ballast/internal/manager"
	"github.com/ballastfund/ballast/internal/modules/audit"
	"github.com/ballastfund/ballast/internal/modules/registry"
	"github.com/ballastfund/ballast/internal/modules/risk"
	"github.com/ballastfund/ballast/internal/modules/strategies"
	"github.com/ballastfund/ballast/internal/reliability"
	"github.com/ballastfund/ballast/internal/scheduler"
	"github.com/ballastfund/ballast/internal/server"
	"github.com/ballastfund/ballast/pkg/logger"
)

// strategySpec is one entry parsed from BALLAST_STRATEGIES.
// Format: impl:core_weight_bps:liquid, comma-separated, e.g.
// "vault-alpha:6000:liquid,vault-beta:4000:illiquid"
type strategySpec struct {
	impl    domain.ImplementationID
	coreBps uint32
	liquid  bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("asset", string(cfg.Asset)).
		Int("port", cfg.Port).
		Msg("Starting ballast")

	// Two-database architecture:
	// - audit.db: immutable audit trail + risk snapshots (ledger profile)
	// - registry.db: implementation registry (standard profile)
	auditDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "audit.db"),
		Profile: database.ProfileLedger,
		Name:    "audit",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audit database")
	}
	defer auditDB.Close()

	registryDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "registry.db"),
		Profile: database.ProfileStandard,
		Name:    "registry",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open registry database")
	}
	defer registryDB.Close()

	// Repositories and schemas
	auditRepo := audit.NewRepository(auditDB.Conn(), log)
	if err := auditRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audit schema")
	}
	riskRepo := risk.NewSnapshotRepository(auditDB.Conn(), log)
	if err := riskRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize risk schema")
	}
	registryRepo := registry.NewRepository(registryDB.Conn(), log)
	if err := registryRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize registry schema")
	}

	// Event bus with the audit recorder attached: every manager event
	// lands in the audit trail.
	bus := events.NewBus(log)
	audit.NewRecorder(auditRepo, bus, log)

	registryService := registry.NewService(registryRepo, log)
	riskEngine := risk.NewEngine(riskRepo, log)

	mgr := manager.New(manager.Config{
		Asset:      cfg.Asset,
		Registry:   registryService,
		RiskEngine: riskEngine,
		TiltParams: cfg.TiltParams,
		BandParams: cfg.BandParams,
		Fund:       cfg.Fund,
		Owner:      cfg.Owner,
	}, bus, log)

	if err := bindStrategies(mgr, registryRepo, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind strategies")
	}

	// Background jobs
	sched := scheduler.New(log)
	addJob := func(schedule string, job scheduler.Job) {
		if err := sched.AddJob(schedule, job); err != nil {
			log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to schedule job")
		}
	}
	addJob(cfg.RiskRefreshSchedule, scheduler.NewRiskRefreshJob(mgr, log))
	addJob(cfg.DriftMonitorSchedule, scheduler.NewDriftMonitorJob(mgr, log))
	addJob(cfg.WALCheckpointSchedule, scheduler.NewWALCheckpointJob(
		[]*database.DB{auditDB, registryDB}, log))

	if cfg.Backup != nil && cfg.Backup.Enabled {
		storage, err := reliability.NewStorageClient(context.Background(), reliability.StorageConfig{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup storage client")
		}
		backupSvc := reliability.NewBackupService(storage, cfg.DataDir, cfg.Backup.RetainCount, log)
		dbPaths := map[string]string{
			"audit":    auditDB.Path(),
			"registry": registryDB.Path(),
		}
		addJob(cfg.BackupSchedule, scheduler.NewBackupJob(backupSvc, dbPaths, log))
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backups enabled")
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{Port: cfg.Port},
		mgr, auditRepo, riskRepo, registryRepo, bus, log)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Ballast stopped")
}

// bindStrategies seeds the registry from BALLAST_STRATEGIES and
// initializes the manager with one simulated vault per entry. A real
// deployment would swap the vaults for strategy adapters; the manager
// only sees the Strategy interface either way.
func bindStrategies(mgr *manager.Manager, repo *registry.Repository, cfg *config.Config, log zerolog.Logger) error {
	raw := os.Getenv("BALLAST_STRATEGIES")
	if raw == "" {
		raw = "vault-alpha:7000:liquid,vault-beta:3000:illiquid"
	}

	specs, err := parseStrategySpecs(raw)
	if err != nil {
		return err
	}

	strats := make([]domain.Strategy, 0, len(specs))
	weights := make([]uint32, 0, len(specs))
	for _, spec := range specs {
		if err := repo.Upsert(registry.Implementation{
			ID:     spec.impl,
			Active: true,
			Liquid: spec.liquid,
			Assets: []domain.Asset{cfg.Asset},
		}); err != nil {
			return err
		}
		strats = append(strats, strategies.NewSimVault(
			domain.StrategyID(string(spec.impl)+":"+string(cfg.Asset)),
			spec.impl,
		))
		weights = append(weights, spec.coreBps)
	}

	if err := mgr.Initialize(strats, weights); err != nil {
		return err
	}

	log.Info().Int("strategies", len(specs)).Msg("Strategies bound")
	return nil
}

// parseStrategySpecs parses the impl:weight:liquidity list
func parseStrategySpecs(raw string) ([]strategySpec, error) {
	var specs []strategySpec
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid strategy spec %q (want impl:weight_bps:liquid)", entry)
		}
		weight, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid weight in strategy spec %q: %w", entry, err)
		}
		var liquid bool
		switch parts[2] {
		case "liquid":
			liquid = true
		case "illiquid":
			liquid = false
		default:
			return nil, fmt.Errorf("invalid liquidity in strategy spec %q (want liquid|illiquid)", entry)
		}
		specs = append(specs, strategySpec{
			impl:    domain.ImplementationID(parts[0]),
			coreBps: uint32(weight),
			liquid:  liquid,
		})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no strategies configured")
	}
	return specs, nil
}
