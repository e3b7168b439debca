// Package main is a self-contained sandbox for the allocation manager.
// It binds simulated vaults through an in-memory registry, then drives a
// scripted sequence of deposits, yield accrual, tilts, rebalances and
// withdrawals, logging the allocation after each step. Useful for
// eyeballing routing behavior without a database or HTTP server.
package main

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/events"
	"github.com/ballastfund/ballast/internal/manager"
	"github.com/ballastfund/ballast/internal/modules/registry"
	"github.com/ballastfund/ballast/internal/modules/risk"
	"github.com/ballastfund/ballast/internal/modules/strategies"
	"github.com/ballastfund/ballast/pkg/logger"
)

const (
	fund  = domain.Principal("fund")
	owner = domain.Principal("owner")
	asset = domain.Asset("USDC")
)

func main() {
	log := logger.New(logger.Config{Level: "info", Pretty: true})

	reg := registry.NewInMemory()
	reg.Register(registry.Implementation{
		ID: "vault-alpha", Active: true, Liquid: true, Assets: []domain.Asset{asset},
	})
	reg.Register(registry.Implementation{
		ID: "vault-beta", Active: true, Liquid: true, Assets: []domain.Asset{asset},
	})
	reg.Register(registry.Implementation{
		ID: "vault-gamma", Active: true, Liquid: false, Assets: []domain.Asset{asset},
	})

	alpha := strategies.NewSimVault("alpha:USDC", "vault-alpha")
	beta := strategies.NewSimVault("beta:USDC", "vault-beta")
	gamma := strategies.NewSimVault("gamma:USDC", "vault-gamma", strategies.WithWithdrawLimit(50_000))

	bus := events.NewBus(log)
	mgr := manager.New(manager.Config{
		Asset:      asset,
		Registry:   reg,
		RiskEngine: risk.NewEngine(nil, log),
		TiltParams: domain.TiltParameters{MaxTiltBps: 1500, MaxStepBps: 500},
		BandParams: domain.RebalanceBandParameters{
			RebalanceBandBps:    200,
			MinRebalanceBandBps: 50,
			MaxRebalanceBandBps: 1000,
		},
		Fund:  fund,
		Owner: owner,
	}, bus, log)

	if err := mgr.Initialize(
		[]domain.Strategy{alpha, beta, gamma},
		[]uint32{5000, 3000, 2000},
	); err != nil {
		log.Fatal().Err(err).Msg("Initialize failed")
	}

	step(log, mgr, "deposit 1,000,000", func() error {
		return mgr.Allocate(fund, 1_000_000)
	})

	// Alpha outperforms; drift builds up
	alpha.Accrue(120_000)
	step(log, mgr, "accrue 120,000 on alpha", func() error { return nil })

	step(log, mgr, "tilt +500 alpha / -500 beta", func() error {
		return mgr.SetTilt(owner, []int32{500, -500, 0}, "alpha outperforming")
	})

	step(log, mgr, "rebalance (budget 200,000, 4 legs)", func() error {
		_, err := mgr.Rebalance(owner, 200_000, 4)
		return err
	})

	step(log, mgr, "withdraw 300,000", func() error {
		_, err := mgr.Deallocate(fund, 300_000)
		return err
	})

	step(log, mgr, "emergency stop", func() error {
		return mgr.EmergencyStop(fund)
	})

	step(log, mgr, "withdraw 100,000 after stop", func() error {
		_, err := mgr.Deallocate(fund, 100_000)
		return err
	})
}

// step runs one scripted action and logs the resulting allocation
func step(log zerolog.Logger, mgr *manager.Manager, name string, fn func() error) {
	if err := fn(); err != nil {
		log.Error().Err(err).Str("step", name).Msg("Step failed")
		os.Exit(1)
	}

	snap, err := mgr.GetAllocation()
	if err != nil {
		log.Error().Err(err).Str("step", name).Msg("Failed to read allocation")
		os.Exit(1)
	}

	ev := log.Info().Str("step", name).Uint64("total_assets", snap.TotalAssets)
	for _, row := range snap.Strategies {
		ev = ev.Uint64(string(row.ID), row.Assets)
	}
	ev.Msg("Allocation")
}
