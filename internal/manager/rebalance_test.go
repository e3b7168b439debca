package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/modules/strategies"
)

func TestRebalance_Authorization(t *testing.T) {
	f := newFixture(t, []uint32{10000}, defaultFixtureOptions())

	_, err := f.mgr.Rebalance(testFund, 1000, 4)
	assert.ErrorIs(t, err, domain.ErrNotManagerOwner)
}

func TestRebalance_ZeroArguments(t *testing.T) {
	f := newFixture(t, []uint32{10000}, defaultFixtureOptions())

	_, err := f.mgr.Rebalance(testOwner, 0, 4)
	assert.ErrorIs(t, err, domain.ErrZeroArgument)

	_, err = f.mgr.Rebalance(testOwner, 1000, 0)
	assert.ErrorIs(t, err, domain.ErrZeroArgument)
}

func TestRebalance_MovesExcessToDeficit(t *testing.T) {
	opts := defaultFixtureOptions()
	opts.vaultOpts = map[int][]strategies.Option{
		0: {strategies.WithBalance(900)},
		1: {strategies.WithBalance(100)},
	}
	f := newFixture(t, []uint32{7000, 3000}, opts)

	// Targets 700/300 with a 200bps band: vault 0 holds 186 above its
	// threshold of 714, vault 1 sits 194 below its floor of 294. One leg
	// moves the smaller of the two.
	moved, err := f.mgr.Rebalance(testOwner, 1_000_000, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(186), moved)
	assert.Equal(t, []uint64{714, 286}, vaultBalances(t, f.vaults))
}

func TestRebalance_RespectsBudget(t *testing.T) {
	opts := defaultFixtureOptions()
	opts.vaultOpts = map[int][]strategies.Option{
		0: {strategies.WithBalance(900)},
		1: {strategies.WithBalance(100)},
	}
	f := newFixture(t, []uint32{7000, 3000}, opts)

	moved, err := f.mgr.Rebalance(testOwner, 50, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), moved)
	assert.Equal(t, []uint64{850, 150}, vaultBalances(t, f.vaults))
}

func TestRebalance_RespectsLegCap(t *testing.T) {
	opts := defaultFixtureOptions()
	opts.vaultOpts = map[int][]strategies.Option{
		0: {strategies.WithBalance(400)},
		1: {strategies.WithBalance(400)},
		2: {strategies.WithBalance(100)},
		3: {strategies.WithBalance(100)},
	}
	f := newFixture(t, []uint32{2500, 2500, 2500, 2500}, opts)

	// Two donors and two receivers, but only one leg allowed.
	moved, err := f.mgr.Rebalance(testOwner, 1_000_000, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(145), moved)

	balances := vaultBalances(t, f.vaults)
	var changed int
	for i, b := range balances {
		if b != []uint64{400, 400, 100, 100}[i] {
			changed++
		}
	}
	assert.Equal(t, 2, changed)
}

func TestRebalance_PrefersLiquidDonorOnTie(t *testing.T) {
	opts := defaultFixtureOptions()
	opts.illiquid = map[int]bool{0: true}
	opts.vaultOpts = map[int][]strategies.Option{
		0: {strategies.WithBalance(350)}, // illiquid donor
		1: {strategies.WithBalance(350)}, // liquid donor, equal excess
		2: {strategies.WithBalance(150)},
		3: {strategies.WithBalance(150)},
	}
	f := newFixture(t, []uint32{2500, 2500, 2500, 2500}, opts)

	moved, err := f.mgr.Rebalance(testOwner, 1_000_000, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(95), moved)

	balances := vaultBalances(t, f.vaults)
	// The liquid donor was drained; the illiquid one was left alone.
	assert.Equal(t, uint64(350), balances[0])
	assert.Equal(t, uint64(255), balances[1])
}

func TestRebalance_NoopWithinBand(t *testing.T) {
	opts := defaultFixtureOptions()
	opts.vaultOpts = map[int][]strategies.Option{
		0: {strategies.WithBalance(505)},
		1: {strategies.WithBalance(495)},
	}
	f := newFixture(t, []uint32{5000, 5000}, opts)

	moved, err := f.mgr.Rebalance(testOwner, 1_000_000, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), moved)
	assert.Equal(t, []uint64{505, 495}, vaultBalances(t, f.vaults))
}

func TestRebalance_DepositShortfallStaysManaged(t *testing.T) {
	opts := defaultFixtureOptions()
	opts.vaultOpts = map[int][]strategies.Option{
		0: {strategies.WithBalance(900)},
		1: {strategies.WithBalance(100), strategies.WithDepositLimit(150)},
	}
	f := newFixture(t, []uint32{5000, 5000}, opts)

	// The receiver caps out at 150; whatever the donor freed beyond that
	// stays with the manager instead of vanishing.
	moved, err := f.mgr.Rebalance(testOwner, 1_000_000, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), moved)

	total, err := f.mgr.TotalAssets()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), total)

	balances := vaultBalances(t, f.vaults)
	assert.Equal(t, uint64(510), balances[0])
	assert.Equal(t, uint64(150), balances[1])
}

func TestRebalance_ReturnsZeroWhenStopped(t *testing.T) {
	opts := defaultFixtureOptions()
	opts.vaultOpts = map[int][]strategies.Option{
		0: {strategies.WithBalance(900)},
		1: {strategies.WithBalance(100)},
	}
	f := newFixture(t, []uint32{5000, 5000}, opts)

	require.NoError(t, f.mgr.EmergencyStop(testFund))

	moved, err := f.mgr.Rebalance(testOwner, 1_000_000, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), moved)
	assert.Equal(t, []uint64{900, 100}, vaultBalances(t, f.vaults))
}
