package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimVault_DepositAndWithdraw(t *testing.T) {
	v := NewSimVault("vault-a", "impl-a")

	accepted, err := v.Deposit(1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), accepted)

	withdrawn, err := v.Withdraw(400, "fund")
	require.NoError(t, err)
	assert.Equal(t, uint64(400), withdrawn)

	balance, err := v.TotalAssets()
	require.NoError(t, err)
	assert.Equal(t, uint64(600), balance)
}

func TestSimVault_WithdrawBoundedByBalance(t *testing.T) {
	v := NewSimVault("vault-a", "impl-a", WithBalance(100))

	withdrawn, err := v.Withdraw(500, "fund")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), withdrawn)

	balance, err := v.TotalAssets()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestSimVault_WithdrawLimit(t *testing.T) {
	v := NewSimVault("vault-a", "impl-a", WithBalance(1000), WithWithdrawLimit(250))

	maxW, err := v.MaxPossibleWithdraw("fund")
	require.NoError(t, err)
	assert.Equal(t, uint64(250), maxW)

	withdrawn, err := v.Withdraw(600, "fund")
	require.NoError(t, err)
	assert.Equal(t, uint64(250), withdrawn)
}

func TestSimVault_DepositLimit(t *testing.T) {
	v := NewSimVault("vault-a", "impl-a", WithBalance(80), WithDepositLimit(100))

	accepted, err := v.Deposit(50)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), accepted)

	// Vault is full now
	accepted, err = v.Deposit(10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), accepted)
}

func TestSimVault_Accrue(t *testing.T) {
	v := NewSimVault("vault-a", "impl-a", WithBalance(1000))
	v.Accrue(50)

	balance, err := v.TotalAssets()
	require.NoError(t, err)
	assert.Equal(t, uint64(1050), balance)
}

func TestSimVault_FailingMode(t *testing.T) {
	v := NewSimVault("vault-a", "impl-a", WithBalance(1000))
	v.SetFailing(true)

	_, err := v.TotalAssets()
	assert.Error(t, err)
	_, err = v.Deposit(10)
	assert.Error(t, err)
	_, err = v.Withdraw(10, "fund")
	assert.Error(t, err)
	_, err = v.MaxPossibleWithdraw("fund")
	assert.Error(t, err)

	v.SetFailing(false)
	balance, err := v.TotalAssets()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), balance)
}
