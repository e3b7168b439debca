package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfund/ballast/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BALLAST_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, domain.Asset("USDC"), cfg.Asset)
	assert.Equal(t, domain.Principal("fund"), cfg.Fund)
	assert.Equal(t, domain.Principal("owner"), cfg.Owner)

	assert.Equal(t, uint32(1500), cfg.TiltParams.MaxTiltBps)
	assert.Equal(t, uint32(500), cfg.TiltParams.MaxStepBps)
	assert.Equal(t, 6*time.Hour, cfg.TiltParams.TiltCooldown)

	assert.Equal(t, uint32(200), cfg.BandParams.RebalanceBandBps)
	assert.Equal(t, uint32(50), cfg.BandParams.MinRebalanceBandBps)
	assert.Equal(t, uint32(1000), cfg.BandParams.MaxRebalanceBandBps)
	assert.Equal(t, 24*time.Hour, cfg.BandParams.BandUpdateCooldown)

	assert.False(t, cfg.Backup.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BALLAST_DATA_DIR", t.TempDir())
	t.Setenv("BALLAST_PORT", "9000")
	t.Setenv("BALLAST_ASSET", "DAI")
	t.Setenv("BALLAST_MAX_TILT_BPS", "2000")
	t.Setenv("BALLAST_TILT_COOLDOWN", "30m")
	t.Setenv("BALLAST_BAND_BPS", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, domain.Asset("DAI"), cfg.Asset)
	assert.Equal(t, uint32(2000), cfg.TiltParams.MaxTiltBps)
	assert.Equal(t, 30*time.Minute, cfg.TiltParams.TiltCooldown)
	assert.Equal(t, uint32(100), cfg.BandParams.RebalanceBandBps)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Asset: "USDC",
			Fund:  "fund",
			Owner: "owner",
			BandParams: domain.RebalanceBandParameters{
				RebalanceBandBps:    200,
				MinRebalanceBandBps: 50,
				MaxRebalanceBandBps: 1000,
			},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("empty asset fails", func(t *testing.T) {
		cfg := valid()
		cfg.Asset = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty principals fail", func(t *testing.T) {
		cfg := valid()
		cfg.Fund = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("inverted band bounds fail", func(t *testing.T) {
		cfg := valid()
		cfg.BandParams.MinRebalanceBandBps = 2000
		assert.Error(t, cfg.Validate())
	})

	t.Run("band outside bounds fails", func(t *testing.T) {
		cfg := valid()
		cfg.BandParams.RebalanceBandBps = 1500
		assert.Error(t, cfg.Validate())
	})

	t.Run("backup enabled without bucket fails", func(t *testing.T) {
		cfg := valid()
		cfg.Backup = &BackupConfig{Enabled: true}
		assert.Error(t, cfg.Validate())
	})
}
