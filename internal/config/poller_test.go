package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerConfig_Validate(t *testing.T) {
	t.Run("all fields set", func(t *testing.T) {
		cfg := &PollerConfig{
			StatsPollingInterval:     3 * time.Minute,
			ReconcilePollingInterval: 30 * time.Second,
		}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 3*time.Minute, cfg.StatsPollingInterval)
		assert.Equal(t, 30*time.Second, cfg.ReconcilePollingInterval)
	})

	t.Run("not set - should use defaults", func(t *testing.T) {
		cfg := &PollerConfig{}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, defaultStatsPollingInterval, cfg.StatsPollingInterval)
		assert.Equal(t, defaultReconcilePollingInterval, cfg.ReconcilePollingInterval)
	})

	t.Run("negative - should error", func(t *testing.T) {
		cfg := &PollerConfig{StatsPollingInterval: -1 * time.Minute}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stats-polling-interval must not be negative")
	})
}
