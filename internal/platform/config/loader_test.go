package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults apply without file or env", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "09:00", cfg.Shift.Start)
		assert.Equal(t, 10, cfg.Shift.GraceMinutes)
		assert.Less(t, cfg.Trust.MediumThreshold, cfg.Trust.HighThreshold)
	})

	t.Run("env overrides defaults", func(t *testing.T) {
		t.Setenv("PUNCHTRUST_ADDR", ":9999")
		t.Setenv("PUNCHTRUST_TIMEZONE", "UTC")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ":9999", cfg.Addr)
	})

	t.Run("rejects inverted trust thresholds", func(t *testing.T) {
		cfg := Default()
		cfg.Trust.HighThreshold = cfg.Trust.MediumThreshold
		assert.Error(t, cfg.validate())
	})

	t.Run("rejects unknown timezone", func(t *testing.T) {
		cfg := Default()
		cfg.Timezone = "Mars/Olympus_Mons"
		assert.Error(t, cfg.validate())
	})
}
