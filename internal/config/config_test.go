package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HA_URL", "HA_TOKEN", "DEMO_MODE", "DEBUG_POLL_INTERVAL", "COST_PER_PERCENT_WINTER"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sensor.enyaq_battery_level", cfg.HABatteryEntity)
	assert.Equal(t, "sensor.enyaq_odometer", cfg.HAOdometerEntity)
	assert.Equal(t, 30*time.Second, cfg.DebugPollInterval)
	assert.Equal(t, 10*time.Second, cfg.HAConnectTimeout)
	assert.InDelta(t, 0.40, cfg.CostPerPercentWinter, 1e-9)
	assert.False(t, cfg.IsConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HA_URL", "http://ha.local:8123")
	t.Setenv("HA_TOKEN", "secret")
	t.Setenv("COST_PER_PERCENT_SUMMER", "0.25")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DEBUG_POLL_INTERVAL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsConfigured())
	assert.InDelta(t, 0.25, cfg.CostPerPercentSummer, 1e-9)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.DebugPollInterval)
}

func TestIsConfigured(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"demo mode", Config{DemoMode: true}, true},
		{"complete", Config{HAURL: "http://ha", HAToken: "t", HABatteryEntity: "b", HAOdometerEntity: "o"}, true},
		{"missing token", Config{HAURL: "http://ha", HABatteryEntity: "b", HAOdometerEntity: "o"}, false},
		{"missing entity", Config{HAURL: "http://ha", HAToken: "t", HABatteryEntity: "b"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cfg.IsConfigured())
		})
	}
}
