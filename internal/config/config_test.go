package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "PORT", "")
	setEnv(t, "BLACKLISTED_IPS", "")
	setEnv(t, "BEHAVIOR_WINDOW", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultBehaviorWindow, cfg.BehaviorWindow)
	assert.Equal(t, DefaultBehaviorZThreshold, cfg.BehaviorZThreshold)
	assert.Equal(t, float64(DefaultGeoMaxKM), cfg.GeoMaxKM)
	assert.Equal(t, DefaultBlacklistedIPs, cfg.BlacklistedIPs)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "BLACKLISTED_IPS", "10.0.0.1, 10.0.0.2")
	setEnv(t, "BEHAVIOR_WINDOW", "7")
	setEnv(t, "GEO_MAX_KM", "750")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.BlacklistedIPs)
	assert.Equal(t, 7, cfg.BehaviorWindow)
	assert.Equal(t, 750.0, cfg.GeoMaxKM)
}

func TestLoad_InvalidWindow(t *testing.T) {
	setEnv(t, "BEHAVIOR_WINDOW", "1")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "BEHAVIOR_WINDOW")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "valid config",
			config:  Config{BehaviorWindow: 5, BehaviorZThreshold: 2.5, GeoMaxKM: 500},
			wantErr: "",
		},
		{
			name:    "window too small",
			config:  Config{BehaviorWindow: 0, BehaviorZThreshold: 2.5, GeoMaxKM: 500},
			wantErr: "BEHAVIOR_WINDOW",
		},
		{
			name:    "non-positive z threshold",
			config:  Config{BehaviorWindow: 5, BehaviorZThreshold: 0, GeoMaxKM: 500},
			wantErr: "BEHAVIOR_Z_THRESHOLD",
		},
		{
			name:    "non-positive distance",
			config:  Config{BehaviorWindow: 5, BehaviorZThreshold: 2.5, GeoMaxKM: -1},
			wantErr: "GEO_MAX_KM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
