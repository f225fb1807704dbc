package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		old, existed := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if existed {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestValidateEnv_DefaultsWhenUnset(t *testing.T) {
	clearEnv(t, "PORT", "GO_ENV", "LOG_LEVEL", "BUS_ENABLED", "TRACING_ENABLED")

	cfg, err := ValidateEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "production", cfg.GoEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.BusEnabled)
	assert.False(t, cfg.TracingEnabled)
}

func TestValidateEnv_RejectsInvalidPort(t *testing.T) {
	clearEnv(t, "PORT")
	os.Setenv("PORT", "not-a-port")

	_, err := ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestValidateEnv_TracingRequiresEndpoint(t *testing.T) {
	clearEnv(t, "TRACING_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT")
	os.Setenv("TRACING_ENABLED", "true")

	_, err := ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func TestLookup_ReflectsSetEnvironmentVariable(t *testing.T) {
	clearEnv(t, "STUN_SERVERS")
	os.Setenv("STUN_SERVERS", "stun:a.example.com")

	cfg, err := ValidateEnv()
	require.NoError(t, err)

	v, ok := cfg.Lookup("STUN_SERVERS")
	assert.True(t, ok)
	assert.Equal(t, "stun:a.example.com", v)
}

func TestLookup_UnknownKeyReturnsFalse(t *testing.T) {
	cfg := &Config{}
	_, ok := cfg.Lookup("SOMETHING_ELSE")
	assert.False(t, ok)
}
