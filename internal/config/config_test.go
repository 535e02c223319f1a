package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, "8080", cfg.ServerPort)
	require.Equal(t, "development", cfg.Env)
	require.False(t, cfg.IsProduction())
	require.False(t, cfg.PresenceStrict)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PRESENCE_STRICT", "true")

	cfg := Load()

	require.Equal(t, "9090", cfg.ServerPort)
	require.True(t, cfg.IsProduction())
	require.True(t, cfg.PresenceStrict)
}
