package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearTables(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DEVICES_TABLE", "API_KEYS_TABLE", "PROCESSED_BATCHES_TABLE",
		"DEVICE_READINGS_TABLE", "API_KEY_PEPPER", "ADMIN_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func TestRequireDataPlaneReportsAllMissingValues(t *testing.T) {
	clearTables(t)
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.RequireDataPlane()
	require.Error(t, err)
	for _, want := range []string{"DEVICES_TABLE", "API_KEYS_TABLE", "PROCESSED_BATCHES_TABLE", "DEVICE_READINGS_TABLE", "API_KEY_PEPPER"} {
		require.True(t, strings.Contains(err.Error(), want), "expected %q in error %q", want, err.Error())
	}
}

func TestRequireDataPlaneSatisfied(t *testing.T) {
	clearTables(t)
	t.Setenv("DEVICES_TABLE", "devices")
	t.Setenv("API_KEYS_TABLE", "api_keys")
	t.Setenv("PROCESSED_BATCHES_TABLE", "processed_batches")
	t.Setenv("DEVICE_READINGS_TABLE", "device_readings")
	t.Setenv("API_KEY_PEPPER", "pepper")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.RequireDataPlane())
}

func TestRequireControlPlaneMissingAdminToken(t *testing.T) {
	clearTables(t)
	t.Setenv("DEVICES_TABLE", "devices")
	t.Setenv("API_KEYS_TABLE", "api_keys")
	t.Setenv("DEVICE_READINGS_TABLE", "device_readings")

	cfg, err := Load()
	require.NoError(t, err)
	err = cfg.RequireControlPlane()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ADMIN_TOKEN")
}

func TestDefaults(t *testing.T) {
	clearTables(t)
	t.Setenv("CORS_ALLOWED_ORIGIN", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("BOLT_DB_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "*", cfg.CORSAllowedOrigin)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "./data/gateway.db", cfg.BoltDBPath)
}
