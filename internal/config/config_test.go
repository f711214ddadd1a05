package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/peppol-connector/internal/config"
	"github.com/rezonia/peppol-connector/internal/network"
	"github.com/rezonia/peppol-connector/internal/registry"
)

var envKeys = []string{
	"PEPPOL_ADDRESS", "PEPPOL_DEBUG", "PEPPOL_LOG_LEVEL", "PEPPOL_LOG_FORMAT",
	"PEPPOL_PROFILE", "PEPPOL_STORE", "PEPPOL_SQLITE_PATH", "PEPPOL_REDIS_URL",
	"PEPPOL_NATS_URL", "PEPPOL_NATS_SUBJECT", "PEPPOL_CALL_TIMEOUT", "PEPPOL_SML_ZONE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Address)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, config.ProfilePeppol, cfg.Profile)
	assert.Equal(t, config.StoreMemory, cfg.Store)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, network.SMLZoneProduction, cfg.SMLZone)
	assert.Empty(t, cfg.NATSURL)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PEPPOL_ADDRESS", ":9090")
	t.Setenv("PEPPOL_DEBUG", "true")
	t.Setenv("PEPPOL_PROFILE", "XRechnung")
	t.Setenv("PEPPOL_STORE", "sqlite")
	t.Setenv("PEPPOL_SQLITE_PATH", "/tmp/registry.db")
	t.Setenv("PEPPOL_CALL_TIMEOUT", "5s")
	t.Setenv("PEPPOL_NATS_URL", "nats://localhost:4222")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address)
	assert.True(t, cfg.Debug)
	assert.Equal(t, config.ProfileXRechnung, cfg.Profile)
	assert.Equal(t, config.StoreSQLite, cfg.Store)
	assert.Equal(t, "/tmp/registry.db", cfg.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.CallTimeout)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"debug", "PEPPOL_DEBUG", "maybe"},
		{"timeout", "PEPPOL_CALL_TIMEOUT", "soon"},
		{"profile", "PEPPOL_PROFILE", "facturx"},
		{"store", "PEPPOL_STORE", "postgres"},
		{"redis without url", "PEPPOL_STORE", "redis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	mem, err := (&config.Config{Store: config.StoreMemory}).OpenStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &registry.MemoryStore{}, mem)

	sql, err := (&config.Config{Store: config.StoreSQLite, SQLitePath: ":memory:"}).OpenStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &registry.SQLStore{}, sql)
	assert.NoError(t, sql.Close())

	_, err = (&config.Config{Store: "etcd"}).OpenStore(ctx)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := config.NewLogger("debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log, err = config.NewLogger("warn", "text")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	_, err = config.NewLogger("loud", "text")
	assert.Error(t, err)
	_, err = config.NewLogger("info", "xml")
	assert.Error(t, err)
}
