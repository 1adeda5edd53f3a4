package app

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 15*time.Second, cfg.AppReadTimeout)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 30, cfg.KeepBackups)
	assert.True(t, cfg.SeedDemo)
	assert.False(t, cfg.AuthEnabled)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("STORE_BACKEND", " File ")
	t.Setenv("DATA_FILE", "/tmp/estoque.yaml")
	t.Setenv("KEEP_BACKUPS", "5")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")
	t.Setenv("APP_WRITE_TIMEOUT", "1m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.AppAddr)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.Equal(t, "/tmp/estoque.yaml", cfg.DataFile)
	assert.Equal(t, 5, cfg.KeepBackups)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.CORSOrigins)
	assert.Equal(t, time.Minute, cfg.AppWriteTimeout)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("STORE_BACKEND", "excel")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "STORE_BACKEND")
}

func TestConfig_ValidateNegatives(t *testing.T) {
	cfg := Config{StoreBackend: BackendMemory, KeepBackups: -1}
	assert.Error(t, cfg.Validate())

	cfg = Config{StoreBackend: BackendMemory, RateLimitPerMinute: -1}
	assert.Error(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		cfg      Config
		hasCreds bool
	}{
		{"memory", Config{StoreBackend: BackendMemory}, false},
		{"sqlite", Config{StoreBackend: BackendSQLite, SQLitePath: filepath.Join(dir, "db", "estoque.db")}, true},
		{"file", Config{StoreBackend: BackendFile, DataFile: filepath.Join(dir, "estoque.yaml")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := OpenStore(&tt.cfg, nil)
			require.NoError(t, err)
			defer storage.Close()

			snap, err := storage.Store.LoadAll(context.Background())
			require.NoError(t, err)
			assert.True(t, snap.IsEmpty())
			assert.Equal(t, tt.hasCreds, storage.Credentials != nil)
		})
	}

	_, err := OpenStore(&Config{StoreBackend: "excel"}, nil)
	assert.Error(t, err)
}
