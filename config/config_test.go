package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("middb", pflag.ContinueOnError)
	BindFlags(fs)
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultStorageDir, cfg.StorageDir)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.IdleWait)
	assert.Equal(t, 20000, cfg.ANNCapacityHint)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "middb.yaml")
	content := `
listenAddr: "127.0.0.1:9090"
storageDir: "/var/lib/middb"
batchSize: 250
idleWait: 10s
annCapacityHint: 50000
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/middb", cfg.StorageDir)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.IdleWait)
	assert.Equal(t, 50000, cfg.ANNCapacityHint)
}

func TestLoadRejectsExplicitMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/middb.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "middb.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("batchSize: [unclosed"), 0o644))

	cfg, err := Load(configFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadReadsSnakeCaseEnvVars(t *testing.T) {
	t.Setenv("MIDDB_LISTEN_ADDR", "10.0.0.1:9999")
	t.Setenv("MIDDB_BATCH_SIZE", "42")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:9999", cfg.ListenAddr)
	assert.Equal(t, 42, cfg.BatchSize)
}

func TestLoadWithFlagsOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "middb.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("batchSize: 250\n"), 0o644))

	fs := newTestFlagSet()
	require.NoError(t, fs.Set("batch-size", "999"))

	cfg, err := LoadWithFlags(configFile, fs)
	require.NoError(t, err)
	assert.Equal(t, 999, cfg.BatchSize)
}
