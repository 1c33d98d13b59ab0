package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mohsinsiddi/w3market/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "flow-testnet", cfg.Network)
	assert.Equal(t, "0xe9420DC12546ACB7ae36FeAb7739dF5a2adC2180", cfg.ContractAddress)
	assert.Equal(t, uint64(500_000), cfg.GasLimit)
	assert.Equal(t, 4, cfg.FetchWorkers)
	assert.Equal(t, 10, cfg.WatchInterval)
	assert.Empty(t, cfg.RPCURL)
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.Network = "localhost"
	cfg.DefaultWallet = "alice"
	cfg.RPCURL = "http://127.0.0.1:8545"

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "localhost", reloaded.Network)
	assert.Equal(t, "alice", reloaded.DefaultWallet)
	assert.Equal(t, "http://127.0.0.1:8545", reloaded.RPCURL)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	cfg.ContractAddress = "0x1111111111111111111111111111111111111111"
	require.NoError(t, cfg.Save())

	t.Setenv(config.EnvContract, "0x2222222222222222222222222222222222222222")
	t.Setenv(config.EnvGasLimit, "300000")

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", reloaded.ContractAddress)
	assert.Equal(t, uint64(300000), reloaded.GasLimit)
}

func TestBadGasLimitEnvIgnored(t *testing.T) {
	t.Setenv(config.EnvGasLimit, "lots")
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultGasLimit, cfg.GasLimit)
}

func TestZeroFieldsRestored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"network":"","gas_limit":0,"fetch_workers":-1}`), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "flow-testnet", cfg.Network)
	assert.Equal(t, config.DefaultGasLimit, cfg.GasLimit)
	assert.Equal(t, 4, cfg.FetchWorkers)
}

func TestCorruptConfigErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{not json`), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err, "config.json should be created on save")
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
	assert.Equal(t, filepath.Join(dir, "state.json"), cfg.StatePath())
}

func TestLoadFromNonExistentDir(t *testing.T) {
	dir := t.TempDir() + "/subdir"
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "flow-testnet", cfg.Network)
}
