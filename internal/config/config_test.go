package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CKB_POP_CONFIG", path)
	return path
}

func TestLoad_Defaults(t *testing.T) {
	useTempConfig(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "testnet", cfg.Network)
	assert.Equal(t, DefaultTestnetRPC, cfg.RPCURL())
	assert.Equal(t, "browser", cfg.SignerMethod)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	useTempConfig(t)

	cfg := Defaults()
	cfg.Network = "mainnet"
	cfg.Address = "ckb1qexample"
	cfg.SignerMethod = "walletconnect"
	cfg.RelayURL = "https://relay.example.com"
	cfg.ApprovalBasePort = 9900
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, &cfg, loaded)
	assert.Equal(t, DefaultMainnetRPC, loaded.RPCURL())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	useTempConfig(t)

	cfg := Defaults()
	cfg.Address = "ckt1from-file"
	require.NoError(t, cfg.Save())

	t.Setenv("CKB_POP_ADDRESS", "ckt1from-env")
	t.Setenv("CKB_POP_TESTNET_RPC", "http://localhost:8114")

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ckt1from-env", loaded.Address)
	assert.Equal(t, "http://localhost:8114", loaded.RPCURL())
}

func TestLoad_InvalidNetwork(t *testing.T) {
	useTempConfig(t)
	t.Setenv("CKB_POP_NETWORK", "devnet")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.WriteFile(path, []byte("network: [unclosed"), 0o600))

	_, err := Load()
	assert.Error(t, err)
}

func TestSave_Permissions(t *testing.T) {
	path := useTempConfig(t)

	cfg := Defaults()
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
