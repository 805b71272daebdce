package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"angel-trader/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", "")
	writeFile(t, dir, "credentials.toml", "")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.15, cfg.Analysis.MinDeltaDiff)
	assert.Equal(t, 0.26, cfg.Analysis.MaxDeltaDiff)
	assert.Equal(t, 6, cfg.Analysis.StrikeWindow)
	assert.Equal(t, 10, cfg.Analysis.TopN)
	assert.Equal(t, 3, cfg.Gateway.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Gateway.InitialBackoff)

	nifty, ok := cfg.Symbol(models.Nifty)
	require.True(t, ok)
	assert.Equal(t, 75, nifty.LotSize)
	assert.Equal(t, 50.0, nifty.StrikeInterval)
	assert.Equal(t, "99926000", nifty.Token)

	bank, ok := cfg.Symbol(models.BankNifty)
	require.True(t, ok)
	assert.Equal(t, 35, bank.LotSize)
	assert.Equal(t, 100.0, bank.StrikeInterval)
	assert.Equal(t, "99926009", bank.Token)
}

func TestLoadReadsValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", `
[analysis]
min_delta_diff = 0.10
max_delta_diff = 0.30
top_n = 5

[symbols.NIFTY]
lot_size = 50
strike_interval = 50
token = "12345"
`)
	writeFile(t, dir, "credentials.toml", `
[angel]
api_key = "key"
client_code = "X123"
password = "1234"
totp_secret = "SECRET"
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.10, cfg.Analysis.MinDeltaDiff)
	assert.Equal(t, 0.30, cfg.Analysis.MaxDeltaDiff)
	assert.Equal(t, 5, cfg.Analysis.TopN)

	nifty, _ := cfg.Symbol(models.Nifty)
	assert.Equal(t, 50, nifty.LotSize)
	assert.Equal(t, "12345", nifty.Token)

	assert.True(t, cfg.Credentials.Angel.Complete())
	assert.Equal(t, "X123", cfg.Credentials.Angel.ClientCode)
}

func TestEnvOverridesCredentials(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", "")
	writeFile(t, dir, "credentials.toml", `
[angel]
api_key = "file-key"
`)

	t.Setenv("ANGEL_API_KEY", "env-key")
	t.Setenv("ANGEL_CLIENT_CODE", "E999")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Credentials.Angel.APIKey)
	assert.Equal(t, "E999", cfg.Credentials.Angel.ClientCode)
}

func TestLoadCreatesTemplates(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.toml"))
	assert.FileExists(t, filepath.Join(dir, "credentials.toml"))

	info, err := os.Stat(filepath.Join(dir, "credentials.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestValidateRejectsBadBand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", `
[analysis]
min_delta_diff = 0.30
max_delta_diff = 0.20
`)
	writeFile(t, dir, "credentials.toml", "")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_delta_diff")
}

func TestValidateRejectsBadLotSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", `
[symbols.NIFTY]
lot_size = -1
strike_interval = 50
`)
	writeFile(t, dir, "credentials.toml", "")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lot_size")
}

func TestIncompleteCredentials(t *testing.T) {
	creds := AngelCredentials{APIKey: "k", ClientCode: "c"}
	assert.False(t, creds.Complete())
}
