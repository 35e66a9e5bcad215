package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriRoles/internal/models"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".roriroles", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".roriroles", "config.json")

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.ActiveProfile)
	assert.Equal(t, DevnetEndpoint, cfg.GetEndpoint())
	assert.Equal(t, models.Address(DevnetWallet), cfg.GetWallet())
	assert.True(t, cfg.IsValid())
	assert.NoError(t, cfg.Validate())
	assert.FileExists(t, path)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "roriroles.log"), cfg.GetLogFile())
}

func TestLoadAcceptsComments(t *testing.T) {
	path := writeConfig(t, `{
		// production node
		"profiles": {
			"main": {
				"endpoint": "https://ledger.example.com/rpc/v0",
				"auth_token": "s3cret",
				"wallet": "0x70997970C51812DC3A010C7D01B50E0D17DC79C8", /* checksummed */
				"default_token": "ACME",
			},
		},
		"active_profile": "main",
		"log_level": "DEBUG",
	}`)

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://ledger.example.com/rpc/v0", cfg.GetEndpoint())
	assert.Equal(t, "s3cret", cfg.GetAuthToken())
	assert.Equal(t, models.Address("0x70997970c51812dc3a010c7d01b50e0d17dc79c8"), cfg.GetWallet())
	assert.Equal(t, "ACME", cfg.GetDefaultToken())
	assert.Equal(t, "debug", cfg.GetLogLevel())
}

func TestMissingActiveProfileFallsBack(t *testing.T) {
	path := writeConfig(t, `{
		"profiles": {
			"zeta": {"endpoint": "http://z"},
			"alpha": {"endpoint": "http://a"}
		},
		"active_profile": "gone"
	}`)

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha", cfg.ActiveProfile)
	assert.Equal(t, "http://a", cfg.GetEndpoint())
}

func TestNoProfiles(t *testing.T) {
	path := writeConfig(t, `{"profiles": {}}`)
	_, err := LoadConfigFrom(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"profiles": {
			"main": {"endpoint": "http://main", "wallet": "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"},
			"test": {"endpoint": "http://test"}
		},
		"active_profile": "main"
	}`)
	t.Setenv("RORIROLES_PROFILE", "test")
	t.Setenv("RORIROLES_ENDPOINT", "http://override")
	t.Setenv("RORIROLES_TOKEN", "BOLT")
	t.Setenv("RORIROLES_LOG_LEVEL", "warn")

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.ActiveProfile)
	assert.Equal(t, "http://override", cfg.GetEndpoint())
	assert.Equal(t, "BOLT", cfg.GetDefaultToken())
	assert.Equal(t, "warn", cfg.GetLogLevel())

	// overrides survive a profile switch and are never persisted
	require.NoError(t, cfg.UseProfile("main"))
	assert.Equal(t, "http://override", cfg.GetEndpoint())
	require.NoError(t, cfg.Save())

	reloaded, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://main", reloaded.Profiles["main"].Endpoint)
	assert.Equal(t, "http://test", reloaded.Profiles["test"].Endpoint)
}

func TestUseProfileUnknown(t *testing.T) {
	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Error(t, cfg.UseProfile("missing"))
	assert.Equal(t, "default", cfg.ActiveProfile)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	path := writeConfig(t, `{
		"profiles": {"bad": {"endpoint": "ftp://ledger", "wallet": "0x1234"}},
		"active_profile": "bad",
		"log_level": "chatty"
	}`)

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be")
	assert.Contains(t, err.Error(), "wallet")
	assert.Contains(t, err.Error(), "log level")
	assert.Empty(t, cfg.GetWallet(), "an invalid wallet reads as unset")
}

func TestValidateMissingEndpoint(t *testing.T) {
	path := writeConfig(t, `{"profiles": {"empty": {}}, "active_profile": "empty"}`)

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.False(t, cfg.IsValid())
	assert.ErrorContains(t, cfg.Validate(), "endpoint is not set")
}
