package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/jsonc"

	"github.com/Rorical/RoriRoles/internal/models"
)

const (
	// DevnetEndpoint is where `roriroles devnet` listens by default
	DevnetEndpoint = "http://127.0.0.1:3456/rpc/v0"
	// DevnetWallet owns the demo tokens seeded by `roriroles devnet`
	DevnetWallet = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
)

type Profile struct {
	Endpoint     string `json:"endpoint"`
	AuthToken    string `json:"auth_token,omitempty"`
	Wallet       string `json:"wallet"`
	DefaultToken string `json:"default_token,omitempty"`
}

type Config struct {
	Profiles      map[string]Profile `json:"profiles"`
	ActiveProfile string             `json:"active_profile"`
	LogLevel      string             `json:"log_level,omitempty"`
	LogFile       string             `json:"log_file,omitempty"`

	currentProfile *Profile
	overrides      Overrides
	path           string
}

// Overrides are read from the environment and win over the active profile.
// They are never written back to the config file.
type Overrides struct {
	Profile      string `env:"RORIROLES_PROFILE"`
	Endpoint     string `env:"RORIROLES_ENDPOINT"`
	AuthToken    string `env:"RORIROLES_AUTH_TOKEN"`
	Wallet       string `env:"RORIROLES_WALLET"`
	DefaultToken string `env:"RORIROLES_TOKEN"`
	LogLevel     string `env:"RORIROLES_LOG_LEVEL"`
}

func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadConfigFrom(configPath)
}

// LoadConfigFrom loads the config at configPath, creating a default one if
// it does not exist, and applies environment overrides.
func LoadConfigFrom(configPath string) (*Config, error) {
	// Ensure config directory exists
	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Load existing config or create default
	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.path = configPath

	var overrides Overrides
	if err := env.Parse(&overrides); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if overrides.Profile != "" {
		config.ActiveProfile = overrides.Profile
	}

	// Validate and set current profile
	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}
	config.overrides = overrides
	config.applyOverrides()

	return config, nil
}

func (c *Config) IsValid() bool {
	return c.currentProfile != nil && c.currentProfile.Endpoint != ""
}

// Validate reports every problem with the active profile at once
func (c *Config) Validate() error {
	if c.currentProfile == nil {
		return fmt.Errorf("no active profile")
	}
	var result *multierror.Error
	p := c.currentProfile
	if p.Endpoint == "" {
		result = multierror.Append(result, fmt.Errorf("endpoint is not set"))
	} else if u, err := url.Parse(p.Endpoint); err != nil {
		result = multierror.Append(result, fmt.Errorf("endpoint: %w", err))
	} else if !slices.Contains([]string{"http", "https", "ws", "wss"}, u.Scheme) {
		result = multierror.Append(result, fmt.Errorf("endpoint %q: scheme must be http, https, ws or wss", p.Endpoint))
	}
	if p.Wallet != "" {
		if _, err := models.ParseAddress(p.Wallet); err != nil {
			result = multierror.Append(result, fmt.Errorf("wallet: %w", err))
		}
	}
	switch c.GetLogLevel() {
	case "debug", "info", "warn", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("log level %q: expected debug, info, warn or error", c.GetLogLevel()))
	}
	return result.ErrorOrNil()
}

func (c *Config) GetEndpoint() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.Endpoint
}

func (c *Config) GetAuthToken() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.AuthToken
}

// GetWallet returns the normalized wallet address, or "" if unset or invalid
func (c *Config) GetWallet() models.Address {
	if c.currentProfile == nil || c.currentProfile.Wallet == "" {
		return ""
	}
	addr, err := models.ParseAddress(c.currentProfile.Wallet)
	if err != nil {
		return ""
	}
	return addr
}

func (c *Config) GetDefaultToken() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.DefaultToken
}

func (c *Config) GetLogLevel() string {
	if c.overrides.LogLevel != "" {
		return strings.ToLower(c.overrides.LogLevel)
	}
	if c.LogLevel == "" {
		return "info"
	}
	return strings.ToLower(c.LogLevel)
}

// GetLogFile returns where the TUI writes its log
func (c *Config) GetLogFile() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(filepath.Dir(c.path), "roriroles.log")
}

// UseProfile switches the active profile in memory
func (c *Config) UseProfile(name string) error {
	if _, exists := c.Profiles[name]; !exists {
		return fmt.Errorf("profile '%s' does not exist", name)
	}
	c.ActiveProfile = name
	if err := c.setCurrentProfile(); err != nil {
		return err
	}
	c.applyOverrides()
	return nil
}

func getConfigPath() (string, error) {
	var configDir string

	// Use RORIROLES_HOME if set, otherwise use user's home directory
	if home := os.Getenv("RORIROLES_HOME"); home != "" {
		configDir = home
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = homeDir
	}

	return filepath.Join(configDir, ".roriroles", "config.json"), nil
}

func ensureConfigDir(configPath string) error {
	configDir := filepath.Dir(configPath)
	return os.MkdirAll(configDir, 0755)
}

func loadConfigFile(configPath string) (*Config, error) {
	// If config file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Comments and trailing commas are allowed in the config file
	var config Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles: map[string]Profile{
			"default": {
				Endpoint: DevnetEndpoint,
				Wallet:   DevnetWallet,
			},
		},
		ActiveProfile: "default",
	}

	// Save default config to file
	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}

	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Save writes the config back. Comments in the original file are lost.
func (c *Config) Save() error {
	if c.path != "" {
		return saveConfig(c, c.path)
	}
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	return saveConfig(c, configPath)
}

func (c *Config) setCurrentProfile() error {
	if c.Profiles == nil {
		return fmt.Errorf("no profiles defined")
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// If active profile doesn't exist, fall back to the first profile by name
		names := make([]string, 0, len(c.Profiles))
		for name := range c.Profiles {
			names = append(names, name)
		}
		slices.Sort(names)
		if len(names) > 0 {
			c.ActiveProfile = names[0]
			profile = c.Profiles[names[0]]
			exists = true
		}
	}

	if !exists {
		return fmt.Errorf("no valid profiles found")
	}

	c.currentProfile = &profile
	return nil
}

func (c *Config) applyOverrides() {
	o := c.overrides
	p := c.currentProfile
	if o.Endpoint != "" {
		p.Endpoint = o.Endpoint
	}
	if o.AuthToken != "" {
		p.AuthToken = o.AuthToken
	}
	if o.Wallet != "" {
		p.Wallet = o.Wallet
	}
	if o.DefaultToken != "" {
		p.DefaultToken = o.DefaultToken
	}
}
