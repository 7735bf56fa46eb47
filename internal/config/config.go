// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"terminal_bridge/internal/models"
)

// SharedCredentialRef is the credential used by accounts that name none.
const SharedCredentialRef = "shared"

// Config holds the application configuration.
type Config struct {
	// Server settings
	Port string
	Host string

	// Terminal settings
	GatewayURL       string // Base URL of the terminal gateway
	TerminalServer   string // Trade server name passed on login
	TerminalPassword string // Shared credential password, overrides the accounts file
	LoginTimeout     time.Duration

	// Refresh settings
	RefreshInterval   time.Duration
	InterAccountDelay time.Duration
	WarmupDelay       time.Duration
	CycleHistorySize  int

	// Trade history settings
	HistoryDays int

	// Broker integration settings
	EncryptionSecret string // Used for decrypting stored credentials
	AccountsFile     string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	CORSOrigins []string
	Version     string

	// Environment
	DemoMode bool

	// Loaded from AccountsFile
	Accounts    []models.ManagedAccount
	Credentials map[string]CredentialConfig
}

// CredentialConfig is one entry of the credentials table. Exactly one of
// Password or PasswordEnc+Nonce is expected.
type CredentialConfig struct {
	Server      string `yaml:"server"`
	Password    string `yaml:"password"`
	PasswordEnc string `yaml:"password_enc"` // base64 AES-GCM ciphertext
	Nonce       string `yaml:"nonce"`        // base64 GCM nonce
}

// accountsFile is the on-disk layout of the accounts table.
type accountsFile struct {
	Terminal struct {
		Server string `yaml:"server"`
	} `yaml:"terminal"`
	Credentials map[string]CredentialConfig `yaml:"credentials"`
	Accounts    []models.ManagedAccount     `yaml:"accounts"`
}

// New creates a new Config with values from environment variables or defaults.
// The accounts table is not loaded; use Load for a complete configuration.
func New() *Config {
	return &Config{
		Port:              getEnv("PORT", "8000"),
		Host:              getEnv("HOST", "0.0.0.0"),
		GatewayURL:        getEnv("TERMINAL_GATEWAY_URL", "http://127.0.0.1:8765"),
		TerminalServer:    getEnv("TERMINAL_SERVER", ""),
		TerminalPassword:  getEnv("TERMINAL_PASSWORD", ""),
		LoginTimeout:      getDuration("LOGIN_TIMEOUT", 30*time.Second),
		RefreshInterval:   getDuration("REFRESH_INTERVAL", 5*time.Minute),
		InterAccountDelay: getDuration("INTER_ACCOUNT_DELAY", 2*time.Second),
		WarmupDelay:       getDuration("WARMUP_DELAY", 10*time.Second),
		CycleHistorySize:  getInt("CYCLE_HISTORY_SIZE", 50),
		HistoryDays:       getInt("HISTORY_DAYS", 90),
		EncryptionSecret:  getEnv("ENCRYPTION_SECRET", ""),
		AccountsFile:      getEnv("ACCOUNTS_FILE", filepath.Join("config", "accounts.yaml")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
		LogJSON:           getEnv("LOG_FORMAT", "text") == "json",
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		Version:           getEnv("VERSION", "dev"),
		DemoMode:          getEnv("DEMO_MODE", "false") == "true",
		Credentials:       map[string]CredentialConfig{},
	}
}

// Load builds the configuration from the environment and the accounts file.
func Load() (*Config, error) {
	cfg := New()
	if err := cfg.LoadAccounts(cfg.AccountsFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAccounts reads the managed-account table and credentials from a YAML file.
func (c *Config) LoadAccounts(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading accounts file: %w", err)
	}
	return c.parseAccounts(data)
}

func (c *Config) parseAccounts(data []byte) error {
	var file accountsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing accounts file: %w", err)
	}

	if c.TerminalServer == "" {
		c.TerminalServer = file.Terminal.Server
	}

	if c.Credentials == nil {
		c.Credentials = map[string]CredentialConfig{}
	}
	for ref, cred := range file.Credentials {
		c.Credentials[ref] = cred
	}

	// The environment password wins over the file for the shared credential
	if c.TerminalPassword != "" {
		shared := c.Credentials[SharedCredentialRef]
		shared.Password = c.TerminalPassword
		shared.PasswordEnc, shared.Nonce = "", ""
		c.Credentials[SharedCredentialRef] = shared
	}

	c.Accounts = c.Accounts[:0]
	for _, acc := range file.Accounts {
		if acc.CredentialRef == "" {
			acc.CredentialRef = SharedCredentialRef
		}
		c.Accounts = append(c.Accounts, acc)
	}
	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("no managed accounts configured")
	}
	durations := map[string]time.Duration{
		"REFRESH_INTERVAL": c.RefreshInterval,
		"LOGIN_TIMEOUT":    c.LoginTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.InterAccountDelay < 0 || c.WarmupDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.HistoryDays <= 0 {
		return fmt.Errorf("HISTORY_DAYS must be positive, got %d", c.HistoryDays)
	}
	for _, acc := range c.Accounts {
		if _, ok := c.Credentials[acc.CredentialRef]; !ok && !c.DemoMode {
			return fmt.Errorf("account %d references unknown credential %q", acc.ID, acc.CredentialRef)
		}
	}
	return nil
}

// Address returns the full address to bind the server to.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a Go duration ("90s", "5m") or a plain number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
