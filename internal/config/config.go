package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Mode selects which ingestion paths run. The dashboard always serves.
const (
	ModeWebhook = "webhook"
	ModeEmail   = "email"
	ModeBoth    = "both"
)

// Config is the structural configuration read from config.yaml.
// Credentials and other secrets come from the environment (Secrets).
type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Relay struct {
		Mode         string `yaml:"mode"`
		BaseCurrency string `yaml:"base_currency"`
	} `yaml:"relay"`
	Mail struct {
		Server          string `yaml:"server"`
		Port            int    `yaml:"port"`
		UseSSL          bool   `yaml:"use_ssl"`
		CheckIntervalMs int    `yaml:"check_interval_ms"`
	} `yaml:"mail"`
	Dashboard struct {
		RefreshMs      int `yaml:"refresh_ms"`
		SessionTTLMins int `yaml:"session_ttl_mins"`
	} `yaml:"dashboard"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// Secrets holds everything loaded from environment variables (optionally
// via a .env file). An exchange whose key or secret is empty is left out
// of the connector registry; that is not an error.
type Secrets struct {
	WebhookPIN        string `envconfig:"WEBHOOK_PIN"`
	DashboardPassword string `envconfig:"DASHBOARD_PASSWORD"`
	SessionSecret     string `envconfig:"SESSION_SECRET"`

	BybitAPIKey      string `envconfig:"BYBIT_API_KEY"`
	BybitAPISecret   string `envconfig:"BYBIT_API_SECRET"`
	BinanceAPIKey    string `envconfig:"BINANCE_API_KEY"`
	BinanceAPISecret string `envconfig:"BINANCE_API_SECRET"`

	IMAPEmail    string `envconfig:"IMAP_EMAIL"`
	IMAPPassword string `envconfig:"IMAP_PASSWORD"`

	DiscordWebhook string `envconfig:"DISCORD_WEBHOOK"`
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Relay.Mode == "" {
		c.Relay.Mode = ModeBoth
	}
	if c.Relay.BaseCurrency == "" {
		c.Relay.BaseCurrency = "USDT"
	}
	if c.Mail.CheckIntervalMs == 0 {
		c.Mail.CheckIntervalMs = 30000
	}
	if c.Dashboard.RefreshMs == 0 {
		c.Dashboard.RefreshMs = 5000
	}
	if c.Dashboard.SessionTTLMins == 0 {
		c.Dashboard.SessionTTLMins = 24 * 60
	}
	if c.Database.Path == "" {
		c.Database.Path = "relay.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

func (c *Config) validate() error {
	switch c.Relay.Mode {
	case ModeWebhook, ModeEmail, ModeBoth:
	default:
		return fmt.Errorf("invalid relay mode %q: expected webhook, email or both", c.Relay.Mode)
	}
	return nil
}

// LoadSecrets reads secrets from the process environment.
func LoadSecrets() (*Secrets, error) {
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	return &s, nil
}
