package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AccountConfig holds the connection settings for one mail account.
// The password is never stored here; it lives in the system keyring
// under the account ID.
type AccountConfig struct {
	// ID is the unique identifier for this account instance.
	ID string `mapstructure:"id" yaml:"id"`

	// Name is the user-defined label for this account.
	Name string `mapstructure:"name" yaml:"name"`

	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort string `mapstructure:"imap_port" yaml:"imap_port"`
	Username string `mapstructure:"username" yaml:"username"`
	UseTLS   bool   `mapstructure:"use_tls" yaml:"use_tls"`

	// PollIntervalSec is how often (in seconds) the open conversation
	// is re-checked for changes.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DisplayConfig holds the rendering preferences the enrichment pipeline
// consumes, plus general UI settings.
type DisplayConfig struct {
	ExpandWho        string `mapstructure:"expand_who" yaml:"expand_who"`
	NoFriendlyDate   bool   `mapstructure:"no_friendly_date" yaml:"no_friendly_date"`
	ExtraAttachments bool   `mapstructure:"extra_attachments" yaml:"extra_attachments"`
	LoggingEnabled   bool   `mapstructure:"logging_enabled" yaml:"logging_enabled"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Account  AccountConfig `mapstructure:"account" yaml:"account"`
	Display  DisplayConfig `mapstructure:"display" yaml:"display"`
	IndexDB  string        `mapstructure:"index_db" yaml:"index_db"`
	LogLevel string        `mapstructure:"log_level" yaml:"log_level"`
}

// Prefs converts the display configuration into the resolved preference
// struct the enricher consumes. An unrecognized expand_who value is
// passed through unchanged; the enricher handles the fallback.
func (c *AppConfig) Prefs() Prefs {
	p := DefaultPrefs()
	if c.Display.ExpandWho != "" {
		p.ExpandWho = ExpandWho(c.Display.ExpandWho)
	}
	p.NoFriendlyDate = c.Display.NoFriendlyDate
	p.ExtraAttachments = c.Display.ExtraAttachments
	p.LoggingEnabled = c.Display.LoggingEnabled
	return p
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/conversations/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "conversations", "config.yaml")
}

// DefaultIndexPath returns the default location of the message index
// database.
func DefaultIndexPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "index.db")
	}
	return filepath.Join(home, ".local", "share", "conversations", "index.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Account: AccountConfig{
			IMAPPort:        "993",
			UseTLS:          true,
			PollIntervalSec: 60,
		},
		Display: DisplayConfig{
			ExpandWho: string(ExpandAuto),
		},
		IndexDB:  DefaultIndexPath(),
		LogLevel: "info",
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default
// configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("account.imap_port", "993")
	v.SetDefault("account.use_tls", true)
	v.SetDefault("account.poll_interval_sec", 60)
	v.SetDefault("display.expand_who", string(ExpandAuto))
	v.SetDefault("index_db", DefaultIndexPath())
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("account", cfg.Account)
	v.Set("display", cfg.Display)
	v.Set("index_db", cfg.IndexDB)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
