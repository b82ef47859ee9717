package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SCREENING_RANKING_BASE_URL
const EnvPrefix = "SCREENING"

// Config holds application configuration
type Config struct {
	Ranking   RankingConfig   `mapstructure:"ranking" yaml:"ranking"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Gmail     GmailConfig     `mapstructure:"gmail" yaml:"gmail"`
}

// RankingConfig locates the remote ranking service
type RankingConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	Path    string        `mapstructure:"path" yaml:"path" validate:"required,startswith=/"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=1s"`
}

// DashboardConfig holds the submission gates
type DashboardConfig struct {
	MinJobDescriptionChars int   `mapstructure:"min_job_description_chars" yaml:"min_job_description_chars" validate:"gte=1"`
	MaxFileSize            int64 `mapstructure:"max_file_size" yaml:"max_file_size" validate:"gte=0"`
	MaxComparison          int   `mapstructure:"max_comparison" yaml:"max_comparison" validate:"gte=1"`
}

type ServerConfig struct {
	Port         int   `mapstructure:"port" yaml:"port" validate:"gte=1,lte=65535"`
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes" validate:"gte=1"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json console"`
}

// GmailConfig points at the OAuth client secret and cached token
type GmailConfig struct {
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
	TokenPath       string `mapstructure:"token_path" yaml:"token_path"`
}

// DefaultConfig returns a new config with default values
func DefaultConfig() *Config {
	return &Config{
		Ranking: RankingConfig{
			BaseURL: "http://localhost:8000",
			Path:    "/rank/",
			Timeout: 300 * time.Second,
		},
		Dashboard: DashboardConfig{
			MinJobDescriptionChars: 500,
			MaxFileSize:            10 << 20,
			MaxComparison:          3,
		},
		Server: ServerConfig{
			Port:         8080,
			MaxBodyBytes: 100 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Gmail: GmailConfig{
			TokenPath: "token.json",
		},
	}
}

// RankURL joins the base URL and the ranking path
func (c *Config) RankURL() string {
	return strings.TrimRight(c.Ranking.BaseURL, "/") + "/" + strings.TrimLeft(c.Ranking.Path, "/")
}

// GetConfigPath returns the path to the configuration file
// On Windows: %APPDATA%/ResumeScreening/config.yaml
// On Unix: ~/.config/ResumeScreening/config.yaml
func GetConfigPath() (string, error) {
	var configDir string

	if os.Getenv("APPDATA") != "" {
		configDir = filepath.Join(os.Getenv("APPDATA"), "ResumeScreening")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "ResumeScreening")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.yaml"), nil
}

// Load loads configuration from the default config path
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadFrom(configPath)
}

// LoadFrom loads configuration from a specific path. A missing file yields
// the defaults; environment variables and a .env file override either.
func LoadFrom(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("ranking.base_url", d.Ranking.BaseURL)
	v.SetDefault("ranking.path", d.Ranking.Path)
	v.SetDefault("ranking.timeout", d.Ranking.Timeout)
	v.SetDefault("dashboard.min_job_description_chars", d.Dashboard.MinJobDescriptionChars)
	v.SetDefault("dashboard.max_file_size", d.Dashboard.MaxFileSize)
	v.SetDefault("dashboard.max_comparison", d.Dashboard.MaxComparison)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("gmail.credentials_path", d.Gmail.CredentialsPath)
	v.SetDefault("gmail.token_path", d.Gmail.TokenPath)
}

// Save saves the configuration to the default config path
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(path string) error {
	v := viper.New()
	setDefaults(v, c)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s failed on '%s'", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	if c.Gmail.CredentialsPath != "" {
		if _, err := os.Stat(c.Gmail.CredentialsPath); err != nil {
			return fmt.Errorf("gmail credentials file not found: %w", err)
		}
	}

	return nil
}
