package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for modelsync.
type Config struct {
	CatalogDir  string       `mapstructure:"catalog_dir"`
	IndexFile   string       `mapstructure:"index_file"`
	IgnoreFiles []string     `mapstructure:"ignore_files"`
	OnMalformed string       `mapstructure:"on_malformed"`
	DryRun      bool         `mapstructure:"dry_run"`
	LogLevel    string       `mapstructure:"log_level"`
	Source      SourceConfig `mapstructure:"source"`
	CacheDir    string       `mapstructure:"cache_dir"`
	CacheTTL    string       `mapstructure:"cache_ttl"`
	NoCache     bool         `mapstructure:"no_cache"`
	RateLimit   float64      `mapstructure:"rate_limit"`
	Novita      NovitaConfig `mapstructure:"novita"`
	Publish     bool         `mapstructure:"publish"`
	GitHub      GitHubConfig `mapstructure:"github"`
}

// SourceConfig selects where the remote catalog is read from.
type SourceConfig struct {
	Kind string `mapstructure:"kind"`
	URL  string `mapstructure:"url"`
	File string `mapstructure:"file"`
}

// NovitaConfig holds provider credentials for the credential probe.
type NovitaConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	ProbeModel string `mapstructure:"probe_model"`
}

// GitHubConfig holds GitHub-related settings.
type GitHubConfig struct {
	Token      string `mapstructure:"token"`
	Owner      string `mapstructure:"owner"`
	Repo       string `mapstructure:"repo"`
	BaseBranch string `mapstructure:"base_branch"`
}

// envFiles are loaded before the environment is read; later files do not
// override variables that are already set.
var envFiles = []string{".env", ".env.local"}

// Load reads configuration from .env files, config file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("catalog_dir", "models/llm")
	v.SetDefault("index_file", "_position.yaml")
	v.SetDefault("ignore_files", []string{"check_yaml_consistency.py", "fix_yaml_files.py"})
	v.SetDefault("on_malformed", "skip")
	v.SetDefault("dry_run", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("source.kind", "http")
	v.SetDefault("source.url", "https://api.novita.ai/v3/openai/models")
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("cache_ttl", "0s")
	v.SetDefault("no_cache", false)
	v.SetDefault("rate_limit", 5)
	v.SetDefault("novita.base_url", "https://api.novita.ai/v3/openai")
	v.SetDefault("novita.probe_model", "meta-llama/llama-3-8b-instruct")
	v.SetDefault("publish", false)
	v.SetDefault("github.base_branch", "main")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/modelsync")
	}

	// Environment variables: MODELSYNC_SOURCE_URL -> source.url
	v.SetEnvPrefix("MODELSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("novita.api_key", "MODELSYNC_NOVITA_API_KEY", "NOVITA_API_KEY")
	_ = v.BindEnv("github.token", "MODELSYNC_GITHUB_TOKEN", "GITHUB_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Resolve catalog dir to absolute
	if !filepath.IsAbs(cfg.CatalogDir) {
		abs, err := filepath.Abs(cfg.CatalogDir)
		if err != nil {
			return nil, fmt.Errorf("resolving catalog dir: %w", err)
		}
		cfg.CatalogDir = abs
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.OnMalformed {
	case "skip", "recreate":
	default:
		return fmt.Errorf("on_malformed must be skip or recreate, got %q", c.OnMalformed)
	}
	switch c.Source.Kind {
	case "http":
	case "file":
		if c.Source.File == "" {
			return fmt.Errorf("source.file is required when source.kind=file")
		}
	default:
		return fmt.Errorf("source.kind must be http or file, got %q", c.Source.Kind)
	}
	if _, err := c.CacheTTLDuration(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// CacheTTLDuration parses cache_ttl. Zero means every request is revalidated.
func (c *Config) CacheTTLDuration() (time.Duration, error) {
	if c.CacheTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("parsing cache_ttl: %w", err)
	}
	return d, nil
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parsing log_level: %w", err)
	}
	return lvl, nil
}

// CanPublish reports whether a pull request can be opened after a sync.
func (c *Config) CanPublish() bool {
	return c.Publish && c.GitHub.Token != "" && c.GitHub.Owner != "" && c.GitHub.Repo != ""
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "modelsync-cache")
	}
	return filepath.Join(dir, "modelsync")
}
