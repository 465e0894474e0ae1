// Package config loads application configuration from file and environment
// and bootstraps the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Blob      BlobConfig      `yaml:"blob" mapstructure:"blob"`
	Scrapehub ScrapehubConfig `yaml:"scrapehub" mapstructure:"scrapehub"`
	Claims    ClaimsConfig    `yaml:"claims" mapstructure:"claims"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// StoreConfig configures the tabular store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// BlobConfig configures blob storage. BaseURL is the public prefix under
// which live menu objects are served.
type BlobConfig struct {
	RootDir string `yaml:"root_dir" mapstructure:"root_dir"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScrapehubConfig holds scraping-service credentials and webhook settings.
type ScrapehubConfig struct {
	Token         string `yaml:"token" mapstructure:"token"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	ActorID       string `yaml:"actor_id" mapstructure:"actor_id"`
	Source        string `yaml:"source" mapstructure:"source"`
	WebhookSecret string `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	WebhookURL    string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ClaimsConfig configures ownership-claim issuance.
type ClaimsConfig struct {
	TTLDays int `yaml:"ttl_days" mapstructure:"ttl_days"`
}

// AuthConfig holds tenant API keys and the elevated admin key. All keys are
// resolved from configuration at startup; none are compiled in.
type AuthConfig struct {
	// TenantKeys maps API key -> tenant id.
	TenantKeys map[string]string `yaml:"tenant_keys" mapstructure:"tenant_keys"`
	// AdminKey grants privileged access across tenants when non-empty.
	AdminKey string `yaml:"admin_key" mapstructure:"admin_key"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LOOKBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "lookbook.db")
	v.SetDefault("blob.root_dir", "blobs")
	v.SetDefault("scrapehub.base_url", "https://api.scrapehub.dev/v2")
	v.SetDefault("scrapehub.source", "gmaps")
	// Empty defaults so AutomaticEnv can populate secrets without a file.
	v.SetDefault("scrapehub.token", "")
	v.SetDefault("scrapehub.webhook_secret", "")
	v.SetDefault("auth.admin_key", "")
	v.SetDefault("claims.ttl_days", 14)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
