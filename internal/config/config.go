package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int               `json:"port"`
	JWTSecret     string            `json:"jwt_secret"`
	JWTTTLHours   int               `json:"jwt_ttl_hours"`
	LogConfig     logger.LogConfig  `json:"log_config"`
	Database      DatabaseConfig    `json:"database"`
	Docs          DocsConfig        `json:"docs"`
	SettingsDir   string            `json:"settings_dir"`
	FileStore     FileStoreConfig   `json:"file_store"`
	License       LicenseConfig     `json:"license"`
	RedisURL      string            `json:"redis_url"`
	Meilisearch   MeilisearchConfig `json:"meilisearch"`
	RenderCache   RenderCacheConfig `json:"render_cache"`
	CORSAllowlist []string          `json:"cors_allowlist"`
	Jobs          JobsConfig        `json:"jobs"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
	Path     string `json:"path"`
}

type DocsConfig struct {
	Root     string `json:"root"`
	MetaFile string `json:"meta_file"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type LicenseConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type MeilisearchConfig struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

type RenderCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

type JobsConfig struct {
	TreeCheck      string `json:"tree_check"`
	PromotionSweep string `json:"promotion_sweep"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a JSON config. Comments and trailing commas are accepted.
func Parse(raw []byte) (*Config, error) {
	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch cfg.Database.Driver {
	case "", "postgres":
		cfg.Database.Driver = "postgres"
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
	case "sqlite":
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	if cfg.Docs.Root == "" {
		return fmt.Errorf("docs.root is required")
	}
	if cfg.Docs.MetaFile == "" {
		cfg.Docs.MetaFile = "meta.json"
	}
	if cfg.SettingsDir == "" {
		return fmt.Errorf("settings_dir is required")
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.FileStore.Type == "local" && cfg.FileStore.Data == nil {
		cfg.FileStore.Data = map[string]interface{}{"dir": filepath.Join(cfg.SettingsDir, "avatars")}
	}
	if cfg.License.BaseURL == "" {
		cfg.License.BaseURL = "https://lic.yetanotherwiki.com"
	}
	if cfg.License.TimeoutSeconds == 0 {
		cfg.License.TimeoutSeconds = 10
	}
	if cfg.RenderCache.Size == 0 {
		cfg.RenderCache.Size = 256
	}
	if cfg.RenderCache.TTLSeconds == 0 {
		cfg.RenderCache.TTLSeconds = 600
	}
	if cfg.Jobs.TreeCheck == "" {
		cfg.Jobs.TreeCheck = "*/30 * * * *"
	}
	if cfg.Jobs.PromotionSweep == "" {
		cfg.Jobs.PromotionSweep = "0 * * * *"
	}
	return nil
}
