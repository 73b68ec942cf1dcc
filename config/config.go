package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultConfigPath = "./config/config_local.yaml"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"local"`
	LogPath    string           `yaml:"log_path" env:"LOG_PATH" env-default:"./casesearch.log"`
	API        APIConfig        `yaml:"api"`
	Search     SearchConfig     `yaml:"search"`
	Voice      VoiceConfig      `yaml:"voice"`
	Cache      CacheConfig      `yaml:"cache"`
	HTTPServer HTTPServerConfig `yaml:"http_server"`
}

type APIConfig struct {
	BaseURL  string `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:7071/api"`
	Contract string `yaml:"contract" env:"API_CONTRACT" env-default:"standard"`
	// Timeout of 0 leaves the transport default in place.
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"0s"`
	Paths   PathsConfig   `yaml:"paths"`
}

// PathsConfig overrides endpoint paths; empty fields keep the contract's
// defaults.
type PathsConfig struct {
	List       string `yaml:"list"`
	Search     string `yaml:"search"`
	DateRange  string `yaml:"date_range"`
	Case       string `yaml:"case"`
	Statistics string `yaml:"statistics"`
}

type SearchConfig struct {
	PageSize          int           `yaml:"page_size" env:"SEARCH_PAGE_SIZE" env-default:"20"`
	RequireText       bool          `yaml:"require_text" env-default:"true"`
	AutoSubmitDelay   time.Duration `yaml:"auto_submit_delay" env-default:"500ms"`
	HighlightLanguage string        `yaml:"highlight_language" env:"SEARCH_HIGHLIGHT_LANGUAGE"`
}

type VoiceConfig struct {
	Command []string `yaml:"command" env:"VOICE_COMMAND" env-separator:" "`
	Locale  string   `yaml:"locale" env:"VOICE_LOCALE" env-default:"ar-SA"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"CACHE_ENABLED" env-default:"true"`
	TTL     time.Duration `yaml:"ttl" env-default:"10m"`
	// PrefetchWorkers bounds concurrent case lookups; 0 disables prefetch.
	PrefetchWorkers int `yaml:"prefetch_workers" env-default:"4"`
}

type HTTPServerConfig struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// MustLoad reads the config file at path (or the fallback chain when path
// is empty) and panics on any problem.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	if path == "" {
		path = fetchConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: error loading config file: %w", op, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// fetchConfigPath fetches config path from environment variable or default.
// Priority: flag > env > default.
func fetchConfigPath() string {
	if res := os.Getenv("CONFIG_PATH"); res != "" {
		return res
	}
	return defaultConfigPath
}

func validate(cfg *Config) error {
	switch cfg.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown env: %s", cfg.Env)
	}

	switch cfg.API.Contract {
	case "standard", "legacy":
	default:
		return fmt.Errorf("unknown api contract: %s", cfg.API.Contract)
	}

	if cfg.API.BaseURL == "" {
		return errors.New("api base_url is required")
	}

	if cfg.Search.PageSize <= 0 {
		return fmt.Errorf("search page_size must be positive, got %d", cfg.Search.PageSize)
	}

	if cfg.Cache.PrefetchWorkers < 0 {
		cfg.Cache.PrefetchWorkers = 0
	}

	return nil
}
