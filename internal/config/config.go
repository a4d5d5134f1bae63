package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultSocketPath    = "/tmp/lyricd.sock"
	DefaultHTTPAddr      = "127.0.0.1:8766"
	DefaultCheckInterval = 5 * time.Second
	DefaultTickInterval  = 50 * time.Millisecond
	DefaultCacheTTL      = 30 * 24 * time.Hour
	DefaultMinDwell      = 3.0
	DefaultExitLead      = 0.5
)

func getDefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "lyricd")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "lyricd_cache"
	}
	return filepath.Join(homeDir, ".cache", "lyricd")
}

// TomlConfig mirrors the config file layout.
type TomlConfig struct {
	App struct {
		SocketPath    string `toml:"socket_path"`
		HTTPAddr      string `toml:"http_addr"`
		CheckInterval string `toml:"check_interval"`
		TickInterval  string `toml:"tick_interval"`
		CacheDir      string `toml:"cache_dir"`
	} `toml:"app"`

	Catalog struct {
		BaseURL string `toml:"base_url"`
	} `toml:"catalog"`

	LRCLib struct {
		Disabled bool   `toml:"disabled"`
		BaseURL  string `toml:"base_url"`
	} `toml:"lrclib"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		TTL      string `toml:"ttl"`
	} `toml:"redis"`

	Display struct {
		MinDwell float64 `toml:"min_dwell"`
		ExitLead float64 `toml:"exit_lead"`
	} `toml:"display"`
}

type AppConfig struct {
	SocketPath    string
	HTTPAddr      string
	CheckInterval time.Duration
	TickInterval  time.Duration
	CacheDir      string
}

type CatalogConfig struct {
	BaseURL string
}

type LRCLibConfig struct {
	Disabled bool
	BaseURL  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// DisplayConfig carries the display-window hysteresis thresholds.
type DisplayConfig struct {
	MinDwell float64
	ExitLead float64
}

type Config struct {
	App     AppConfig
	Catalog CatalogConfig
	LRCLib  LRCLibConfig
	Redis   RedisConfig
	Display DisplayConfig
}

func getConfigPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lyricd", "config.toml")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("WARN: Cannot get user home directory: %v", err)
		return "config.toml"
	}
	return filepath.Join(homeDir, ".config", "lyricd", "config.toml")
}

func loadTomlConfig() (*TomlConfig, error) {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("INFO: Config file not found at %s, using defaults", configPath)
		return &TomlConfig{}, nil
	}

	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, err
	}

	log.Printf("INFO: Loaded config from %s", configPath)
	return &config, nil
}

func Load() *Config {
	// A .env next to the binary may supply env overrides; absence is fine.
	_ = godotenv.Load()

	tomlConfig, err := loadTomlConfig()
	if err != nil {
		log.Printf("ERROR: Failed to load config file: %v", err)
		log.Printf("INFO: Using default configuration")
		tomlConfig = &TomlConfig{}
	}

	config := &Config{
		App: AppConfig{
			SocketPath:    DefaultSocketPath,
			HTTPAddr:      DefaultHTTPAddr,
			CheckInterval: DefaultCheckInterval,
			TickInterval:  DefaultTickInterval,
			CacheDir:      getDefaultCacheDir(),
		},
		Catalog: CatalogConfig{},
		LRCLib:  LRCLibConfig{},
		Redis: RedisConfig{
			Addr: "",
			DB:   0,
			TTL:  DefaultCacheTTL,
		},
		Display: DisplayConfig{
			MinDwell: DefaultMinDwell,
			ExitLead: DefaultExitLead,
		},
	}

	if tomlConfig.App.SocketPath != "" {
		config.App.SocketPath = tomlConfig.App.SocketPath
	}
	if tomlConfig.App.HTTPAddr != "" {
		config.App.HTTPAddr = tomlConfig.App.HTTPAddr
	}
	if tomlConfig.App.CheckInterval != "" {
		if duration, err := time.ParseDuration(tomlConfig.App.CheckInterval); err == nil {
			config.App.CheckInterval = duration
		} else {
			log.Printf("WARN: Invalid check_interval format '%s', using default", tomlConfig.App.CheckInterval)
		}
	}
	if tomlConfig.App.TickInterval != "" {
		if duration, err := time.ParseDuration(tomlConfig.App.TickInterval); err == nil {
			config.App.TickInterval = duration
		} else {
			log.Printf("WARN: Invalid tick_interval format '%s', using default", tomlConfig.App.TickInterval)
		}
	}
	if tomlConfig.App.CacheDir != "" {
		config.App.CacheDir = tomlConfig.App.CacheDir
	}

	if tomlConfig.Catalog.BaseURL != "" {
		config.Catalog.BaseURL = tomlConfig.Catalog.BaseURL
	}

	config.LRCLib.Disabled = tomlConfig.LRCLib.Disabled
	if tomlConfig.LRCLib.BaseURL != "" {
		config.LRCLib.BaseURL = tomlConfig.LRCLib.BaseURL
	}

	if tomlConfig.Redis.Addr != "" {
		config.Redis.Addr = tomlConfig.Redis.Addr
	}
	if tomlConfig.Redis.Password != "" {
		config.Redis.Password = tomlConfig.Redis.Password
	}
	if tomlConfig.Redis.DB != 0 {
		config.Redis.DB = tomlConfig.Redis.DB
	}
	if tomlConfig.Redis.TTL != "" {
		if duration, err := time.ParseDuration(tomlConfig.Redis.TTL); err == nil {
			config.Redis.TTL = duration
		} else {
			log.Printf("WARN: Invalid redis ttl format '%s', using default", tomlConfig.Redis.TTL)
		}
	}

	if tomlConfig.Display.MinDwell > 0 {
		config.Display.MinDwell = tomlConfig.Display.MinDwell
	}
	if tomlConfig.Display.ExitLead > 0 {
		config.Display.ExitLead = tomlConfig.Display.ExitLead
	}

	// Env overrides, for container setups where a file is awkward.
	if v := os.Getenv("LYRICD_CATALOG_URL"); v != "" {
		config.Catalog.BaseURL = v
	}
	if v := os.Getenv("LYRICD_REDIS_ADDR"); v != "" {
		config.Redis.Addr = v
	}

	if config.Catalog.BaseURL == "" {
		log.Printf("WARN: No catalog base URL configured (catalog.base_url or LYRICD_CATALOG_URL).")
		log.Printf("WARN: Lyrics will only be fetched from lrclib by track title.")
	}

	return config
}
