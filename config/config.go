package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Agent      AgentConfig      `yaml:"agent"`
	Prompt     PromptConfig     `yaml:"prompt"`
	App        AppConfig        `yaml:"app"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Configured reports whether both VAPID keys are present. When they are not,
// dispatch is disabled rather than the process refusing to start.
func (p *PushConfig) Configured() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	AgentScriptFile string  `yaml:"agent_script_file"`
}

// AgentConfig describes the background agent: its cache generation, the asset
// manifest pre-cached on install, and the allow-list of cacheable paths.
type AgentConfig struct {
	Generation      string   `yaml:"generation"`
	ScriptPath      string   `yaml:"script_path"`
	PrecacheAssets  []string `yaml:"precache_assets"`
	CacheablePaths  []string `yaml:"cacheable_paths"`
	NotificationTag string   `yaml:"notification_tag"`
}

// PromptConfig controls the permission prompt timing policy.
type PromptConfig struct {
	DwellSeconds         int           `yaml:"dwell_seconds"`
	DeclineCooldownHours int           `yaml:"decline_cooldown_hours"`
	Dwell                time.Duration `yaml:"-"` // Ignored by YAML parser
	DeclineCooldown      time.Duration `yaml:"-"`
}

// AppConfig feeds the generated web app manifest.
type AppConfig struct {
	Name            string `yaml:"name"`
	ShortName       string `yaml:"short_name"`
	ThemeColor      string `yaml:"theme_color"`
	BackgroundColor string `yaml:"background_color"`
	IconPath        string `yaml:"icon_path"`
	MaskableIcon    string `yaml:"maskable_icon_path"`
	BadgePath       string `yaml:"badge_icon_path"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path.
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

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Agent.Generation == "" {
		cfg.Agent.Generation = "v1"
	}
	if cfg.Agent.ScriptPath == "" {
		cfg.Agent.ScriptPath = "/agent.js"
	}
	if len(cfg.Agent.PrecacheAssets) == 0 {
		cfg.Agent.PrecacheAssets = []string{"/", "/manifest.webmanifest"}
	}
	if len(cfg.Agent.CacheablePaths) == 0 {
		cfg.Agent.CacheablePaths = []string{"/", "/manifest.webmanifest", "/static/"}
	}
	if cfg.Agent.NotificationTag == "" {
		cfg.Agent.NotificationTag = "webpush-backend"
	}

	if cfg.Prompt.DwellSeconds <= 0 {
		cfg.Prompt.DwellSeconds = 30
	}
	if cfg.Prompt.DeclineCooldownHours <= 0 {
		cfg.Prompt.DeclineCooldownHours = 24
	}
	cfg.Prompt.Dwell = time.Duration(cfg.Prompt.DwellSeconds) * time.Second
	cfg.Prompt.DeclineCooldown = time.Duration(cfg.Prompt.DeclineCooldownHours) * time.Hour

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	return &cfg, nil
}
