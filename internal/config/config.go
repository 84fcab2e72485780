package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml"
)

// Config holds all application configuration. Defaults are applied first,
// then an optional TOML file named by ARTEMIS_CONFIG_FILE, then environment
// variables — each layer only overrides the fields it actually sets, so a
// deployment can template a base file and override individual knobs per
// instance via env without the file's other settings reverting to default.
type Config struct {
	// Server
	Host     string `toml:"host" env:"ARTEMIS_HOST"`
	Port     int    `toml:"port" env:"ARTEMIS_PORT"`
	RegionID string `toml:"region_id" env:"ARTEMIS_REGION_ID"`
	ZoneID   string `toml:"zone_id" env:"ARTEMIS_ZONE_ID"`
	NodeID   string `toml:"node_id" env:"ARTEMIS_NODE_ID"`

	// Registry
	LeaseTTLSeconds    int `toml:"lease_ttl_seconds" env:"ARTEMIS_LEASE_TTL_SECONDS"`
	EvictionIntervalMs int `toml:"eviction_interval_ms" env:"ARTEMIS_EVICTION_INTERVAL_MS"`
	RateLimitRPS       int `toml:"rate_limit_rps" env:"ARTEMIS_RATE_LIMIT_RPS"`

	// Cluster
	ClusterEnabled          bool     `toml:"cluster_enabled" env:"ARTEMIS_CLUSTER_ENABLED"`
	ClusterPeerNodes        []string `toml:"cluster_peer_nodes" env:"ARTEMIS_CLUSTER_PEER_NODES" envSeparator:","`
	ClusterHeartbeatSeconds int      `toml:"cluster_heartbeat_seconds" env:"ARTEMIS_CLUSTER_HEARTBEAT_SECONDS"`
	ClusterTimeoutSeconds   int      `toml:"cluster_timeout_seconds" env:"ARTEMIS_CLUSTER_TIMEOUT_SECONDS"`

	// Auxiliary persistence (optional: canary/route/zone-operation config).
	// Left empty, the registry and discovery paths still work; only the
	// management API and its filters are no-ops.
	DatabaseURL            string `toml:"database_url" env:"ARTEMIS_DATABASE_URL"`
	DatabaseMaxConns       int    `toml:"database_max_connections" env:"ARTEMIS_DATABASE_MAX_CONNECTIONS"`
	MigrationsDir          string `toml:"migrations_dir" env:"ARTEMIS_MIGRATIONS_DIR"`
	AuxiliaryReloadSeconds int    `toml:"auxiliary_reload_seconds" env:"ARTEMIS_AUXILIARY_RELOAD_SECONDS"`

	// Optional cross-node cache of auxiliary config, used to warm a
	// restarting node's management state before its own DB load completes.
	RedisURL string `toml:"redis_url" env:"ARTEMIS_REDIS_URL"`

	// Logging
	LogLevel  string `toml:"log_level" env:"ARTEMIS_LOG_LEVEL"`
	LogFormat string `toml:"log_format" env:"ARTEMIS_LOG_FORMAT"`

	// CORS
	CORSAllowedOrigins []string `toml:"cors_allowed_origins" env:"ARTEMIS_CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// defaults returns the baseline Config before any file or env layer is
// applied.
func defaults() *Config {
	return &Config{
		Host:                    "0.0.0.0",
		Port:                    8761,
		RegionID:                "default",
		ZoneID:                  "default",
		LeaseTTLSeconds:         30,
		EvictionIntervalMs:      10000,
		RateLimitRPS:            1000,
		ClusterHeartbeatSeconds: 10,
		ClusterTimeoutSeconds:   30,
		DatabaseMaxConns:        10,
		MigrationsDir:           "migrations",
		AuxiliaryReloadSeconds:  60,
		LogLevel:                "info",
		LogFormat:               "json",
		CORSAllowedOrigins:      []string{"*"},
	}
}

// Load builds a Config from defaults, an optional TOML file named by
// ARTEMIS_CONFIG_FILE, then environment variables, in that order of
// increasing precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("ARTEMIS_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}

	if cfg.NodeID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "artemis-node"
		}
		cfg.NodeID = fmt.Sprintf("%s:%d", host, cfg.Port)
	}

	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HasDatabase reports whether auxiliary persistence is configured.
func (c *Config) HasDatabase() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

// HasRedis reports whether the optional cross-node auxiliary cache is
// configured.
func (c *Config) HasRedis() bool {
	return strings.TrimSpace(c.RedisURL) != ""
}
