package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// LandConfig tunes territory claiming.
type LandConfig struct {
	// Power a clan must hold per claimed chunk.
	PowerPerChunk float64 `yaml:"power_per_chunk"`
	// Max chunks transferred by one solo auto-claim pass (0 = unlimited).
	SoloAutoClaimMax int `yaml:"solo_auto_claim_max"`
}

// PowerConfig tunes the per-player power resource.
type PowerConfig struct {
	Initial            float64       `yaml:"initial"`
	Max                float64       `yaml:"max"`
	SoloRegenPerMinute float64       `yaml:"solo_regen_per_minute"`
	ClanRegenPerMinute float64       `yaml:"clan_regen_per_minute"`
	DeathPenalty       float64       `yaml:"death_penalty"`
	Floor              float64       `yaml:"floor"` // may be negative (power debt)
	RegenInterval      time.Duration `yaml:"regen_interval"`
	AggregateCacheTTL  time.Duration `yaml:"aggregate_cache_ttl"`
	AggregateCacheSize int           `yaml:"aggregate_cache_size"`
}

// ShieldConfig tunes raid protection.
type ShieldConfig struct {
	CostPerHourCents int64 `yaml:"cost_per_hour_cents"`
	// Quiet window [start, end) in server-local hours; the shield
	// countdown is frozen inside it.
	QuietStartHour int `yaml:"quiet_start_hour"`
	QuietEndHour   int `yaml:"quiet_end_hour"`
	// Remaining duration below which a shield-expiring notification fires.
	CriticalRemaining time.Duration `yaml:"critical_remaining"`
}

// UpgradeConfig is the cost curve for one upgrade type.
type UpgradeConfig struct {
	BaseCostCents int64 `yaml:"base_cost_cents"`
	MaxLevel      int32 `yaml:"max_level"`
}

// UpgradesConfig holds all four clan upgrade types.
type UpgradesConfig struct {
	SpawnerRate      UpgradeConfig `yaml:"spawner_rate"`
	CropGrowth       UpgradeConfig `yaml:"crop_growth"`
	ExpBoost         UpgradeConfig `yaml:"exp_boost"`
	ExtraShieldHours UpgradeConfig `yaml:"extra_shield_hours"`
}

// AsyncConfig bounds the background persistence writer.
type AsyncConfig struct {
	Workers      int           `yaml:"workers"`
	QueueSize    int           `yaml:"queue_size"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Config holds all configuration for the factions server.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Database DatabaseConfig `yaml:"database"`
	Land     LandConfig     `yaml:"land"`
	Power    PowerConfig    `yaml:"power"`
	Shield   ShieldConfig   `yaml:"shield"`
	Upgrades UpgradesConfig `yaml:"upgrades"`
	Async    AsyncConfig    `yaml:"async"`
}

// Default returns Config with sensible defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "factions",
			Password: "factions",
			DBName:   "factions",
			SSLMode:  "disable",
		},
		Land: LandConfig{
			PowerPerChunk:    10.0,
			SoloAutoClaimMax: 16,
		},
		Power: PowerConfig{
			Initial:            10.0,
			Max:                50.0,
			SoloRegenPerMinute: 0.4,
			ClanRegenPerMinute: 0.2,
			DeathPenalty:       4.0,
			Floor:              -10.0,
			RegenInterval:      time.Minute,
			AggregateCacheTTL:  30 * time.Second,
			AggregateCacheSize: 512,
		},
		Shield: ShieldConfig{
			CostPerHourCents:  50_000,
			QuietStartHour:    0,
			QuietEndHour:      6,
			CriticalRemaining: 30 * time.Minute,
		},
		Upgrades: UpgradesConfig{
			SpawnerRate:      UpgradeConfig{BaseCostCents: 100_000, MaxLevel: 5},
			CropGrowth:       UpgradeConfig{BaseCostCents: 80_000, MaxLevel: 5},
			ExpBoost:         UpgradeConfig{BaseCostCents: 120_000, MaxLevel: 5},
			ExtraShieldHours: UpgradeConfig{BaseCostCents: 150_000, MaxLevel: 3},
		},
		Async: AsyncConfig{
			Workers:      4,
			QueueSize:    256,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Load loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
