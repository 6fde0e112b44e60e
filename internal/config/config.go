// Package config loads the agent settings from an optional TOML file, the
// environment (VOID_ prefix) and a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papaburgs/voidinvestor/internal/pilot"
	"github.com/papaburgs/voidinvestor/internal/session"
	"github.com/papaburgs/voidinvestor/internal/spacetraders"
)

const (
	envPrefix  = "VOID"
	configType = "toml"

	BackendFile = "file"
	BackendSQL  = "sql"
)

type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Fleet     FleetConfig     `mapstructure:"fleet"`
	Agent     AgentConfig     `mapstructure:"agent"`
	API       APIConfig       `mapstructure:"api"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
}

type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	MaxInFlight  int           `mapstructure:"max_in_flight"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
}

type FleetConfig struct {
	PageSize         int    `mapstructure:"page_size"`
	FallbackWaypoint string `mapstructure:"fallback_waypoint"`
	ReservedCargo    string `mapstructure:"reserved_cargo"`
	MiningTrait      string `mapstructure:"mining_trait"`
	WaypointPageSize int    `mapstructure:"waypoint_page_size"`
}

type AgentConfig struct {
	Symbol  string `mapstructure:"symbol"`
	Faction string `mapstructure:"faction"`
}

type APIConfig struct {
	// BaseURL is what `config init` stores as the url. Cycles always read
	// the url from the store.
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RatePerSecond  int           `mapstructure:"rate_per_second"`
	BurstPerMinute int           `mapstructure:"burst_per_minute"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // file or sql
	Path    string `mapstructure:"path"`
	Driver  string `mapstructure:"driver"` // sqlite3, libsql, postgres, pgx
	DSN     string `mapstructure:"dsn"`
	// AuthToken is only used by the libsql driver.
	AuthToken string `mapstructure:"auth_token"`
	Section   string `mapstructure:"section"`
}

type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	pd := pilot.DefaultSettings()
	sd := session.DefaultSettings()

	v.SetDefault("scheduler.interval", 10*time.Second)
	v.SetDefault("scheduler.max_in_flight", 3)
	v.SetDefault("scheduler.cycle_timeout", 2*time.Minute)

	v.SetDefault("fleet.page_size", 5)
	v.SetDefault("fleet.fallback_waypoint", pd.FallbackWaypoint)
	v.SetDefault("fleet.reserved_cargo", pd.ReservedCargo)
	v.SetDefault("fleet.mining_trait", pd.MiningTrait)
	v.SetDefault("fleet.waypoint_page_size", pd.WaypointPageSize)

	v.SetDefault("agent.symbol", sd.AgentSymbol)
	v.SetDefault("agent.faction", sd.Faction)

	v.SetDefault("api.base_url", spacetraders.DefaultBaseURL)
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.rate_per_second", 2)
	v.SetDefault("api.burst_per_minute", 30)

	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.path", "./config/config.toml")
	v.SetDefault("store.driver", "sqlite3")
	v.SetDefault("store.dsn", "./config/voidinvestor.db")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.section", sd.Section)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.lock_ttl", 30*time.Second)

	v.SetDefault("log.level", "info")
}

// Load reads settings. path may be empty, in which case only defaults and
// the environment apply. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType(configType)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read settings file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive"))
	}
	if c.Scheduler.MaxInFlight < 1 {
		errs = append(errs, errors.New("scheduler.max_in_flight must be at least 1"))
	}
	if c.Fleet.PageSize < 1 {
		errs = append(errs, errors.New("fleet.page_size must be at least 1"))
	}
	if c.Fleet.WaypointPageSize < 1 {
		errs = append(errs, errors.New("fleet.waypoint_page_size must be at least 1"))
	}
	if c.API.RatePerSecond < 1 {
		errs = append(errs, errors.New("api.rate_per_second must be at least 1"))
	}
	if c.API.BurstPerMinute < 0 {
		errs = append(errs, errors.New("api.burst_per_minute must not be negative"))
	}
	if c.Fleet.FallbackWaypoint == "" {
		errs = append(errs, errors.New("fleet.fallback_waypoint is empty"))
	}
	if c.Store.Section == "" {
		errs = append(errs, errors.New("store.section is empty"))
	}
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is empty"))
		}
	case BackendSQL:
		if c.Store.Driver == "" || c.Store.DSN == "" {
			errs = append(errs, errors.New("store.driver and store.dsn are required for the sql backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	return errors.Join(errs...)
}

func (c *Config) Pilot() pilot.Settings {
	return pilot.Settings{
		FallbackWaypoint: c.Fleet.FallbackWaypoint,
		ReservedCargo:    c.Fleet.ReservedCargo,
		MiningTrait:      c.Fleet.MiningTrait,
		WaypointPageSize: c.Fleet.WaypointPageSize,
	}
}

func (c *Config) Session() session.Settings {
	return session.Settings{
		Section:     c.Store.Section,
		AgentSymbol: c.Agent.Symbol,
		Faction:     c.Agent.Faction,
	}
}
