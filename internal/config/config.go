package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	FileName  = "driftline"
	EnvPrefix = "DRIFTLINE"
)

type Config struct {
	LogLevel  string `mapstructure:"logLevel"`
	LogFormat string `mapstructure:"logFormat"`

	Addr      string `mapstructure:"addr"`
	DataDir   string `mapstructure:"dataDir"`
	ConfigDir string `mapstructure:"configDir"`
	// Scenario is resolved against ConfigDir when relative.
	Scenario string `mapstructure:"scenario"`
	WorldID  string `mapstructure:"worldId"`
	Seed     int64  `mapstructure:"seed"`

	DevChecks bool `mapstructure:"devChecks"`

	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Index    IndexConfig    `mapstructure:"index"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Observer ObserverConfig `mapstructure:"observer"`
}

type SnapshotConfig struct {
	// EveryDays overrides tuning.snapshot_every_days when > 0.
	EveryDays int  `mapstructure:"everyDays"`
	Restore   bool `mapstructure:"restore"`
}

type IndexConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ObserverConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "json")

	v.SetDefault("addr", "127.0.0.1:8090")
	v.SetDefault("dataDir", "./data")
	v.SetDefault("configDir", "./configs")
	v.SetDefault("scenario", "scenario.yaml")
	v.SetDefault("worldId", "driftline")
	v.SetDefault("seed", 1337)

	v.SetDefault("devChecks", false)

	v.SetDefault("snapshot.everyDays", 0)
	v.SetDefault("snapshot.restore", true)

	v.SetDefault("index.enabled", true)
	v.SetDefault("index.path", "")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("observer.enabled", true)
}

// Load reads driftline.yaml from dir, when present, on top of the defaults.
// Environment variables such as DRIFTLINE_INDEX_ENABLED override both.
func Load(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: dataDir is required")
	}
	if c.Snapshot.EveryDays < 0 {
		return fmt.Errorf("config: snapshot.everyDays must be >= 0")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("config: logFormat must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// WorldDir holds snapshots, logs and the index of the configured world.
func (c Config) WorldDir() string { return filepath.Join(c.DataDir, "worlds", c.WorldID) }

func (c Config) SnapshotDir() string { return filepath.Join(c.WorldDir(), "snapshots") }

func (c Config) CatalogDir() string { return filepath.Join(c.ConfigDir, "catalogs") }

func (c Config) TuningPath() string { return filepath.Join(c.ConfigDir, "tuning.yaml") }

func (c Config) ScenarioPath() string {
	if filepath.IsAbs(c.Scenario) {
		return c.Scenario
	}
	return filepath.Join(c.ConfigDir, c.Scenario)
}

func (c Config) IndexPath() string {
	if c.Index.Path != "" {
		return c.Index.Path
	}
	return filepath.Join(c.WorldDir(), "index.sqlite")
}
