// Package config loads craftgraph settings from an optional YAML file and
// CRAFTGRAPH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// CRAFTGRAPH_DATA_DIR or CRAFTGRAPH_FETCH_TIMEOUT.
const EnvPrefix = "CRAFTGRAPH"

// FileName is the config file searched for when no explicit path is given.
const FileName = "craftgraph"

// userHomeDir is a package-level variable for testing.
var userHomeDir = os.UserHomeDir

// Config is the complete runtime configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Log       LogConfig       `mapstructure:"log"`
}

// InventoryConfig locates the inventory database.
type InventoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// FetchConfig controls the remote catalog fetcher.
type FetchConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	OnStart   bool          `mapstructure:"on_start"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	// RedisAddr, when set, keeps fetch validators in Redis.
	RedisAddr string `mapstructure:"redis_addr"`
}

// HTTPConfig configures the REST API.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig configures the catalog file watcher.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "~/.craftgraph/data")
	v.SetDefault("inventory.db_path", "")
	v.SetDefault("fetch.enabled", true)
	v.SetDefault("fetch.on_start", true)
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", "craftgraph")
	v.SetDefault("fetch.redis_addr", "")
	v.SetDefault("http.addr", "127.0.0.1:8787")
	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce", 250*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads the configuration. When path is empty, craftgraph.yaml is
// looked up in the working directory and ~/.craftgraph; a missing file is
// not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := userHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".craftgraph"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize expands "~" and derives the database path from the data dir.
func (c *Config) normalize() error {
	c.DataDir = strings.TrimSpace(c.DataDir)
	dir, err := expandHome(c.DataDir)
	if err != nil {
		return err
	}
	c.DataDir = dir

	c.Inventory.DBPath = strings.TrimSpace(c.Inventory.DBPath)
	if c.Inventory.DBPath == "" && c.DataDir != "" {
		c.Inventory.DBPath = filepath.Join(c.DataDir, "inventory.db")
	}
	if c.Inventory.DBPath, err = expandHome(c.Inventory.DBPath); err != nil {
		return err
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	return nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.DataDir == "":
		return fmt.Errorf("config: data_dir must not be empty")
	case c.Fetch.Timeout <= 0:
		return fmt.Errorf("config: fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	case c.Watch.Debounce <= 0:
		return fmt.Errorf("config: watch.debounce must be positive, got %s", c.Watch.Debounce)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
