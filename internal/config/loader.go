// Package config loads eae-status settings from defaults, an optional YAML
// file, EAE_* environment variables and runtime overrides, in increasing
// order of precedence.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/3leaps/eae-utils/pkg/defines"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "EAE"

// AppName names the per-user data directory.
const AppName = "eae-status"

// ConfigFileEnv names a YAML config file to merge before env overrides.
const ConfigFileEnv = EnvPrefix + "_CONFIG"

// Config is the resolved process configuration.
type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Store   StoreConfig   `mapstructure:"store"`
	Status  StatusConfig  `mapstructure:"status"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServiceConfig identifies the service whose status is published.
type ServiceConfig struct {
	Type        string   `mapstructure:"type"`
	Port        int      `mapstructure:"port"`
	ComputeType []string `mapstructure:"compute_type"`
	Version     string   `mapstructure:"version"`
}

// StoreConfig points at the status store. An empty URL disables syncing.
type StoreConfig struct {
	URL string `mapstructure:"url"`
}

type StatusConfig struct {
	UpdateInterval time.Duration `mapstructure:"update_interval"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// ServerConfig controls the optional HTTP surface.
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// envAliases maps config keys to extra environment variables accepted in
// addition to the EAE_<SECTION>_<KEY> form.
var envAliases = map[string][]string{
	"service.port":           {EnvPrefix + "_PORT"},
	"store.url":              {EnvPrefix + "_MONGO_URL"},
	"logging.level":          {EnvPrefix + "_LOG_LEVEL"},
	"status.update_interval": {EnvPrefix + "_UPDATE_INTERVAL"},
}

// SetDefaults registers the default value of every known key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("service.type", defines.DefaultServiceType)
	v.SetDefault("service.port", 0)
	v.SetDefault("service.compute_type", []string{})
	v.SetDefault("service.version", "")

	v.SetDefault("store.url", "")

	v.SetDefault("status.update_interval", defines.DefaultUpdateInterval)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("metrics.enabled", true)
}

// Load resolves the configuration. A file named by EAE_CONFIG is merged when
// set; overrides are applied last, in order.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, os.Getenv(ConfigFileEnv), overrides...)
}

// LoadFile is Load with an explicit config file path. An empty path skips the
// file layer.
func LoadFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{envName(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// flatten turns nested override maps into dotted keys so each leaf takes
// precedence over env without replacing its siblings.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, val := range m {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}

// DefaultSQLiteURL points at status.db in the app data directory. A bare
// "sqlite://" store URL resolves to it.
func DefaultSQLiteURL() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	return "sqlite://" + filepath.Join(dataDir, "status.db")
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (c *Config) normalize() {
	c.Service.Type = strings.TrimSpace(c.Service.Type)
	if c.Service.Type == "" {
		c.Service.Type = defines.DefaultServiceType
	}
	cleaned := make([]string, 0, len(c.Service.ComputeType))
	for _, ct := range c.Service.ComputeType {
		if ct = strings.TrimSpace(ct); ct != "" {
			cleaned = append(cleaned, ct)
		}
	}
	c.Service.ComputeType = cleaned
	c.Store.URL = strings.TrimSpace(c.Store.URL)
	if c.Store.URL == "sqlite:" || c.Store.URL == "sqlite://" {
		c.Store.URL = DefaultSQLiteURL()
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Profile = strings.ToLower(strings.TrimSpace(c.Logging.Profile))
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Service.Port < 0 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port %d out of range", c.Service.Port)
	}
	if c.Status.UpdateInterval <= 0 {
		return fmt.Errorf("status.update_interval must be positive, got %s", c.Status.UpdateInterval)
	}
	switch c.Logging.Profile {
	case "structured", "console":
	default:
		return fmt.Errorf("logging.profile %q must be structured or console", c.Logging.Profile)
	}
	if c.Server.Enabled && (c.Server.Port < 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
