package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Manager loads configuration through Viper and supports hot reload of
// the config file.
type Manager struct {
	v          *viper.Viper
	configPath string
	cfg        *Config
}

// NewManager creates a manager reading the optional YAML file at
// configPath. An empty path means defaults plus environment only.
func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// Load reads defaults, the config file (if present) and SENTINEL_*
// environment overrides, then validates the result.
func (m *Manager) Load() (*Config, error) {
	m.v = viper.New()

	if m.configPath != "" {
		m.v.SetConfigFile(m.configPath)
		m.v.SetConfigType("yaml")
	}

	m.v.SetEnvPrefix("SENTINEL")
	m.v.AutomaticEnv()
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	if m.configPath != "" {
		if err := m.v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				// Missing file is fine, run on defaults + env.
			} else if os.IsNotExist(err) {
				// Same, reported through the OS path.
			} else {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg, err := m.unmarshal()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	m.cfg = cfg
	return cfg, nil
}

// Get returns the last loaded configuration.
func (m *Manager) Get() *Config { return m.cfg }

// Watch re-reads the config file whenever it changes and invokes
// onChange with the new configuration. Invalid updates are dropped.
func (m *Manager) Watch(onChange func(Config)) {
	if m.configPath == "" {
		return
	}
	m.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := m.unmarshal()
		if err != nil || cfg.Validate() != nil {
			return
		}
		m.cfg = cfg
		onChange(*cfg)
	})
	m.v.WatchConfig()
}

func (m *Manager) unmarshal() (*Config, error) {
	cfg := &Config{}

	cfg.Server.Host = m.v.GetString("server.host")
	cfg.Server.Port = m.v.GetInt("server.port")
	cfg.Server.AllowedOrigins = m.v.GetStringSlice("server.allowed_origins")
	cfg.Server.RateLimitPerMinute = m.v.GetInt("server.rate_limit_per_minute")

	cfg.Model.Contamination = m.v.GetFloat64("model.contamination")
	cfg.Model.NumTrees = m.v.GetInt("model.num_trees")
	cfg.Model.SampleSize = m.v.GetInt("model.sample_size")
	cfg.Model.Seed = m.v.GetInt64("model.seed")
	cfg.Model.StorePath = m.v.GetString("model.store_path")

	cfg.Bootstrap.Samples = m.v.GetInt("bootstrap.samples")
	cfg.Bootstrap.Seed = m.v.GetInt64("bootstrap.seed")

	cfg.Logging.Level = m.v.GetString("logging.level")
	cfg.Logging.Format = m.v.GetString("logging.format")
	cfg.Logging.File = m.v.GetString("logging.file")
	cfg.Logging.MaxSizeMB = m.v.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = m.v.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = m.v.GetInt("logging.max_age_days")
	cfg.Logging.Compress = m.v.GetBool("logging.compress")

	return cfg, nil
}

func (m *Manager) setDefaults() {
	m.v.SetDefault("server.host", "0.0.0.0")
	m.v.SetDefault("server.port", 5000)
	m.v.SetDefault("server.allowed_origins", []string{"*"})
	m.v.SetDefault("server.rate_limit_per_minute", 0)

	m.v.SetDefault("model.contamination", 0.1)
	m.v.SetDefault("model.num_trees", 100)
	m.v.SetDefault("model.sample_size", 256)
	m.v.SetDefault("model.seed", 42)
	m.v.SetDefault("model.store_path", "")

	m.v.SetDefault("bootstrap.samples", 10000)
	m.v.SetDefault("bootstrap.seed", 42)

	m.v.SetDefault("logging.level", "info")
	m.v.SetDefault("logging.format", "json")
	m.v.SetDefault("logging.file", "")
	m.v.SetDefault("logging.max_size_mb", 100)
	m.v.SetDefault("logging.max_backups", 10)
	m.v.SetDefault("logging.max_age_days", 30)
	m.v.SetDefault("logging.compress", true)
}
