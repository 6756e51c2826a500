// Package runtimeconfig holds the supervisor's own app-level settings --
// as opposed to pkg/target, which holds the declarative process/service
// state it's supervising. Loaded via viper; Manager.Watch swaps in a freshly
// validated Config when the file changes. The log_level setting is not
// applied to the logger, which runs at info level.
package runtimeconfig

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the supervisor's own operating parameters.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	AdminHost string `mapstructure:"admin_host"`
	AdminPort int    `mapstructure:"admin_port"`

	LoopbackPortRangeStart int `mapstructure:"loopback_port_range_start"`
	LoopbackPortRangeEnd   int `mapstructure:"loopback_port_range_end"`

	HousekeepingIntervalSeconds int `mapstructure:"housekeeping_interval_seconds"`
	StartIntervalSeconds        int `mapstructure:"start_interval_seconds"`
	HealthIntervalSeconds       int `mapstructure:"health_interval_seconds"`

	SNATEnabled bool   `mapstructure:"snat_enabled"`
	SNATChainIP string `mapstructure:"snat_ip"`

	TargetPath string `mapstructure:"target_path"`
	AuthPath   string `mapstructure:"auth_path"`
}

// setDefaults mirrors original_source's hardcoded housekeeping/start/health
// interval constants and the supervisor's default file paths.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("admin_host", "0.0.0.0")
	v.SetDefault("admin_port", 9443)
	v.SetDefault("loopback_port_range_start", 10000)
	v.SetDefault("loopback_port_range_end", 20000)
	v.SetDefault("housekeeping_interval_seconds", 3)
	v.SetDefault("start_interval_seconds", 2)
	v.SetDefault("health_interval_seconds", 60)
	v.SetDefault("snat_enabled", false)
	v.SetDefault("target_path", "hjz-target.yaml")
	v.SetDefault("auth_path", ".hjz-auth.yaml")
}

func validate(cfg *Config) error {
	if cfg.LoopbackPortRangeStart <= 0 || cfg.LoopbackPortRangeEnd <= cfg.LoopbackPortRangeStart {
		return fmt.Errorf("loopback_port_range_start/end must describe a non-empty range, got [%d, %d)",
			cfg.LoopbackPortRangeStart, cfg.LoopbackPortRangeEnd)
	}
	if cfg.AdminPort <= 0 || cfg.AdminPort > 65535 {
		return fmt.Errorf("admin_port must be a valid TCP port, got %d", cfg.AdminPort)
	}
	if cfg.HousekeepingIntervalSeconds <= 0 || cfg.StartIntervalSeconds <= 0 || cfg.HealthIntervalSeconds <= 0 {
		return fmt.Errorf("all interval settings must be positive")
	}
	return nil
}

// Manager owns the loaded Config and optionally watches its source file for
// changes, swapping in a freshly validated Config on every reload.
type Manager struct {
	viper      *viper.Viper
	configPath string
	mu         sync.RWMutex
	current    *Config
	onChange   chan struct{}
	logger     *zap.Logger
}

// Load reads configPath (if non-empty; otherwise defaults are used as-is),
// validates it, and returns a ready Manager.
func Load(configPath string, logger *zap.Logger) (*Manager, error) {
	v := viper.New()
	setDefaults(v)

	m := &Manager{
		viper:      v,
		configPath: configPath,
		onChange:   make(chan struct{}, 1),
		logger:     logger,
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	cfg, err := m.reload()
	if err != nil {
		return nil, err
	}
	m.current = cfg
	return m, nil
}

func (m *Manager) reload() (*Config, error) {
	if m.configPath != "" {
		if err := m.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read runtime config file: %w", err)
		}
	}

	var cfg Config
	if err := m.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal runtime config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("runtime config validation failed: %w", err)
	}
	return &cfg, nil
}

// Watch starts watching configPath for changes, hot-swapping Config on every
// valid reload. A no-op if Load was called with an empty configPath.
func (m *Manager) Watch() {
	if m.configPath == "" {
		return
	}
	m.viper.OnConfigChange(func(event fsnotify.Event) {
		m.logger.Info("runtime config file changed", zap.String("file", event.Name))
		cfg, err := m.reload()
		if err != nil {
			m.logger.Error("failed to reload runtime config, keeping previous config", zap.Error(err))
			return
		}
		m.mu.Lock()
		m.current = cfg
		m.mu.Unlock()
		select {
		case m.onChange <- struct{}{}:
		default:
		}
	})
	m.viper.WatchConfig()
}

// Current returns a snapshot of the active Config.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnChange signals whenever a hot reload swaps in a new Config.
func (m *Manager) OnChange() <-chan struct{} {
	return m.onChange
}
