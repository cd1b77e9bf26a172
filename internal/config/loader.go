package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "NETDIAG",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "NETDIAG",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (NETDIAG_*)
// 3. Project config (.netdiag.yaml in current directory)
// 4. User config (~/.config/netdiag/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".netdiag")
		l.v.SetConfigType("yaml")

		// Project config takes precedence over user config.
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "netdiag"))
		}
	}

	// Missing config file is fine; defaults plus env carry the day.
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// External targets file supplements the inline list.
	if cfg.TargetsFile != "" {
		targets, err := LoadTargets(cfg.TargetsFile)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, targets...)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path of the file viper actually read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("name", "default")

	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("paths.data_dir", ".netdiag/data")
	l.v.SetDefault("paths.output_dir", ".netdiag/reports")
	l.v.SetDefault("paths.log_dir", ".netdiag/logs")
	l.v.SetDefault("paths.cache_dir", ".netdiag/cache")

	l.v.SetDefault("probe.resolve_timeout", "5s")
	l.v.SetDefault("probe.connect_timeout", "5s")
	l.v.SetDefault("probe.handshake_timeout", "10s")
	l.v.SetDefault("probe.http_timeout", "15s")
	l.v.SetDefault("probe.trace_timeout", "5m")
	l.v.SetDefault("probe.max_tcp_attempts", 3)

	l.v.SetDefault("runner.concurrency", 5)
	l.v.SetDefault("runner.run_timeout", "10m")

	l.v.SetDefault("schedule.enabled", false)
	l.v.SetDefault("schedule.interval", "15m")
	l.v.SetDefault("schedule.monitor_interval", "1m")

	l.v.SetDefault("server.addr", "127.0.0.1:8844")
	l.v.SetDefault("server.allowed_origins", []string{"*"})

	l.v.SetDefault("monitor.enabled", true)
	l.v.SetDefault("recovery.enabled", true)
}
