// Package config defines the toolkit configuration, its loading precedence
// and validation, plus live reload of the targets file.
package config

import (
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/probe"
)

// Config is the complete toolkit configuration.
type Config struct {
	// Name scopes log and report directories; "default" when unset.
	Name string `mapstructure:"name"`

	Log      LogConfig      `mapstructure:"log"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Server   ServerConfig   `mapstructure:"server"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Recovery RecoveryConfig `mapstructure:"recovery"`

	// Targets may be declared inline or loaded from TargetsFile; inline
	// entries win when both are present.
	Targets     []probe.Target `mapstructure:"targets"`
	TargetsFile string         `mapstructure:"targets_file"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // auto, text, json
}

// PathsConfig locates the durable state directories.
type PathsConfig struct {
	DataDir   string `mapstructure:"data_dir"`
	OutputDir string `mapstructure:"output_dir"`
	LogDir    string `mapstructure:"log_dir"`
	CacheDir  string `mapstructure:"cache_dir"`
}

// ProbeConfig bounds the probe stages.
type ProbeConfig struct {
	ResolveTimeout   time.Duration `mapstructure:"resolve_timeout"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	TraceTimeout     time.Duration `mapstructure:"trace_timeout"`
	MaxTCPAttempts   int           `mapstructure:"max_tcp_attempts"`
	InsecureTLS      bool          `mapstructure:"insecure_tls"`
}

// ToProbe converts to the prober's own configuration.
func (p ProbeConfig) ToProbe() probe.Config {
	return probe.Config{
		ResolveTimeout:   p.ResolveTimeout,
		ConnectTimeout:   p.ConnectTimeout,
		HandshakeTimeout: p.HandshakeTimeout,
		HTTPTimeout:      p.HTTPTimeout,
		TraceTimeout:     p.TraceTimeout,
		MaxTCPAttempts:   p.MaxTCPAttempts,
		InsecureTLS:      p.InsecureTLS,
	}
}

// RunnerConfig bounds the batch runner.
type RunnerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	RunTimeout  time.Duration `mapstructure:"run_timeout"`
}

// ScheduleConfig drives the repeated-run scheduler.
type ScheduleConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
}

// ServerConfig configures the status HTTP API.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ThresholdOverride replaces or adds one monitoring rule.
type ThresholdOverride struct {
	Metric     string  `mapstructure:"metric"`
	Warning    float64 `mapstructure:"warning"`
	Critical   float64 `mapstructure:"critical"`
	Comparison string  `mapstructure:"comparison"`
	Enabled    bool    `mapstructure:"enabled"`
}

// MonitorConfig configures the alert monitor.
type MonitorConfig struct {
	Enabled bool                `mapstructure:"enabled"`
	Rules   []ThresholdOverride `mapstructure:"rules"`
}

// RecoveryRuleOverride replaces or adds one recovery rule.
type RecoveryRuleOverride struct {
	Name        string        `mapstructure:"name"`
	Condition   string        `mapstructure:"condition"`
	Metric      string        `mapstructure:"metric"`
	Threshold   float64       `mapstructure:"threshold"`
	Comparison  string        `mapstructure:"comparison"`
	Action      string        `mapstructure:"action"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Enabled     bool          `mapstructure:"enabled"`
}

// RecoveryConfig configures the recovery engine.
type RecoveryConfig struct {
	Enabled bool                   `mapstructure:"enabled"`
	Rules   []RecoveryRuleOverride `mapstructure:"rules"`
}
