package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/hugo-lorenzo-mato/netdiag/internal/probe"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateProbe(&cfg.Probe)
	v.validateRunner(&cfg.Runner)
	v.validateSchedule(&cfg.Schedule)
	v.validateServer(&cfg.Server)
	v.validateTargets(cfg.Targets)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (v *Validator) validateLog(log *LogConfig) {
	switch log.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", log.Level, "must be one of debug, info, warn, error")
	}
	switch log.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", log.Format, "must be one of auto, text, json")
	}
}

func (v *Validator) validateProbe(p *ProbeConfig) {
	if p.ConnectTimeout <= 0 {
		v.addError("probe.connect_timeout", p.ConnectTimeout, "must be positive")
	}
	if p.TraceTimeout <= 0 {
		v.addError("probe.trace_timeout", p.TraceTimeout, "must be positive")
	}
	if p.MaxTCPAttempts < 1 {
		v.addError("probe.max_tcp_attempts", p.MaxTCPAttempts, "must be at least 1")
	}
}

func (v *Validator) validateRunner(r *RunnerConfig) {
	if r.Concurrency < 1 {
		v.addError("runner.concurrency", r.Concurrency, "must be at least 1")
	}
	if r.RunTimeout <= 0 {
		v.addError("runner.run_timeout", r.RunTimeout, "must be positive")
	}
}

func (v *Validator) validateSchedule(s *ScheduleConfig) {
	if !s.Enabled {
		return
	}
	if s.Interval <= 0 {
		v.addError("schedule.interval", s.Interval, "must be positive when the scheduler is enabled")
	}
	if s.MonitorInterval <= 0 {
		v.addError("schedule.monitor_interval", s.MonitorInterval, "must be positive when the scheduler is enabled")
	}
}

func (v *Validator) validateServer(s *ServerConfig) {
	if s.Addr == "" {
		return
	}
	if _, _, err := net.SplitHostPort(s.Addr); err != nil {
		v.addError("server.addr", s.Addr, "must be host:port")
	}
}

func (v *Validator) validateTargets(targets []probe.Target) {
	for i, t := range targets {
		field := fmt.Sprintf("targets[%d]", i)
		if t.Host == "" {
			v.addError(field+".host", t.Host, "must not be empty")
		}
		if t.Port < 0 || t.Port > 65535 {
			v.addError(field+".port", t.Port, "must be between 0 and 65535")
		}
	}
}
