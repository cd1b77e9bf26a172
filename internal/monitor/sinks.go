package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/netdiag/internal/fsutil"
)

// Sink delivers one alert event to a destination. Delivery failures are
// isolated per sink by the monitor and never abort a cycle.
type Sink interface {
	Name() string
	Notify(event AlertEvent) error
}

// LogSink writes alerts through the structured logger at a level matching
// the alert severity.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a logging sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Name identifies the sink in delivery-failure logs.
func (s *LogSink) Name() string { return "log" }

// Notify logs the alert.
func (s *LogSink) Notify(event AlertEvent) error {
	attrs := []any{
		"metric", event.Metric,
		"value", event.Value,
		"threshold", event.Threshold,
		"resolved", event.Resolved,
	}
	switch event.Severity {
	case "critical":
		s.logger.Error("alert: "+event.Message, attrs...)
	case "warning":
		s.logger.Warn("alert: "+event.Message, attrs...)
	default:
		s.logger.Info("alert: "+event.Message, attrs...)
	}
	return nil
}

// FileSink appends one JSON line per event to an alerts log. The file is
// opened per write so a logging restart can never strand a handle here.
type FileSink struct {
	path string
}

// NewFileSink creates an append-only file sink, creating parent directories
// as needed.
func NewFileSink(path string) (*FileSink, error) {
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("creating alert directory: %w", err)
	}
	return &FileSink{path: path}, nil
}

// Name identifies the sink in delivery-failure logs.
func (s *FileSink) Name() string { return "file" }

// Path returns the alerts log location.
func (s *FileSink) Path() string { return s.path }

// Notify appends the event as one NDJSON line.
func (s *FileSink) Notify(event AlertEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening alerts log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending alert: %w", err)
	}
	return nil
}
