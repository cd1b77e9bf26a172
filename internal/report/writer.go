package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/fsutil"
)

const latestFileName = "latest.json"

// Writer persists run reports under <outputDir>/<configName>/. Every write
// is atomic; latest.json always points at the newest complete report.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates the output directory for the configuration.
func NewWriter(outputDir, configName string, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Join(outputDir, configName)
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// Write persists the report and refreshes latest.json. It returns the path
// of the timestamped report file.
func (w *Writer) Write(rep RunReport) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	name := fmt.Sprintf("diagnosis_%s_%s.json",
		rep.Timestamp.Format("20060102_150405"), rep.RunID)
	path := filepath.Join(w.dir, name)
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	if err := atomicWriteFile(filepath.Join(w.dir, latestFileName), data, 0o644); err != nil {
		// The timestamped report is already durable.
		w.logger.Warn("report: refreshing latest.json failed", "error", err)
	}

	w.logger.Info("report: written", "path", path, "targets", rep.Summary.Targets)
	return path, nil
}

// ReadLatest loads the newest report for the configuration, if any.
func ReadLatest(outputDir, configName string) (*RunReport, error) {
	data, err := fsutil.ReadFileScoped(filepath.Join(outputDir, configName, latestFileName))
	if err != nil {
		return nil, err
	}
	var rep RunReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &rep, nil
}

// Prune removes timestamped reports older than the retention cutoff,
// keeping latest.json.
func (w *Writer) Prune(retention time.Duration) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-retention)
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == latestFileName {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(w.dir, entry.Name())); err != nil {
				w.logger.Warn("report: pruning failed", "file", entry.Name(), "error", err)
			}
		}
	}
	return nil
}
