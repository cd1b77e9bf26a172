package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/fsutil"
)

// FileManager owns every file-backed log handler in the process. It exposes
// the handler count as a leak indicator and can close and recreate its
// handles under the last-applied configuration, which is what the recovery
// engine's restart-logging action calls.
//
// Steady state is one open file per active configuration. A growing count
// means some caller is opening handlers without routing them through here.
type FileManager struct {
	mu         sync.Mutex
	baseDir    string
	level      slog.Level
	files      []*os.File
	handlers   []slog.Handler
	lastConfig string
	lastFile   string
}

// NewFileManager creates a manager rooted at baseDir. No file is opened until
// Setup is called.
func NewFileManager(baseDir string, level slog.Level) *FileManager {
	return &FileManager{
		baseDir: baseDir,
		level:   level,
	}
}

// Setup closes any existing file handlers and opens a fresh log file for the
// given configuration name. Returns the path of the new log file.
func (m *FileManager) Setup(configName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setupLocked(configName)
}

func (m *FileManager) setupLocked(configName string) (string, error) {
	m.closeLocked()

	dir := filepath.Join(m.baseDir, configName)
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	name := fmt.Sprintf("diagnosis_%s.log", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening log file: %w", err)
	}

	m.files = append(m.files, f)
	m.handlers = append(m.handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: m.level}))
	m.lastConfig = configName
	m.lastFile = path

	return path, nil
}

// FileHandlerCount returns the number of open file-backed handlers.
func (m *FileManager) FileHandlerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// CurrentFile returns the path of the active log file, or "".
func (m *FileManager) CurrentFile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFile
}

// Restart closes and recreates the file handles under the last-applied
// configuration. A no-op when Setup has never been called.
func (m *FileManager) Restart() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastConfig == "" {
		return nil
	}
	_, err := m.setupLocked(m.lastConfig)
	return err
}

// Close releases all file handles. The last configuration is kept so a later
// Restart can reopen them.
func (m *FileManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	return nil
}

func (m *FileManager) closeLocked() {
	for _, f := range m.files {
		// Closing an already-closed file only returns an error; nothing
		// useful to do with it here.
		_ = f.Close()
	}
	m.files = nil
	m.handlers = nil
}

// Handler returns an slog.Handler that writes to whichever files are
// currently open. The handler stays valid across Restart.
func (m *FileManager) Handler() slog.Handler {
	return &managedFileHandler{m: m}
}

// managedFileHandler delegates to the manager's live handler set so that a
// restart swaps the underlying files without invalidating loggers.
type managedFileHandler struct {
	m     *FileManager
	attrs []slog.Attr
}

func (h *managedFileHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.m.level
}

func (h *managedFileHandler) Handle(ctx context.Context, r slog.Record) error {
	h.m.mu.Lock()
	targets := make([]slog.Handler, len(h.m.handlers))
	copy(targets, h.m.handlers)
	h.m.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	record := r.Clone()
	if len(h.attrs) > 0 {
		record.AddAttrs(h.attrs...)
	}

	var firstErr error
	for _, t := range targets {
		if err := t.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *managedFileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &managedFileHandler{m: h.m, attrs: merged}
}

func (h *managedFileHandler) WithGroup(name string) slog.Handler {
	// Group nesting is not used by this codebase's loggers.
	_ = name
	return h
}
