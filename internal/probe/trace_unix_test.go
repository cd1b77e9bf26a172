//go:build !windows

package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hugo-lorenzo-mato/netdiag/internal/logging"
	"github.com/hugo-lorenzo-mato/netdiag/internal/supervise"
)

// writeStub creates an executable script that prints canned output.
func writeStub(t *testing.T, dir, name, output string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\ncat <<'EOF'\n" + output + "EOF\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTracePath_MTR(t *testing.T) {
	sup := supervise.New(logging.NewNop().Logger)
	defer sup.CleanupAll()

	dir := t.TempDir()
	mtr := writeStub(t, dir, "mtr",
		`{"report":{"hubs":[{"count":1,"host":"10.0.0.1","Loss%":0.0,"Best":1.0,"Avg":1.5,"Wrst":2.0}]}}`+"\n")

	p := NewProber(DefaultConfig(), sup, logging.NewNop().Logger)
	p.mtrCmd = mtr

	path, err := p.TracePath(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("TracePath: %v", err)
	}
	if path.Method != "mtr" || len(path.Hops) != 1 {
		t.Fatalf("unexpected path: %+v", path)
	}
	if sup.ActiveCount() != 0 {
		t.Fatal("trace process left in registry")
	}
}

func TestTracePath_FallsBackToTraceroute(t *testing.T) {
	sup := supervise.New(logging.NewNop().Logger)
	defer sup.CleanupAll()

	dir := t.TempDir()
	traceroute := writeStub(t, dir, "traceroute",
		" 1  10.0.0.1  1.0 ms  1.2 ms  1.4 ms\n")

	p := NewProber(DefaultConfig(), sup, logging.NewNop().Logger)
	p.mtrCmd = filepath.Join(dir, "mtr-missing")
	p.tracerouteCmd = traceroute

	path, err := p.TracePath(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("TracePath: %v", err)
	}
	if path.Method != "traceroute" {
		t.Fatalf("method = %s, want traceroute fallback", path.Method)
	}
}

func TestTracePath_BothUnavailable(t *testing.T) {
	sup := supervise.New(logging.NewNop().Logger)
	defer sup.CleanupAll()

	dir := t.TempDir()
	p := NewProber(DefaultConfig(), sup, logging.NewNop().Logger)
	p.mtrCmd = filepath.Join(dir, "mtr-missing")
	p.tracerouteCmd = filepath.Join(dir, "traceroute-missing")

	if _, err := p.TracePath(context.Background(), "example.com"); err == nil {
		t.Fatal("expected failure when no trace tool is available")
	}
}
