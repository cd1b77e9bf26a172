package cmd

import (
	"testing"

	"github.com/spf13/cobra"
)

func findCommand(use string) *cobra.Command {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Use == use {
			return cmd
		}
	}
	return nil
}

func TestRootCmd_Structure(t *testing.T) {
	if rootCmd.Use != "netdiag" {
		t.Errorf("expected 'netdiag', got '%s'", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected non-empty short description")
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	flags := []string{"config", "log-level", "log-format", "json"}
	for _, name := range flags {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("root command missing persistent flag: %s", name)
		}
	}
}

func TestSubcommands_Registered(t *testing.T) {
	uses := []string{"run <host>", "batch", "watch", "serve", "status", "sysinfo", "version"}
	for _, use := range uses {
		cmd := findCommand(use)
		if cmd == nil {
			t.Errorf("command %q not registered", use)
			continue
		}
		if cmd.Short == "" {
			t.Errorf("command %q missing short description", use)
		}
	}
}

func TestRunCmd_Flags(t *testing.T) {
	runCmd := findCommand("run <host>")
	if runCmd == nil {
		t.Fatal("run command not found")
	}

	flags := []string{"port", "url", "trace"}
	for _, name := range flags {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("run command missing flag: %s", name)
		}
	}

	if def := runCmd.Flags().Lookup("port").DefValue; def != "443" {
		t.Errorf("expected port default '443', got '%s'", def)
	}
}

func TestServeCmd_Flags(t *testing.T) {
	serveCmd := findCommand("serve")
	if serveCmd == nil {
		t.Fatal("serve command not found")
	}
	if serveCmd.Flags().Lookup("addr") == nil {
		t.Error("serve command missing flag: addr")
	}
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2024-01-01")
	if appVersion != "1.0.0" {
		t.Errorf("expected version '1.0.0', got '%s'", appVersion)
	}
	if appCommit != "abc123" {
		t.Errorf("expected commit 'abc123', got '%s'", appCommit)
	}
	if appDate != "2024-01-01" {
		t.Errorf("expected date '2024-01-01', got '%s'", appDate)
	}
}
