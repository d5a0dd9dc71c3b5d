package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{"--config", "/tmp/tf.toml", "--log-level", "debug", "--shutdown-timeout", "5s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if got, _ := cmd.Flags().GetString("config"); got != "/tmp/tf.toml" {
		t.Fatalf("config flag = %q", got)
	}
	if got, _ := cmd.Flags().GetString("log-level"); got != "debug" {
		t.Fatalf("log-level flag = %q", got)
	}
	if got, _ := cmd.Flags().GetDuration("shutdown-timeout"); got != 5*time.Second {
		t.Fatalf("shutdown-timeout flag = %s", got)
	}
}

func TestRootCommandRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[downloads]\nmode = \"sometimes\"\n")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", path})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected invalid mode to be rejected")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRootCommandRejectsArguments(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"extra"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected positional arguments to be rejected")
	}
}
