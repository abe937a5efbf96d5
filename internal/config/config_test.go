package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "areion.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Tasks.MaxWorkers != 4 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
addr: ":9090"
log_level: debug
tasks:
  max_workers: 8
  queue_size: 512
  drain_timeout: 10s
cron:
  - name: cleanup
    expr: "0 0 3 * * *"
    task_type: shell
    payload: '{"command":"true"}'
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.LogLevel != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Tasks.MaxWorkers != 8 || cfg.Tasks.QueueSize != 512 {
		t.Fatalf("tasks = %+v", cfg.Tasks)
	}
	if got := cfg.Tasks.DrainTimeoutValue(); got != 10*time.Second {
		t.Fatalf("drain timeout = %v, want 10s", got)
	}
	if len(cfg.Cron) != 1 || cfg.Cron[0].Name != "cleanup" {
		t.Fatalf("cron = %+v", cfg.Cron)
	}
	// Untouched fields keep their defaults.
	if cfg.DBPath != "areion.db" {
		t.Fatalf("db_path = %q, want default", cfg.DBPath)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "zero workers", body: "tasks:\n  max_workers: 0\n", want: "max_workers"},
		{name: "negative queue", body: "tasks:\n  max_workers: 2\n  queue_size: -1\n", want: "queue_size"},
		{name: "bad drain timeout", body: "tasks:\n  max_workers: 2\n  drain_timeout: soon\n", want: "drain_timeout"},
		{name: "incomplete cron", body: "cron:\n  - name: x\n", want: "cron[0]"},
		{name: "malformed cron expr", body: "cron:\n  - name: x\n    expr: \"xx * * * * *\"\n    task_type: shell\n", want: "cron[0]"},
		{name: "not yaml", body: "{{{", want: "parse config"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("Load succeeded, want error")
	}
}
