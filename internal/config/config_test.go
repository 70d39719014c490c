package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPolicyDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("DRIFTWATCH_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	p, err := LoadPolicy()
	if err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}
	want := DefaultPolicy()
	if p.ScanWorkers != want.ScanWorkers {
		t.Fatalf("unexpected ScanWorkers: %d", p.ScanWorkers)
	}
	if p.BodyCapBytes != want.BodyCapBytes {
		t.Fatalf("unexpected BodyCapBytes: %d", p.BodyCapBytes)
	}
	if p.DefaultCooldownHours != 24 {
		t.Fatalf("unexpected DefaultCooldownHours: %d", p.DefaultCooldownHours)
	}
}

func TestLoadPolicyReadsFileAndClamps(t *testing.T) {
	tmp := t.TempDir()
	content := "scan_workers: 0\nprobe_timeout_seconds: 30\nbody_cap_bytes: 1048576\nimprovement_cooldown_hours: 6\nsmtp:\n  host: mail.example.com\n  from: alerts@example.com\n"
	path := filepath.Join(tmp, ".driftwatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	t.Setenv("DRIFTWATCH_CONFIG", path)

	p, err := LoadPolicy()
	if err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}
	if p.ScanWorkers != 1 {
		t.Fatalf("scan_workers should clamp to 1, got %d", p.ScanWorkers)
	}
	if p.ProbeTimeoutSeconds != 30 {
		t.Fatalf("unexpected ProbeTimeoutSeconds: %d", p.ProbeTimeoutSeconds)
	}
	if p.BodyCapBytes != 1048576 {
		t.Fatalf("unexpected BodyCapBytes: %d", p.BodyCapBytes)
	}
	if p.ImprovementCooldownHours == nil || *p.ImprovementCooldownHours != 6 {
		t.Fatalf("unexpected ImprovementCooldownHours: %v", p.ImprovementCooldownHours)
	}
	if p.SMTP.Host != "mail.example.com" {
		t.Fatalf("unexpected SMTP host: %s", p.SMTP.Host)
	}
}

func TestLoadPolicyEnvOverrides(t *testing.T) {
	t.Setenv("DRIFTWATCH_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	t.Setenv("DRIFTWATCH_DB", "/tmp/alt.db")
	t.Setenv("DRIFTWATCH_ADDR", ":9999")

	p, err := LoadPolicy()
	if err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}
	if p.DatabasePath != "/tmp/alt.db" {
		t.Fatalf("unexpected DatabasePath: %s", p.DatabasePath)
	}
	if p.ListenAddr != ":9999" {
		t.Fatalf("unexpected ListenAddr: %s", p.ListenAddr)
	}
}
