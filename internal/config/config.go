package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds the operational knobs for probing, scheduling, and delivery.
// Values come from ".driftwatch.yaml" with defaults applied first, so a
// missing or partial file is always usable.
type Policy struct {
	DatabasePath string `yaml:"database_path"`
	ListenAddr   string `yaml:"listen_addr"`
	LogLevel     string `yaml:"log_level"`

	ProbeTimeoutSeconds int     `yaml:"probe_timeout_seconds"`
	BodyCapBytes        int64   `yaml:"body_cap_bytes"`
	HostRequestsPerSec  float64 `yaml:"host_requests_per_second"`
	ProbeBudget         int64   `yaml:"probe_budget"`

	ScanWorkers          int `yaml:"scan_workers"`
	SchedulerPollSeconds int `yaml:"scheduler_poll_seconds"`
	DigestPollSeconds    int `yaml:"digest_poll_seconds"`

	DefaultCooldownHours     int  `yaml:"default_cooldown_hours"`
	ImprovementCooldownHours *int `yaml:"improvement_cooldown_hours"`

	SMTP SMTPConfig `yaml:"smtp"`
}

// SMTPConfig configures outbound digest delivery. An empty Host selects the
// logging mailer, which renders digests into the log instead of sending.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

const policyFile = ".driftwatch.yaml"

func DefaultPolicy() Policy {
	return Policy{
		DatabasePath:         "driftwatch.db",
		ListenAddr:           ":8870",
		LogLevel:             "info",
		ProbeTimeoutSeconds:  15,
		BodyCapBytes:         500 * 1024,
		HostRequestsPerSec:   4,
		ProbeBudget:          0, // 0 means no cap
		ScanWorkers:          5,
		SchedulerPollSeconds: 60,
		DigestPollSeconds:    300,
		DefaultCooldownHours: 24,
		SMTP:                 SMTPConfig{Port: 587},
	}
}

// LoadPolicy reads the policy file (DRIFTWATCH_CONFIG overrides the path)
// over the defaults. A missing file is not an error; a malformed one is.
func LoadPolicy() (Policy, error) {
	p := DefaultPolicy()

	path := policyFile
	if env := os.Getenv("DRIFTWATCH_CONFIG"); env != "" {
		path = env
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&p)
			return p, nil
		}
		return p, fmt.Errorf("read policy file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	applyEnv(&p)
	p.clamp()
	return p, nil
}

func applyEnv(p *Policy) {
	if v := os.Getenv("DRIFTWATCH_DB"); v != "" {
		p.DatabasePath = v
	}
	if v := os.Getenv("DRIFTWATCH_ADDR"); v != "" {
		p.ListenAddr = v
	}
}

func (p *Policy) clamp() {
	if p.ScanWorkers < 1 {
		p.ScanWorkers = 1
	}
	if p.ProbeTimeoutSeconds < 1 {
		p.ProbeTimeoutSeconds = 1
	}
	if p.BodyCapBytes < 1024 {
		p.BodyCapBytes = 1024
	}
	if p.HostRequestsPerSec <= 0 {
		p.HostRequestsPerSec = 1
	}
	if p.SchedulerPollSeconds < 5 {
		p.SchedulerPollSeconds = 5
	}
	if p.DigestPollSeconds < 5 {
		p.DigestPollSeconds = 5
	}
	if p.DefaultCooldownHours < 1 {
		p.DefaultCooldownHours = 1
	}
	if p.ImprovementCooldownHours != nil && *p.ImprovementCooldownHours < 0 {
		p.ImprovementCooldownHours = nil
	}
}
