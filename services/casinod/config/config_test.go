package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "casinod.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "listen: \":9000\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9000" {
		t.Fatalf("unexpected listen %q", cfg.ListenAddress)
	}
	if cfg.Archive.Driver != "sqlite" || cfg.Archive.DSN == "" {
		t.Fatalf("unexpected archive defaults %+v", cfg.Archive)
	}
	if cfg.ShutdownTimeout.Duration != 10*time.Second || cfg.Auth.ClockSkew.Duration != 2*time.Minute {
		t.Fatalf("unexpected duration defaults %+v", cfg)
	}
	if cfg.RateLimit.RequestsPerMinute != 600 || cfg.RateLimit.Burst != 20 {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
}

func TestLoadParsesDurationsAndSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
node_config: /etc/wager/casino.toml
shutdown_timeout: 3s
auth:
  issuer: wager
  clock_skew: 30s
archive:
  driver: POSTGRES
  dsn: postgres://localhost/casino
redis:
  addr: localhost:6379
  stream_prefix: wager
telemetry:
  traces: true
  sample_ratio: 0.25
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownTimeout.Duration != 3*time.Second || cfg.Auth.ClockSkew.Duration != 30*time.Second {
		t.Fatalf("durations not parsed: %+v", cfg)
	}
	if cfg.Archive.Driver != "postgres" || cfg.Redis.StreamPrefix != "wager" || cfg.Redis.MaxLen != 100_000 {
		t.Fatalf("unexpected sections %+v %+v", cfg.Archive, cfg.Redis)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "bogus: 1\n",
		"bad duration":   "shutdown_timeout: soon\n",
		"bad driver":     "archive:\n  driver: mysql\n",
		"postgres dsn":   "archive:\n  driver: postgres\n",
		"sample ratio":   "telemetry:\n  sample_ratio: 2\n",
		"duration shape": "shutdown_timeout: [1]\n",
	}
	for name, contents := range cases {
		if _, err := Load(writeConfig(t, contents)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSecretFromEnv(t *testing.T) {
	auth := AuthConfig{HMACSecretEnv: "CASINOD_TEST_SECRET"}
	t.Setenv("CASINOD_TEST_SECRET", "")
	if _, err := auth.Secret(); err == nil {
		t.Fatalf("expected missing secret error")
	}
	t.Setenv("CASINOD_TEST_SECRET", " s3cret ")
	got, err := auth.Secret()
	if err != nil || got != "s3cret" {
		t.Fatalf("unexpected secret %q, %v", got, err)
	}
}
