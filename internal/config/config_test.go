package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "sideways"
	cfg.Redis.Addr = ""
	cfg.Engine.UserConcurrency = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"unknown mode", "redis: addr", "user_concurrency"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q: %v", want, err)
		}
	}
}

func TestValidateS3OnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.S3.Bucket = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled s3 must not be validated: %v", err)
	}

	cfg.S3.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("enabled s3 with no bucket must fail validation")
	}
}

func TestValidateIncompleteAPNSCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.APNS.KeyPath = "/etc/apns/key.p8"
	if err := cfg.Validate(); err == nil {
		t.Error("partial APNs credentials must fail validation")
	}

	cfg.Channels.APNS.KeyID = "KEY123"
	cfg.Channels.APNS.TeamID = "TEAM456"
	cfg.Channels.APNS.Topic = "com.example.alphawatch"
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete APNs credentials must validate: %v", err)
	}
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "engine"

[engine]
cycle_interval = "10s"

[feed]
api_key = "test-key"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "engine" {
		t.Errorf("mode: got %q", cfg.Mode)
	}
	if cfg.Engine.CycleInterval.Duration != 10*time.Second {
		t.Errorf("cycle_interval: got %s", cfg.Engine.CycleInterval.Duration)
	}
	if cfg.Feed.APIKey != "test-key" {
		t.Errorf("feed api_key: got %q", cfg.Feed.APIKey)
	}
	// Untouched sections keep their defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr default lost: %q", cfg.Redis.Addr)
	}
	if cfg.Engine.ChannelTimeout.Duration != 15*time.Second {
		t.Errorf("channel_timeout default lost: %s", cfg.Engine.ChannelTimeout.Duration)
	}
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[redis]
addr = "redis-from-file:6379"
`)

	t.Setenv("ALPHAWATCH_REDIS_ADDR", "redis-from-env:6379")
	t.Setenv("ALPHAWATCH_ENGINE_CYCLE_INTERVAL", "45s")
	t.Setenv("ALPHAWATCH_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redis.Addr != "redis-from-env:6379" {
		t.Errorf("redis addr: got %q, env must win", cfg.Redis.Addr)
	}
	if cfg.Engine.CycleInterval.Duration != 45*time.Second {
		t.Errorf("cycle_interval: got %s", cfg.Engine.CycleInterval.Duration)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("cors origins: got %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("missing file must error")
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "pg-secret"
	cfg.Redis.Password = "redis-secret"
	cfg.Feed.APISecret = "feed-secret"
	cfg.Server.APIKey = "api-secret"

	r := RedactedConfig(&cfg)
	if r.Postgres.Password != redacted || r.Redis.Password != redacted ||
		r.Feed.APISecret != redacted || r.Server.APIKey != redacted {
		t.Error("secrets must be redacted")
	}
	// The original is untouched.
	if cfg.Postgres.Password != "pg-secret" {
		t.Error("redaction must copy, not mutate")
	}
}
