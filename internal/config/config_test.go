package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
  host: "0.0.0.0"
  jwtSecret: "secret"

downloader:
  outputDir: "/srv/downloads"
  quietPeriod: 250ms
  segmentConcurrency: 8

redis:
  enabled: true
  port: 6380

credentials:
  backend: redis
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Server.JWTSecret != "secret" {
		t.Errorf("Expected jwt secret to be loaded, got %q", cfg.Server.JWTSecret)
	}
	if cfg.Downloader.OutputDir != "/srv/downloads" {
		t.Errorf("Expected output dir /srv/downloads, got %s", cfg.Downloader.OutputDir)
	}
	if cfg.Downloader.QuietPeriod != 250*time.Millisecond {
		t.Errorf("Expected quiet period 250ms, got %v", cfg.Downloader.QuietPeriod)
	}
	if cfg.Downloader.SegmentConcurrency != 8 {
		t.Errorf("Expected segment concurrency 8, got %d", cfg.Downloader.SegmentConcurrency)
	}
	if cfg.Redis.Port != 6380 || !cfg.Redis.Enabled {
		t.Errorf("Unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Credentials.Backend != BackendRedis {
		t.Errorf("Expected redis credentials backend, got %s", cfg.Credentials.Backend)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Downloader.QuietPeriod != 500*time.Millisecond {
		t.Errorf("Expected default quiet period 500ms, got %v", cfg.Downloader.QuietPeriod)
	}
	if cfg.Downloader.SegmentConcurrency != 20 {
		t.Errorf("Expected default segment concurrency 20, got %d", cfg.Downloader.SegmentConcurrency)
	}
	if cfg.Downloader.SegmentTimeout != 30*time.Second {
		t.Errorf("Expected default segment timeout 30s, got %v", cfg.Downloader.SegmentTimeout)
	}
	if cfg.Downloader.OutputDir != "" {
		t.Errorf("Expected no default output dir, got %s", cfg.Downloader.OutputDir)
	}
	if cfg.FFmpeg.Path != "ffmpeg" {
		t.Errorf("Expected ffmpeg path ffmpeg, got %s", cfg.FFmpeg.Path)
	}
	if cfg.Credentials.Backend != BackendFile || cfg.Events.Backend != BackendMemory {
		t.Errorf("Unexpected backends: %s, %s", cfg.Credentials.Backend, cfg.Events.Backend)
	}
	if cfg.Storage.Enabled || cfg.Database.Enabled || cfg.Queue.Enabled || cfg.Webhook.Enabled {
		t.Error("Expected optional sinks to be disabled by default")
	}
	if cfg.Webhook.MaxRetries != 3 || cfg.Webhook.RetryDelay != time.Second {
		t.Errorf("Unexpected webhook retry defaults: %d, %v", cfg.Webhook.MaxRetries, cfg.Webhook.RetryDelay)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected log level info, got %s", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("DOWNLOADER_SEGMENTCONCURRENCY", "4")

	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999 from env, got %d", cfg.Server.Port)
	}
	if cfg.Downloader.SegmentConcurrency != 4 {
		t.Errorf("Expected segment concurrency 4 from env, got %d", cfg.Downloader.SegmentConcurrency)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	os.Unsetenv("DOWNLOADER_OUTPUTDIR")
	t.Cleanup(func() { os.Unsetenv("DOWNLOADER_OUTPUTDIR") })

	path := writeConfig(t, "downloader:\n  outputDir: /from-file\n")
	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(dotenv, []byte("DOWNLOADER_OUTPUTDIR=/from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Downloader.OutputDir != "/from-dotenv" {
		t.Errorf("Expected output dir from .env, got %s", cfg.Downloader.OutputDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoad_InvalidBackends(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown credentials backend", "credentials:\n  backend: vault\n"},
		{"unknown events backend", "events:\n  backend: kafka\n"},
		{"redis backend without redis", "events:\n  backend: redis\n"},
		{"zero concurrency", "downloader:\n  segmentConcurrency: 0\n"},
		{"webhook without url", "webhook:\n  enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}
