package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "JSON format to stdout",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "Console format to stderr",
			config: Config{
				Level:  "debug",
				Format: "console",
				Output: "stderr",
			},
			wantErr: false,
		},
		{
			name: "Invalid log level defaults to info",
			config: Config{
				Level:  "invalid",
				Format: "json",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "Unwritable file path",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "/nonexistent-dir/chzzkdl.log",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("Expected non-nil logger")
			}
		})
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestWithReference(t *testing.T) {
	var buf bytes.Buffer
	logger := New(zerolog.New(&buf))

	logger.WithReference(models.MediaReference{Kind: models.ReferenceVideo, ID: "123456"}).Info("resolved")

	entry := decodeLine(t, &buf)
	if entry["ref_kind"] != "video" {
		t.Errorf("Expected ref_kind video, got %v", entry["ref_kind"])
	}
	if entry["ref_id"] != "123456" {
		t.Errorf("Expected ref_id 123456, got %v", entry["ref_id"])
	}
}

func TestWarnf(t *testing.T) {
	var buf bytes.Buffer
	logger := New(zerolog.New(&buf))

	logger.WithField("url", "http://example.com/build.zip").Warnf("Extracted ffmpeg does not run on %s", "linux/amd64")

	entry := decodeLine(t, &buf)
	if entry["level"] != "warn" {
		t.Errorf("Expected level warn, got %v", entry["level"])
	}
	if entry["message"] != "Extracted ffmpeg does not run on linux/amd64" {
		t.Errorf("Unexpected message %v", entry["message"])
	}
	if entry["url"] != "http://example.com/build.zip" {
		t.Errorf("Expected url field, got %v", entry["url"])
	}
}

func TestLogSessionEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(zerolog.New(&buf))

	logger.LogSessionEvent("sess-1", "started", models.SessionDownloading, map[string]interface{}{
		"kind": "clip",
	})

	entry := decodeLine(t, &buf)
	if entry["session_id"] != "sess-1" {
		t.Errorf("Expected session_id sess-1, got %v", entry["session_id"])
	}
	if entry["state"] != "downloading" {
		t.Errorf("Expected state downloading, got %v", entry["state"])
	}
	if entry["kind"] != "clip" {
		t.Errorf("Expected kind clip, got %v", entry["kind"])
	}
}

func TestLogBackendCall(t *testing.T) {
	var buf bytes.Buffer
	logger := New(zerolog.New(&buf).Level(zerolog.InfoLevel))

	// successful calls are debug level and filtered out here
	logger.LogBackendCall("fetch_video_info", 10*time.Millisecond, nil)
	if buf.Len() != 0 {
		t.Fatalf("Expected no output for a successful call, got %q", buf.String())
	}

	logger.LogBackendCall("fetch_video_info", 10*time.Millisecond, errors.New("boom"))
	entry := decodeLine(t, &buf)
	if entry["level"] != "error" {
		t.Errorf("Expected error level, got %v", entry["level"])
	}
	if entry["command"] != "fetch_video_info" {
		t.Errorf("Expected command fetch_video_info, got %v", entry["command"])
	}
}

func TestLoggerWithFields(t *testing.T) {
	logger := NewNopLogger()

	if logger.WithField("key", "value") == nil {
		t.Error("Expected non-nil logger from WithField")
	}
	if logger.WithFields(map[string]interface{}{"key1": "value1", "key2": 123}) == nil {
		t.Error("Expected non-nil logger from WithFields")
	}
	if logger.WithRequestID("req-123") == nil {
		t.Error("Expected non-nil logger from WithRequestID")
	}
	if logger.WithSession("sess-456") == nil {
		t.Error("Expected non-nil logger from WithSession")
	}
	if logger.WithComponent("engine") == nil {
		t.Error("Expected non-nil logger from WithComponent")
	}
}

func TestLogStorageAndDatabaseOperation(t *testing.T) {
	logger := NewNopLogger()

	logger.LogHTTPRequest("GET", "/api/v1/view", "192.168.1.1", 200, 100*time.Millisecond)
	logger.LogStorageOperation("upload", "downloads", "out.mp4", 1048576, 2*time.Second, nil)
	logger.LogDatabaseOperation("INSERT", 50*time.Millisecond, nil)
	// Should not panic
}

func BenchmarkLogWithFields(b *testing.B) {
	logger := New(zerolog.Nop())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.WithFields(map[string]interface{}{
			"key1": "value1",
			"key2": 123,
		}).Info("benchmark message")
	}
}
