package storage

import (
	"testing"

	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

func TestGetContentType(t *testing.T) {
	tests := []struct {
		filePath string
		wantType string
	}{
		{"video.mp4", "video/mp4"},
		{"seg_00001.m4s", "video/mp4"},
		{"playlist.m3u8", "application/vnd.apple.mpegurl"},
		{"segment.ts", "video/mp2t"},
		{"combined.raw", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filePath, func(t *testing.T) {
			contentType := getContentType(tt.filePath)
			if contentType != tt.wantType {
				t.Errorf("getContentType(%q) = %q, want %q", tt.filePath, contentType, tt.wantType)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	record := &models.DownloadRecord{
		Kind:       models.ReferenceVideo,
		MediaID:    "12345",
		OutputPath: "/srv/downloads/Streamer_Replay_000000_END.mp4",
	}

	want := "video/12345/Streamer_Replay_000000_END.mp4"
	if got := ObjectKey(record); got != want {
		t.Errorf("ObjectKey() = %q, want %q", got, want)
	}
}
