package engine

import "testing"

func TestFileNames(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"video to end", VideoFileName("Ch", "Title", "00:10:00", ""), "Ch_Title_001000_END.mp4"},
		{"video range", VideoFileName("Ch", "Title", "00:00:05", "01:02:03"), "Ch_Title_000005_010203.mp4"},
		{"unsafe video", VideoFileName(`A/B`, `x:y*z?"<>|\`, "00:00:00", ""), "AB_xyz_000000_END.mp4"},
		{"clip", ClipFileName("Ch", "My clip"), "Ch_My clip.mp4"},
		{"unsafe clip", ClipFileName("Ch", "a|b"), "Ch_ab.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
