package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaReference(t *testing.T) {
	var none MediaReference
	assert.True(t, none.IsZero())
	assert.Equal(t, "none", none.String())

	video := MediaReference{Kind: ReferenceVideo, ID: "123456"}
	assert.False(t, video.IsZero())
	assert.True(t, video.IsVideo())
	assert.False(t, video.IsClip())
	assert.Equal(t, "video:123456", video.String())

	clip := MediaReference{Kind: ReferenceClip, ID: "abc"}
	assert.True(t, clip.IsClip())
	assert.NotEqual(t, video, clip)
	assert.Equal(t, clip, MediaReference{Kind: ReferenceClip, ID: "abc"})
}

func TestSortQualities(t *testing.T) {
	options := []QualityOption{
		{ID: "480", Bandwidth: 3_000_000},
		{ID: "1080", Bandwidth: 8_000_000},
		{ID: "720", Bandwidth: 5_000_000},
	}
	SortQualities(options)

	assert.Equal(t, "1080", options[0].ID)
	assert.Equal(t, "720", options[1].ID)
	assert.Equal(t, "480", options[2].ID)
}

func TestDownloadProgressPercent(t *testing.T) {
	tests := []struct {
		progress DownloadProgress
		expected int
	}{
		{DownloadProgress{Current: 0, Total: 0}, 0},
		{DownloadProgress{Current: 5, Total: 0}, 0},
		{DownloadProgress{Current: 1, Total: 3}, 33},
		{DownloadProgress{Current: 2, Total: 3}, 67},
		{DownloadProgress{Current: 10, Total: 10}, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.progress.Percent(), "%d/%d", tt.progress.Current, tt.progress.Total)
	}
}

func TestPreviewInfoHasDuration(t *testing.T) {
	var nilPreview *PreviewInfo
	assert.False(t, nilPreview.HasDuration())

	zero := int64(0)
	assert.False(t, (&PreviewInfo{Duration: &zero}).HasDuration())
	assert.False(t, (&PreviewInfo{}).HasDuration())

	d := int64(120)
	assert.True(t, (&PreviewInfo{Duration: &d}).HasDuration())
}

func TestSessionStateIsBusy(t *testing.T) {
	assert.False(t, SessionIdle.IsBusy())
	assert.False(t, SessionFetchingInfo.IsBusy())
	assert.True(t, SessionPreparing.IsBusy())
	assert.True(t, SessionDownloading.IsBusy())
	assert.True(t, SessionInstallingDependency.IsBusy())
	assert.Equal(t, "downloading", SessionDownloading.String())
}

func TestCredentials(t *testing.T) {
	assert.True(t, Credentials{}.IsEmpty())
	assert.False(t, Credentials{AuthToken: "a"}.IsEmpty())
	assert.False(t, Credentials{AuthToken: "a"}.Complete())
	assert.True(t, Credentials{AuthToken: "a", SessionToken: "b"}.Complete())
}
