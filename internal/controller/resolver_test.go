package controller

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

func TestResolver_VideoScenario(t *testing.T) {
	backend := newFakeBackend()
	backend.videos["123456"] = &models.VideoInfo{
		Title:    "Stream",
		Channel:  "Streamer",
		Duration: 3661,
	}
	c, _ := newTestController(t, backend, "")

	require.NoError(t, c.SetInput("chzzk.naver.com/video/123456"))
	assert.Equal(t, models.MediaReference{Kind: models.ReferenceVideo, ID: "123456"}, c.View().Reference)

	assert.Eventually(t, func() bool { return c.View().Preview != nil }, waitFor, tick)

	v := c.View()
	assert.Equal(t, "Stream", v.Preview.Title)
	assert.Equal(t, "Streamer", v.Preview.Channel)
	require.NotNil(t, v.Preview.Duration)
	assert.Equal(t, int64(3661), *v.Preview.Duration)
	assert.Equal(t, "01:01:01", v.End)
	assert.Equal(t, "00:00:00", v.Start)
	assert.False(t, v.Fetching)
	assert.Empty(t, v.RangeError)
}

func TestResolver_DebounceBurst(t *testing.T) {
	backend := newFakeBackend()
	burst := []string{"1", "12", "123", "1234", "12345"}
	for _, id := range burst {
		backend.videos[id] = &models.VideoInfo{Title: id, Duration: 60}
	}
	quiet := 200 * time.Millisecond
	c, _ := newTestControllerWithQuietPeriod(t, backend, "", quiet)

	for _, text := range burst {
		require.NoError(t, c.SetInput(text))
	}

	assert.Eventually(t, func() bool { return c.View().Preview != nil }, waitFor, tick)
	time.Sleep(2 * quiet)

	assert.Equal(t, []string{"12345"}, backend.videoCallIDs())
	assert.Equal(t, "12345", c.View().Preview.Title)
}

func TestResolver_StaleResultDropped(t *testing.T) {
	backend := newFakeBackend()
	backend.videos["111"] = &models.VideoInfo{Title: "first", Duration: 100}
	backend.videos["222"] = &models.VideoInfo{Title: "second", Duration: 200}
	gate := make(chan struct{})
	backend.fetchGates["111"] = gate
	c, _ := newTestController(t, backend, "")

	require.NoError(t, c.SetInput("111"))
	assert.Eventually(t, func() bool {
		ids := backend.videoCallIDs()
		return len(ids) == 1 && ids[0] == "111"
	}, waitFor, tick)
	assert.True(t, c.View().Fetching)

	require.NoError(t, c.SetInput("222"))
	assert.Eventually(t, func() bool {
		v := c.View()
		return v.Preview != nil && v.Preview.Title == "second"
	}, waitFor, tick)

	// release the superseded fetch
	close(gate)
	time.Sleep(5 * testQuietPeriod)

	v := c.View()
	require.NotNil(t, v.Preview)
	assert.Equal(t, "second", v.Preview.Title)
	assert.Equal(t, "00:03:20", v.End)
	assert.False(t, v.Fetching)
}

func TestResolver_StaleResultAfterClear(t *testing.T) {
	backend := newFakeBackend()
	backend.videos["111"] = &models.VideoInfo{Title: "first", Duration: 100}
	gate := make(chan struct{})
	backend.fetchGates["111"] = gate
	c, _ := newTestController(t, backend, "")

	require.NoError(t, c.SetInput("111"))
	assert.Eventually(t, func() bool { return len(backend.videoCallIDs()) == 1 }, waitFor, tick)

	require.NoError(t, c.SetInput(""))
	close(gate)
	time.Sleep(5 * testQuietPeriod)

	v := c.View()
	assert.True(t, v.Reference.IsZero())
	assert.Nil(t, v.Preview)
	assert.False(t, v.Fetching)
}

func TestResolver_SameReferenceDoesNotRefetch(t *testing.T) {
	backend := newFakeBackend()
	backend.videos["123456"] = &models.VideoInfo{Title: "Stream", Duration: 60}
	c, _ := newTestController(t, backend, "")

	require.NoError(t, c.SetInput("123456"))
	assert.Eventually(t, func() bool { return c.View().Preview != nil }, waitFor, tick)

	require.NoError(t, c.SetInput("https://chzzk.naver.com/video/123456"))
	time.Sleep(5 * testQuietPeriod)

	assert.Len(t, backend.videoCallIDs(), 1)
	assert.NotNil(t, c.View().Preview)
}

func TestResolver_FailureClearsPreviewAndReentryRetries(t *testing.T) {
	backend := newFakeBackend()
	backend.fetchErr = errors.New("upstream unavailable")
	c, _ := newTestController(t, backend, "")

	require.NoError(t, c.SetInput("123456"))
	assert.Eventually(t, func() bool { return c.View().Notification != nil }, waitFor, tick)

	v := c.View()
	assert.Nil(t, v.Preview)
	assert.Empty(t, v.Qualities)
	assert.False(t, v.Fetching)
	assert.Equal(t, models.NotificationError, v.Notification.Kind)
	assert.Equal(t, "upstream unavailable", v.Notification.Detail)

	// not retried on its own
	time.Sleep(5 * testQuietPeriod)
	assert.Len(t, backend.videoCallIDs(), 1)

	backend.mu.Lock()
	backend.fetchErr = nil
	backend.videos["123456"] = &models.VideoInfo{Title: "Stream", Duration: 60}
	backend.mu.Unlock()

	require.NoError(t, c.SetInput("123456"))
	assert.Eventually(t, func() bool { return c.View().Preview != nil }, waitFor, tick)
	assert.Len(t, backend.videoCallIDs(), 2)
}

func TestResolver_Clip(t *testing.T) {
	backend := newFakeBackend()
	backend.clips["abcDEF12"] = &models.ClipInfo{Title: "Clip", Channel: "Streamer", Thumbnail: "https://img/clip.jpg"}
	c, _ := newTestController(t, backend, "")

	require.NoError(t, c.SetInput("https://chzzk.naver.com/clips/abcDEF12"))
	assert.Eventually(t, func() bool { return c.View().Preview != nil }, waitFor, tick)

	v := c.View()
	assert.Equal(t, models.ReferenceClip, v.Reference.Kind)
	assert.Equal(t, "Clip", v.Preview.Title)
	assert.Nil(t, v.Preview.Duration)
	assert.Empty(t, v.Qualities)
	assert.Empty(t, v.End)
}

func TestResolver_Refresh(t *testing.T) {
	backend := newFakeBackend()
	backend.videos["123456"] = &models.VideoInfo{Title: "Stream", Duration: 60}
	c, _ := newTestController(t, backend, "")

	assert.ErrorIs(t, c.Refresh(), ErrMissingReference)

	require.NoError(t, c.SetInput("123456"))
	assert.Eventually(t, func() bool { return len(backend.videoCallIDs()) == 1 }, waitFor, tick)

	require.NoError(t, c.Refresh())
	assert.Eventually(t, func() bool { return len(backend.videoCallIDs()) == 2 }, waitFor, tick)
}

func TestResolver_NewReferenceResetsState(t *testing.T) {
	backend := newFakeBackend()
	backend.videos["111"] = &models.VideoInfo{
		Title:    "first",
		Duration: 600,
		Qualities: []models.QualityOption{
			{ID: "1080p", Height: 1080, Bandwidth: 8_000_000, Label: "1080p"},
		},
	}
	c, _ := newTestController(t, backend, "")

	require.NoError(t, c.SetInput("111"))
	assert.Eventually(t, func() bool { return c.View().Preview != nil }, waitFor, tick)
	require.NoError(t, c.SelectQuality("1080p"))
	require.NoError(t, c.SetRange(FieldStart, "00:01:00"))

	require.NoError(t, c.SetInput("clipid"))
	v := c.View()
	assert.Nil(t, v.Preview)
	assert.Equal(t, models.QualityAuto, v.Quality)
	assert.Equal(t, "00:00:00", v.Start)
	assert.Equal(t, "", v.End)
}

func TestController_UpdateCallback(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newTestController(t, backend, "")

	updates := make(chan View, 16)
	c.SetUpdateCallback(func(v View) {
		select {
		case updates <- v:
		default:
		}
	})

	require.NoError(t, c.SetInput("hello"))

	timeout := time.After(waitFor)
	for {
		select {
		case v := <-updates:
			if v.Input == "hello" {
				assert.Equal(t, models.ReferenceClip, v.Reference.Kind)
				return
			}
		case <-timeout:
			t.Fatal("expected an update after SetInput")
		}
	}
}

func TestController_ClosedRejectsCalls(t *testing.T) {
	backend := newFakeBackend()
	c, bus := newTestController(t, backend, "")

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.SetInput("123"), ErrClosed)
	assert.ErrorIs(t, c.StartDownload(), ErrClosed)
	assert.Equal(t, 0, bus.SubscriberCount("download-progress"))
	assert.Equal(t, 0, bus.SubscriberCount("login-success"))
	assert.NoError(t, c.Close())
}
