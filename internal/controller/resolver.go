package controller

import (
	"context"
	"time"

	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/reference"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/timecode"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// SetInput replaces the raw input text. A change of the parsed reference
// discards the preview, quality set and range and restarts the debounce
// timer. Re-entering the same reference only restarts it when the last fetch
// failed.
func (c *Controller) SetInput(text string) error {
	return c.do(func() {
		c.input = text
		c.changed()

		ref := reference.Parse(text)
		if ref == c.ref {
			if !ref.IsZero() && c.lastFailed && !c.fetching {
				c.scheduleFetch()
			}
			return
		}

		c.ref = ref
		c.resetForReference()
		if ref.IsZero() {
			c.cancelFetch()
			return
		}
		c.scheduleFetch()
	})
}

// Refresh restarts the debounce cycle for the current reference
func (c *Controller) Refresh() error {
	var err error
	doErr := c.do(func() {
		if c.ref.IsZero() {
			err = ErrMissingReference
			return
		}
		c.scheduleFetch()
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (c *Controller) resetForReference() {
	c.preview = nil
	c.qualities = nil
	c.quality = models.QualityAuto
	c.fetching = false
	c.lastFailed = false
	c.start = timecode.NewField(timecode.Zero)
	c.end = timecode.NewField("")
}

// cancelFetch stops the pending timer and invalidates any fetch in flight
func (c *Controller) cancelFetch() {
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	c.fetchSeq++
}

// scheduleFetch restarts the quiet period timer for the current reference
func (c *Controller) scheduleFetch() {
	c.cancelFetch()

	ref := c.ref
	seq := c.fetchSeq
	c.debounce = time.AfterFunc(c.quietPeriod, func() {
		c.post(func() { c.startFetch(ref, seq) })
	})
}

// startFetch runs when the quiet period elapses. A timer that fired after
// being superseded is ignored here, so its fetch never starts.
func (c *Controller) startFetch(ref models.MediaReference, seq uint64) {
	if seq != c.fetchSeq || ref != c.ref {
		return
	}
	c.debounce = nil
	c.fetching = true
	c.changed()

	c.logger.WithReference(ref).Debug("Fetching metadata")
	c.goBackend(func(ctx context.Context) {
		started := time.Now()
		if ref.IsVideo() {
			info, err := c.backend.FetchVideoInfo(ctx, ref.ID)
			c.logger.LogBackendCall("fetch_video_info", time.Since(started), err)
			metrics.RecordMetadataFetch(string(ref.Kind), err == nil)
			c.post(func() { c.applyVideoInfo(ref, seq, info, err) })
			return
		}

		info, err := c.backend.FetchClipInfo(ctx, ref.ID)
		c.logger.LogBackendCall("fetch_clip_info", time.Since(started), err)
		metrics.RecordMetadataFetch(string(ref.Kind), err == nil)
		c.post(func() { c.applyClipInfo(ref, seq, info, err) })
	})
}

// isStale reports whether a result for ref/seq was superseded
func (c *Controller) isStale(ref models.MediaReference, seq uint64) bool {
	if seq == c.fetchSeq && ref == c.ref {
		return false
	}
	c.logger.WithReference(ref).Debugf("Dropped stale metadata result, current reference is %s", c.ref)
	metrics.StaleResultsDropped.Inc()
	return true
}

func (c *Controller) applyVideoInfo(ref models.MediaReference, seq uint64, info *models.VideoInfo, err error) {
	if c.isStale(ref, seq) {
		return
	}
	if err != nil || info == nil {
		c.applyFetchFailure(err)
		return
	}

	duration := info.Duration
	c.fetching = false
	c.lastFailed = false
	c.preview = &models.PreviewInfo{
		Title:     info.Title,
		Channel:   info.Channel,
		Thumbnail: info.Thumbnail,
		Duration:  &duration,
	}
	if duration > 0 {
		c.end.SetText(timecode.SecondsToText(duration))
	}

	c.qualities = append([]models.QualityOption(nil), info.Qualities...)
	models.SortQualities(c.qualities)
	c.quality = models.QualityAuto

	c.validateRange()
	c.changed()
}

func (c *Controller) applyClipInfo(ref models.MediaReference, seq uint64, info *models.ClipInfo, err error) {
	if c.isStale(ref, seq) {
		return
	}
	if err != nil || info == nil {
		c.applyFetchFailure(err)
		return
	}

	c.fetching = false
	c.lastFailed = false
	c.preview = &models.PreviewInfo{
		Title:     info.Title,
		Channel:   info.Channel,
		Thumbnail: info.Thumbnail,
	}
	c.qualities = nil
	c.quality = models.QualityAuto
	c.changed()
}

func (c *Controller) applyFetchFailure(err error) {
	c.fetching = false
	c.lastFailed = true
	c.preview = nil
	c.qualities = nil
	c.quality = models.QualityAuto

	detail := "no metadata returned"
	if err != nil {
		detail = err.Error()
	}
	c.notify(models.NotificationError, "Failed to fetch info", detail)
}
