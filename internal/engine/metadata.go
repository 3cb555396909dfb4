package engine

import (
	"context"

	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/tracing"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// FetchVideoInfo returns title, channel, duration, thumbnail and qualities
func (e *Engine) FetchVideoInfo(ctx context.Context, videoID string) (info *models.VideoInfo, err error) {
	span, ctx := tracing.StartSpan(ctx, "get_video_info")
	tracing.SetTag(span, "video_id", videoID)
	defer func() {
		metrics.RecordMetadataFetch(string(models.ReferenceVideo), err == nil)
		tracing.FinishSpan(span, err)
	}()

	if e.cache != nil {
		if cached, cerr := e.cache.GetVideoInfo(ctx, videoID); cerr != nil {
			e.logger.WithError(cerr).Warn("Video cache lookup failed")
		} else if cached != nil {
			tracing.SetTag(span, "cache", "hit")
			return cached, nil
		}
	}

	creds := e.credentials(ctx)
	video, err := e.client.GetVideo(ctx, videoID, creds)
	if err != nil {
		return nil, err
	}

	qualities, err := e.client.Qualities(ctx, video, creds)
	if err != nil {
		return nil, err
	}
	if qualities == nil {
		qualities = []models.QualityOption{}
	}

	info = &models.VideoInfo{
		Title:     video.Title,
		Channel:   video.Channel,
		Duration:  video.Duration,
		Thumbnail: video.Thumbnail,
		Qualities: qualities,
	}

	if e.cache != nil {
		if cerr := e.cache.SetVideoInfo(ctx, videoID, info); cerr != nil {
			e.logger.WithError(cerr).Warn("Failed to cache video info")
		}
	}
	return info, nil
}

// FetchClipInfo returns title, channel and thumbnail of a clip
func (e *Engine) FetchClipInfo(ctx context.Context, clipID string) (info *models.ClipInfo, err error) {
	span, ctx := tracing.StartSpan(ctx, "get_clip_info")
	tracing.SetTag(span, "clip_id", clipID)
	defer func() {
		metrics.RecordMetadataFetch(string(models.ReferenceClip), err == nil)
		tracing.FinishSpan(span, err)
	}()

	if e.cache != nil {
		if cached, cerr := e.cache.GetClipInfo(ctx, clipID); cerr != nil {
			e.logger.WithError(cerr).Warn("Clip cache lookup failed")
		} else if cached != nil {
			tracing.SetTag(span, "cache", "hit")
			return cached, nil
		}
	}

	clip, err := e.client.GetClip(ctx, clipID)
	if err != nil {
		return nil, err
	}

	info = &models.ClipInfo{
		Title:     clip.Title,
		Channel:   clip.Channel,
		Thumbnail: clip.Thumbnail,
	}

	if e.cache != nil {
		if cerr := e.cache.SetClipInfo(ctx, clipID, info); cerr != nil {
			e.logger.WithError(cerr).Warn("Failed to cache clip info")
		}
	}
	return info, nil
}
