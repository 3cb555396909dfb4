package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/chzzk"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/tracing"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// ErrNoSegments is returned when the requested range selects nothing
var ErrNoSegments = errors.New("no segments in the requested range")

const combinedName = "combined.raw"

// DownloadVideo fetches the segments covering the requested range, joins
// them and remuxes the result into an MP4 in req.OutputDir. The temp
// directory survives a failure so a retry skips segments already on disk.
func (e *Engine) DownloadVideo(ctx context.Context, req models.VideoDownloadRequest) (output string, err error) {
	span, ctx := tracing.StartSpan(ctx, "download_video")
	tracing.SetTag(span, "video_id", req.VideoID)
	logger := e.logger.WithReference(models.MediaReference{Kind: models.ReferenceVideo, ID: req.VideoID})

	record := &models.DownloadRecord{
		Kind:      models.ReferenceVideo,
		MediaID:   req.VideoID,
		Start:     req.Start,
		End:       req.End,
		StartedAt: time.Now(),
	}
	if req.QualityID != nil {
		record.QualityID = *req.QualityID
	}
	defer func() {
		tracing.FinishSpan(span, err)
		e.finish(record, output, err)
	}()

	e.publish(ctx, models.DownloadProgress{Stage: models.StageInfo, Current: 0, Total: 1, Message: "fetching video info"})

	video, err := e.client.GetVideo(ctx, req.VideoID, e.credentials(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get video info: %w", err)
	}
	record.Title = video.Title
	record.Channel = video.Channel

	e.publish(ctx, models.DownloadProgress{
		Stage:   models.StageInfo,
		Current: 1,
		Total:   1,
		Message: fmt.Sprintf("%s - %s", video.Channel, video.Title),
	})

	segments, err := e.client.Segments(ctx, video, req.Start, req.End, req.QualityID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve segments: %w", err)
	}
	if len(segments) == 0 {
		return "", ErrNoSegments
	}
	tracing.SetTag(span, "segments", len(segments))
	logger.Infof("Downloading %d segments", len(segments))

	tempDir := filepath.Join(req.OutputDir, "temp_"+req.VideoID)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	paths, err := e.downloadSegments(ctx, segments, tempDir)
	if err != nil {
		return "", err
	}

	combined := filepath.Join(tempDir, combinedName)
	if err := e.merge(ctx, paths, combined); err != nil {
		return "", err
	}

	output = filepath.Join(req.OutputDir, VideoFileName(video.Channel, video.Title, req.Start, req.End))
	e.publish(ctx, models.DownloadProgress{Stage: models.StageRemuxing, Current: 0, Total: 1, Message: "remuxing"})
	if err := e.ffmpeg.Remux(ctx, combined, output); err != nil {
		return "", err
	}

	if err := os.RemoveAll(tempDir); err != nil {
		logger.WithError(err).Warn("Failed to remove temp directory")
	}

	e.publish(ctx, models.DownloadProgress{Stage: models.StageComplete, Current: 1, Total: 1, Message: output})
	logger.Infof("Video saved to %s", output)
	return output, nil
}

func segmentPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("seg_%05d.m4s", index))
}

// downloadSegments fetches every segment with bounded concurrency. Files
// already present count as done without a request.
func (e *Engine) downloadSegments(ctx context.Context, segments []chzzk.Segment, dir string) ([]string, error) {
	total := uint32(len(segments))
	paths := make([]string, len(segments))

	var (
		mu   sync.Mutex
		done uint32
	)
	advance := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		e.publish(ctx, models.DownloadProgress{
			Stage:   models.StageDownloading,
			Current: done,
			Total:   total,
			Message: fmt.Sprintf("%d/%d segments", done, total),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.SegmentConcurrency)

	for i, seg := range segments {
		i, seg := i, seg
		path := segmentPath(dir, i)
		paths[i] = path

		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			advance()
			continue
		}

		g.Go(func() error {
			if err := e.fetchSegment(gctx, seg.URL, path); err != nil {
				return fmt.Errorf("segment %d: %w", i, err)
			}
			advance()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to download segments: %w", err)
	}
	return paths, nil
}

// fetchSegment writes one segment through a .part file so an interrupted
// transfer never looks complete.
func (e *Engine) fetchSegment(ctx context.Context, url, path string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.SegmentTimeout)
	defer cancel()

	resp, err := e.client.Open(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	part := path + ".part"
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", part, err)
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		return fmt.Errorf("failed to write segment: %w", err)
	}

	if err := os.Rename(part, path); err != nil {
		return fmt.Errorf("failed to finalize segment: %w", err)
	}
	metrics.RecordSegment(n)
	return nil
}

// merge concatenates the segments in order
func (e *Engine) merge(ctx context.Context, paths []string, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	total := uint32(len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		in, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open segment: %w", err)
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			return fmt.Errorf("failed to merge segment: %w", err)
		}

		e.publish(ctx, models.DownloadProgress{
			Stage:   models.StageMerging,
			Current: uint32(i + 1),
			Total:   total,
			Message: "merging segments",
		})
	}
	return out.Close()
}

// DownloadClip streams the clip MP4 into req.OutputDir
func (e *Engine) DownloadClip(ctx context.Context, req models.ClipDownloadRequest) (output string, err error) {
	span, ctx := tracing.StartSpan(ctx, "download_clip")
	tracing.SetTag(span, "clip_id", req.ClipID)

	record := &models.DownloadRecord{
		Kind:      models.ReferenceClip,
		MediaID:   req.ClipID,
		StartedAt: time.Now(),
	}
	defer func() {
		tracing.FinishSpan(span, err)
		e.finish(record, output, err)
	}()

	e.publish(ctx, models.DownloadProgress{Stage: models.StageInfo, Current: 0, Total: 1, Message: "fetching clip info"})

	clip, err := e.client.GetClip(ctx, req.ClipID)
	if err != nil {
		return "", fmt.Errorf("failed to get clip info: %w", err)
	}
	record.Title = clip.Title
	record.Channel = clip.Channel

	e.publish(ctx, models.DownloadProgress{
		Stage:   models.StageInfo,
		Current: 1,
		Total:   1,
		Message: fmt.Sprintf("%s - %s", clip.Channel, clip.Title),
	})

	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	resp, err := e.client.Open(ctx, clip.MP4URL)
	if err != nil {
		return "", fmt.Errorf("failed to download clip: %w", err)
	}
	defer resp.Body.Close()

	output = filepath.Join(req.OutputDir, ClipFileName(clip.Channel, clip.Title))
	f, err := os.Create(output)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", output, err)
	}

	written, err := e.copyWithProgress(ctx, f, resp.Body, resp.ContentLength)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(output)
		return "", fmt.Errorf("failed to write clip: %w", err)
	}
	metrics.BytesDownloadedTotal.WithLabelValues(string(models.ReferenceClip)).Add(float64(written))

	e.publish(ctx, models.DownloadProgress{Stage: models.StageComplete, Current: 1, Total: 1, Message: output})
	return output, nil
}

// copyWithProgress reports percent progress when the length is known, and
// the running byte count otherwise.
func (e *Engine) copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, length int64) (int64, error) {
	buf := make([]byte, 64*1024)
	var written int64
	last := int64(-1)

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)

			if length > 0 {
				percent := written * 100 / length
				if percent != last {
					last = percent
					e.publish(ctx, models.DownloadProgress{
						Stage:   models.StageDownloading,
						Current: uint32(percent),
						Total:   100,
						Message: "downloading clip",
					})
				}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
