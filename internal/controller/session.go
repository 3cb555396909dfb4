package controller

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/timecode"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// SetDestination sets the output directory. An empty string unselects it.
func (c *Controller) SetDestination(dir string) error {
	return c.do(func() {
		c.outputDir = strings.TrimSpace(dir)
		c.changed()
	})
}

// busy reports whether a download or dependency install is active
func (c *Controller) busy() bool {
	return c.session != models.SessionIdle || c.installing
}

// blockingReason returns the first precondition that prevents a download
func (c *Controller) blockingReason() error {
	if c.ref.IsZero() {
		return ErrMissingReference
	}
	if c.outputDir == "" {
		return ErrMissingDestination
	}
	if c.busy() {
		return ErrBusy
	}
	if c.ref.IsVideo() {
		if err := c.rangeError(); err != nil {
			return err
		}
		if !c.dependencyReady {
			return ErrDependencyMissing
		}
	}
	return nil
}

// StartDownload checks the preconditions and, when they hold, dispatches
// exactly one download call for the current reference. The check and the
// busy transition happen in the same task, so a second trigger while busy
// returns ErrBusy without calling the backend.
func (c *Controller) StartDownload() error {
	var err error
	doErr := c.do(func() {
		if err = c.blockingReason(); err != nil {
			return
		}
		c.beginSession()
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (c *Controller) beginSession() {
	c.notification = nil
	c.progress = nil
	c.lastOutput = ""
	c.session = models.SessionPreparing
	c.sessionID = uuid.New().String()
	c.changed()

	ref := c.ref
	sessionID := c.sessionID
	logger := c.logger.WithSession(sessionID).WithReference(ref)
	logger.LogSessionEvent(sessionID, "prepare", c.session, nil)

	var dispatch func(ctx context.Context) (string, error)
	if ref.IsClip() {
		req := models.ClipDownloadRequest{ClipID: ref.ID, OutputDir: c.outputDir}
		dispatch = func(ctx context.Context) (string, error) {
			return c.backend.DownloadClip(ctx, req)
		}
	} else {
		start := c.start.Text()
		if strings.TrimSpace(start) == "" {
			start = timecode.Zero
		}
		req := models.VideoDownloadRequest{
			VideoID:   ref.ID,
			Start:     start,
			End:       c.end.Text(),
			OutputDir: c.outputDir,
			QualityID: c.selectedQualityID(),
		}
		dispatch = func(ctx context.Context) (string, error) {
			return c.backend.DownloadVideo(ctx, req)
		}
	}

	metrics.RecordDownloadStarted(string(ref.Kind))
	c.goBackend(func(ctx context.Context) {
		c.post(func() {
			if c.sessionID == sessionID && c.session == models.SessionPreparing {
				c.session = models.SessionDownloading
				logger.LogSessionEvent(sessionID, "run", c.session, nil)
				c.changed()
			}
		})

		started := time.Now()
		path, err := dispatch(ctx)
		elapsed := time.Since(started)
		logger.LogBackendCall("download_"+string(ref.Kind), elapsed, err)
		metrics.RecordDownloadCompleted(string(ref.Kind), err == nil, elapsed.Seconds())

		c.post(func() { c.finishSession(sessionID, path, err) })
	})
}

func (c *Controller) finishSession(sessionID, path string, err error) {
	if c.sessionID != sessionID {
		return
	}

	c.session = models.SessionIdle
	if err != nil {
		c.logger.LogSessionEvent(sessionID, "failed", c.session, map[string]interface{}{"error": err.Error()})
		c.notify(models.NotificationError, "Download failed", err.Error())
		return
	}

	c.lastOutput = path
	c.logger.LogSessionEvent(sessionID, "completed", c.session, map[string]interface{}{"output": path})
	c.notify(models.NotificationSuccess, "Download complete", path)
}

// InstallDependency starts the one-time ffmpeg install. It is refused while a
// download or another install is running.
func (c *Controller) InstallDependency() error {
	var err error
	doErr := c.do(func() {
		switch {
		case c.installing:
			err = ErrInstalling
			return
		case c.session != models.SessionIdle:
			err = ErrBusy
			return
		}

		c.installing = true
		c.notification = nil
		c.progress = nil
		c.changed()

		c.goBackend(func(ctx context.Context) {
			started := time.Now()
			path, err := c.backend.InstallDependency(ctx)
			c.logger.LogBackendCall("install_ffmpeg", time.Since(started), err)
			if err != nil {
				metrics.DependencyInstallsTotal.WithLabelValues("failure").Inc()
			} else {
				metrics.DependencyInstallsTotal.WithLabelValues("success").Inc()
			}
			c.post(func() { c.finishInstall(path, err) })
		})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (c *Controller) finishInstall(path string, err error) {
	c.installing = false
	if err != nil {
		c.notify(models.NotificationError, "ffmpeg install failed", err.Error())
		return
	}
	c.dependencyReady = true
	c.notify(models.NotificationSuccess, "ffmpeg installed", path)
}

// CheckDependency re-queries dependency readiness in the background
func (c *Controller) CheckDependency() error {
	return c.do(func() { c.goBackend(c.checkDependency) })
}

func (c *Controller) checkDependency(ctx context.Context) {
	started := time.Now()
	ready := c.backend.CheckDependency(ctx)
	c.logger.LogBackendCall("check_ffmpeg", time.Since(started), nil)
	c.post(func() {
		if c.dependencyReady != ready {
			c.dependencyReady = ready
			c.changed()
		}
	})
}

// applyProgress replaces the held progress snapshot
func (c *Controller) applyProgress(p models.DownloadProgress) {
	snapshot := p
	c.progress = &snapshot
	c.changed()
}
