package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/logging"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Runner executes an external program and returns its combined output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.Bytes(), err
}

// ProgressFunc receives progress snapshots of long-running operations
type ProgressFunc func(models.DownloadProgress)

// FFmpeg locates and drives the ffmpeg binary
type FFmpeg struct {
	path    string
	dataDir string
	runner  Runner
	logger  *logging.Logger
}

// NewFFmpeg creates a new FFmpeg instance. path is tried first; a copy
// installed under dataDir is the fallback.
func NewFFmpeg(path, dataDir string, runner Runner, logger *logging.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &FFmpeg{
		path:    path,
		dataDir: dataDir,
		runner:  runner,
		logger:  logger.WithComponent("ffmpeg"),
	}
}

// BinaryName is the platform file name of ffmpeg
func BinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// InstalledPath is where Install places the binary
func (f *FFmpeg) InstalledPath() string {
	return filepath.Join(f.dataDir, "ffmpeg", BinaryName())
}

func (f *FFmpeg) works(ctx context.Context, path string) bool {
	_, err := f.runner.Run(ctx, path, "-version")
	return err == nil
}

// Resolve returns the first ffmpeg that answers "-version"
func (f *FFmpeg) Resolve(ctx context.Context) (string, bool) {
	if f.works(ctx, f.path) {
		return f.path, true
	}

	installed := f.InstalledPath()
	if _, err := os.Stat(installed); err == nil && f.works(ctx, installed) {
		return installed, true
	}
	return "", false
}

// Check reports whether a working ffmpeg is available
func (f *FFmpeg) Check(ctx context.Context) bool {
	_, ok := f.Resolve(ctx)
	return ok
}

// RemuxArgs builds the stream-copy command that turns the concatenated
// segments into a faststart MP4.
func RemuxArgs(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-c", "copy",
		"-map", "0",
		"-movflags", "faststart",
		"-bsf:a", "aac_adtstoasc",
		output,
	}
}

// Remux copies input into an MP4 container at output
func (f *FFmpeg) Remux(ctx context.Context, input, output string) error {
	path, ok := f.Resolve(ctx)
	if !ok {
		return ErrNotFound
	}

	started := time.Now()
	out, err := f.runner.Run(ctx, path, RemuxArgs(input, output)...)
	metrics.RemuxDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return fmt.Errorf("ffmpeg remux failed: %w, output: %s", err, tail(out, 2048))
	}

	f.logger.WithFields(map[string]interface{}{
		"input":    input,
		"output":   output,
		"duration": time.Since(started).String(),
	}).Info("Remux completed")
	return nil
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(bytes.TrimSpace(b))
}
