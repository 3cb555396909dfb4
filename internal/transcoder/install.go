package transcoder

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Static zip builds per platform
var defaultInstallURLs = map[string]string{
	"windows": "https://github.com/BtbN/FFmpeg-Builds/releases/download/latest/ffmpeg-master-latest-win64-gpl.zip",
	"darwin":  "https://evermeet.cx/ffmpeg/getrelease/zip",
}

var (
	// ErrNotFound is returned when no working ffmpeg exists
	ErrNotFound = errors.New("ffmpeg not found")
	// ErrBinaryMissing is returned when the archive has no ffmpeg binary
	ErrBinaryMissing = errors.New("ffmpeg binary not found in archive")
	// ErrBinaryUnusable is returned when the extracted binary does not run
	ErrBinaryUnusable = errors.New("installed ffmpeg does not run on this host")
	// ErrNoInstallURL is returned when no build is known for this platform
	ErrNoInstallURL = errors.New("no ffmpeg build known for this platform, set ffmpeg.installURL")
)

// DefaultInstallURL returns the zip build for this platform, or "" when none
// is known
func DefaultInstallURL() string {
	return defaultInstallURLs[runtime.GOOS]
}

// Install downloads the ffmpeg archive from url and extracts the binary into
// the data directory. An ffmpeg that already works is returned as is. The
// extracted binary must answer "-version" before it is reported installed.
func (f *FFmpeg) Install(ctx context.Context, client *http.Client, url string, progress ProgressFunc) (string, error) {
	if existing, ok := f.Resolve(ctx); ok {
		return existing, nil
	}
	if url == "" {
		url = DefaultInstallURL()
	}
	if url == "" {
		return "", ErrNoInstallURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if progress == nil {
		progress = func(models.DownloadProgress) {}
	}

	if err := os.MkdirAll(f.dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	archive, err := os.CreateTemp(f.dataDir, "ffmpeg-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(archive.Name())
	defer archive.Close()

	f.logger.Infof("Downloading ffmpeg from %s", url)
	if err := download(ctx, client, url, archive, progress); err != nil {
		return "", err
	}

	progress(models.DownloadProgress{Stage: models.StageFFmpegInstall, Current: 100, Total: 100, Message: "extracting"})

	target := f.InstalledPath()
	if err := extractBinary(archive.Name(), BinaryName(), target); err != nil {
		return "", err
	}
	if !f.works(ctx, target) {
		f.logger.WithField("url", url).Warnf("Extracted ffmpeg does not run on %s/%s, removing it", runtime.GOOS, runtime.GOARCH)
		os.Remove(target)
		return "", ErrBinaryUnusable
	}

	f.logger.Infof("ffmpeg installed at %s", target)
	return target, nil
}

func download(ctx context.Context, client *http.Client, url string, dst io.Writer, progress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("ffmpeg download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ffmpeg download failed: status %d", resp.StatusCode)
	}

	total := resp.ContentLength
	var written int64
	lastPercent := uint32(101)
	buf := make([]byte, 32*1024)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return fmt.Errorf("failed to write archive: %w", err)
			}
			written += int64(n)

			if total > 0 {
				percent := uint32(written * 100 / total)
				if percent != lastPercent {
					lastPercent = percent
					progress(models.DownloadProgress{
						Stage:   models.StageFFmpegInstall,
						Current: percent,
						Total:   100,
						Message: "downloading ffmpeg",
					})
				}
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("ffmpeg download failed: %w", readErr)
		}
	}
}

// extractBinary copies the entry named binary, either at the archive root or
// under a bin directory, to target
func extractBinary(archivePath, binary, target string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		name := path.Clean(strings.ReplaceAll(file.Name, "\\", "/"))
		if path.Base(name) != binary {
			continue
		}
		if dir := path.Dir(name); dir != "." && path.Base(dir) != "bin" {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("failed to create install directory: %w", err)
		}

		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file.Name, err)
		}
		defer src.Close()

		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", target, err)
		}
		if _, err := io.Copy(out, src); err != nil {
			out.Close()
			return fmt.Errorf("failed to extract ffmpeg: %w", err)
		}
		return out.Close()
	}
	return ErrBinaryMissing
}
