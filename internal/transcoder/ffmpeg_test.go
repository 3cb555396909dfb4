package transcoder

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/logging"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

type fakeRunner struct {
	mu      sync.Mutex
	working map[string]bool
	fail    error
	calls   [][]string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))

	if !r.working[name] {
		return nil, errors.New("executable file not found")
	}
	if len(args) > 0 && args[0] == "-version" {
		return []byte("ffmpeg version 6.1"), nil
	}
	if r.fail != nil {
		return []byte("conversion failed"), r.fail
	}
	return nil, nil
}

func TestResolve(t *testing.T) {
	dataDir := t.TempDir()
	runner := &fakeRunner{working: map[string]bool{}}
	ff := NewFFmpeg("/usr/bin/ffmpeg", dataDir, runner, logging.NewNopLogger())

	assert.False(t, ff.Check(context.Background()))

	// an installed copy is only used once it exists on disk
	runner.working[ff.InstalledPath()] = true
	assert.False(t, ff.Check(context.Background()))

	require.NoError(t, os.MkdirAll(filepath.Dir(ff.InstalledPath()), 0755))
	require.NoError(t, os.WriteFile(ff.InstalledPath(), []byte("bin"), 0755))
	path, ok := ff.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, ff.InstalledPath(), path)

	runner.working["/usr/bin/ffmpeg"] = true
	path, ok = ff.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/ffmpeg", path)
}

func TestRemux(t *testing.T) {
	runner := &fakeRunner{working: map[string]bool{"ffmpeg": true}}
	ff := NewFFmpeg("", t.TempDir(), runner, logging.NewNopLogger())

	err := ff.Remux(context.Background(), "combined.raw", "out.mp4")
	require.NoError(t, err)

	last := runner.calls[len(runner.calls)-1]
	assert.Equal(t, []string{
		"ffmpeg", "-y", "-i", "combined.raw", "-c", "copy", "-map", "0",
		"-movflags", "faststart", "-bsf:a", "aac_adtstoasc", "out.mp4",
	}, last)

	runner.fail = errors.New("exit status 1")
	err = ff.Remux(context.Background(), "combined.raw", "out.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversion failed")
}

func TestRemux_NotFound(t *testing.T) {
	ff := NewFFmpeg("ffmpeg", t.TempDir(), &fakeRunner{working: map[string]bool{}}, logging.NewNopLogger())
	assert.ErrorIs(t, ff.Remux(context.Background(), "a", "b"), ErrNotFound)
}

func buildArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestInstall(t *testing.T) {
	other := "ffmpeg.exe"
	if BinaryName() == "ffmpeg.exe" {
		other = "ffmpeg"
	}
	entries := map[string]string{
		"ffmpeg-build/README.txt":  "readme",
		"ffmpeg-build/bin/ffprobe": "probe",
	}
	// only the bin entry for this platform is installed
	entries["ffmpeg-build/bin/"+other] = "OTHER PLATFORM"
	entries["ffmpeg-build/doc/"+BinaryName()] = "not a binary"
	entries["ffmpeg-build/bin/"+BinaryName()] = "FFMPEG"
	archive := buildArchive(t, entries)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(archive)
	}))
	defer server.Close()

	dataDir := t.TempDir()
	runner := &fakeRunner{working: map[string]bool{}}
	ff := NewFFmpeg("ffmpeg", dataDir, runner, logging.NewNopLogger())
	runner.working[ff.InstalledPath()] = true

	var events []models.DownloadProgress
	path, err := ff.Install(context.Background(), server.Client(), server.URL, func(p models.DownloadProgress) {
		events = append(events, p)
	})
	require.NoError(t, err)
	assert.Equal(t, ff.InstalledPath(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FFMPEG", string(data))

	require.NotEmpty(t, events)
	for _, e := range events {
		assert.Equal(t, models.StageFFmpegInstall, e.Stage)
	}
	assert.Equal(t, 100, events[len(events)-1].Percent())

	// no temp archives are left behind
	leftovers, _ := filepath.Glob(filepath.Join(dataDir, "ffmpeg-*.zip"))
	assert.Empty(t, leftovers)
}

func TestInstall_AlreadyPresent(t *testing.T) {
	runner := &fakeRunner{working: map[string]bool{"ffmpeg": true}}
	ff := NewFFmpeg("ffmpeg", t.TempDir(), runner, logging.NewNopLogger())

	path, err := ff.Install(context.Background(), nil, "http://invalid.invalid/ffmpeg.zip", nil)
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", path)
}

func TestInstall_Failures(t *testing.T) {
	noBinary := buildArchive(t, map[string]string{"other/bin/ffprobe": "x"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.zip") {
			http.NotFound(w, r)
			return
		}
		w.Write(noBinary)
	}))
	defer server.Close()

	ff := NewFFmpeg("ffmpeg", t.TempDir(), &fakeRunner{working: map[string]bool{}}, logging.NewNopLogger())

	_, err := ff.Install(context.Background(), server.Client(), server.URL+"/missing.zip", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")

	_, err = ff.Install(context.Background(), server.Client(), server.URL+"/build.zip", nil)
	assert.ErrorIs(t, err, ErrBinaryMissing)
}

func TestInstall_RejectsUnusableBinary(t *testing.T) {
	archive := buildArchive(t, map[string]string{"build/bin/" + BinaryName(): "wrong arch"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	runner := &fakeRunner{working: map[string]bool{}}
	ff := NewFFmpeg("ffmpeg", t.TempDir(), runner, logging.NewNopLogger())

	_, err := ff.Install(context.Background(), server.Client(), server.URL, nil)
	assert.ErrorIs(t, err, ErrBinaryUnusable)

	_, statErr := os.Stat(ff.InstalledPath())
	assert.True(t, os.IsNotExist(statErr), "unusable binary is removed")
	assert.False(t, ff.Check(context.Background()))

	last := runner.calls[len(runner.calls)-1]
	assert.Equal(t, []string{ff.InstalledPath(), "-version"}, last)
}

func TestInstall_RootLevelBinary(t *testing.T) {
	archive := buildArchive(t, map[string]string{BinaryName(): "FFMPEG"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	runner := &fakeRunner{working: map[string]bool{}}
	ff := NewFFmpeg("ffmpeg", t.TempDir(), runner, logging.NewNopLogger())
	runner.working[ff.InstalledPath()] = true

	path, err := ff.Install(context.Background(), server.Client(), server.URL, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FFMPEG", string(data))
}

func TestInstall_NoBuildForPlatform(t *testing.T) {
	if DefaultInstallURL() != "" {
		t.Skip("a default build exists for this platform")
	}
	ff := NewFFmpeg("ffmpeg", t.TempDir(), &fakeRunner{working: map[string]bool{}}, logging.NewNopLogger())

	_, err := ff.Install(context.Background(), nil, "", nil)
	assert.ErrorIs(t, err, ErrNoInstallURL)
}
