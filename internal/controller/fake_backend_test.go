package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/events"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/logging"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

const (
	testQuietPeriod = 20 * time.Millisecond
	waitFor         = 2 * time.Second
	tick            = 5 * time.Millisecond
)

// fakeBackend records every command. Gates block a call until closed.
type fakeBackend struct {
	mu sync.Mutex

	dependencyReady bool
	installPath     string
	installErr      error
	installGate     chan struct{}
	installCalls    int

	videos     map[string]*models.VideoInfo
	clips      map[string]*models.ClipInfo
	fetchErr   error
	fetchGates map[string]chan struct{}
	videoCalls []string
	clipCalls  []string

	downloadPath  string
	downloadErr   error
	downloadGate  chan struct{}
	videoRequests []models.VideoDownloadRequest
	clipRequests  []models.ClipDownloadRequest

	stored    *models.Credentials
	loadErr   error
	saveErr   error
	saved     []models.Credentials
	openErr   error
	openCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		dependencyReady: true,
		installPath:     "/data/ffmpeg/bin/ffmpeg",
		videos:          make(map[string]*models.VideoInfo),
		clips:           make(map[string]*models.ClipInfo),
		fetchGates:      make(map[string]chan struct{}),
		downloadPath:    "/downloads/out.mp4",
	}
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) CheckDependency(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dependencyReady
}

func (f *fakeBackend) InstallDependency(ctx context.Context) (string, error) {
	f.mu.Lock()
	f.installCalls++
	gate := f.installGate
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.installErr != nil {
		return "", f.installErr
	}
	f.dependencyReady = true
	return f.installPath, nil
}

func (f *fakeBackend) FetchVideoInfo(ctx context.Context, videoID string) (*models.VideoInfo, error) {
	f.mu.Lock()
	f.videoCalls = append(f.videoCalls, videoID)
	gate := f.fetchGates[videoID]
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	info, ok := f.videos[videoID]
	if !ok {
		return nil, errors.New("video not found")
	}
	cp := *info
	return &cp, nil
}

func (f *fakeBackend) FetchClipInfo(ctx context.Context, clipID string) (*models.ClipInfo, error) {
	f.mu.Lock()
	f.clipCalls = append(f.clipCalls, clipID)
	gate := f.fetchGates[clipID]
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	info, ok := f.clips[clipID]
	if !ok {
		return nil, errors.New("clip not found")
	}
	cp := *info
	return &cp, nil
}

func (f *fakeBackend) DownloadClip(ctx context.Context, req models.ClipDownloadRequest) (string, error) {
	f.mu.Lock()
	f.clipRequests = append(f.clipRequests, req)
	gate := f.downloadGate
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloadPath, f.downloadErr
}

func (f *fakeBackend) DownloadVideo(ctx context.Context, req models.VideoDownloadRequest) (string, error) {
	f.mu.Lock()
	f.videoRequests = append(f.videoRequests, req)
	gate := f.downloadGate
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloadPath, f.downloadErr
}

func (f *fakeBackend) LoadCredentials(ctx context.Context) (*models.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.stored == nil {
		return nil, nil
	}
	cp := *f.stored
	return &cp, nil
}

func (f *fakeBackend) SaveCredentials(ctx context.Context, creds models.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, creds)
	f.stored = &creds
	return nil
}

func (f *fakeBackend) OpenCapture(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls++
	if f.openErr != nil {
		return "", f.openErr
	}
	return "login_webview_opened", nil
}

func (f *fakeBackend) counts() (video, clip, videoDownloads, clipDownloads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.videoCalls), len(f.clipCalls), len(f.videoRequests), len(f.clipRequests)
}

func (f *fakeBackend) videoCallIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.videoCalls...)
}

func newTestController(t *testing.T, backend *fakeBackend, outputDir string) (*Controller, *events.MemoryBus) {
	t.Helper()
	return newTestControllerWithQuietPeriod(t, backend, outputDir, testQuietPeriod)
}

func newTestControllerWithQuietPeriod(t *testing.T, backend *fakeBackend, outputDir string, quiet time.Duration) (*Controller, *events.MemoryBus) {
	t.Helper()

	bus := events.NewMemoryBus()
	c := New(Config{QuietPeriod: quiet, OutputDir: outputDir}, backend, bus, logging.NewNopLogger())
	require.NoError(t, c.Start())

	t.Cleanup(func() {
		c.Close()
		bus.Close()
	})
	return c, bus
}
