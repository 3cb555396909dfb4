// Package engine executes the commands the controller dispatches: metadata
// lookups against CHZZK, segment and clip downloads, ffmpeg installation,
// credential persistence and the login capture surface. Progress is
// published on the event bus as it happens.
package engine

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/capture"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/chzzk"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/credentials"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/events"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/logging"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/tracing"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/transcoder"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Config holds engine settings
type Config struct {
	SegmentConcurrency int
	SegmentTimeout     time.Duration
	InstallURL         string
}

// MetadataCache caches fetched metadata. Misses return (nil, nil).
type MetadataCache interface {
	GetVideoInfo(ctx context.Context, videoID string) (*models.VideoInfo, error)
	SetVideoInfo(ctx context.Context, videoID string, info *models.VideoInfo) error
	GetClipInfo(ctx context.Context, clipID string) (*models.ClipInfo, error)
	SetClipInfo(ctx context.Context, clipID string, info *models.ClipInfo) error
}

// Archiver uploads finished files to object storage
type Archiver interface {
	Bucket() string
	UploadFile(ctx context.Context, objectName, filePath string) (int64, error)
}

// HistoryWriter records finished sessions
type HistoryWriter interface {
	Create(ctx context.Context, record *models.DownloadRecord) error
}

// OutcomeNotifier announces finished sessions
type OutcomeNotifier interface {
	Publish(ctx context.Context, record *models.DownloadRecord) error
}

// Engine implements controller.Backend
type Engine struct {
	cfg        Config
	client     *chzzk.Client
	ffmpeg     *transcoder.FFmpeg
	httpClient *http.Client
	store      credentials.Store
	surface    *capture.Surface
	bus        events.Bus
	logger     *logging.Logger

	cache     MetadataCache
	archive   Archiver
	history   HistoryWriter
	notifiers []OutcomeNotifier

	// pending sink deliveries
	sinks sync.WaitGroup
}

// Option sets an optional collaborator
type Option func(*Engine)

// WithCache enables the metadata cache
func WithCache(c MetadataCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithArchive uploads every finished file
func WithArchive(a Archiver) Option {
	return func(e *Engine) { e.archive = a }
}

// WithHistory records every finished session
func WithHistory(h HistoryWriter) Option {
	return func(e *Engine) { e.history = h }
}

// WithNotifier announces every finished session. It may be given more than
// once.
func WithNotifier(n OutcomeNotifier) Option {
	return func(e *Engine) { e.notifiers = append(e.notifiers, n) }
}

// WithHTTPClient sets the client used for ffmpeg installs
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.httpClient = c }
}

// New creates an engine
func New(cfg Config, client *chzzk.Client, ffmpeg *transcoder.FFmpeg, store credentials.Store,
	surface *capture.Surface, bus events.Bus, logger *logging.Logger, opts ...Option) *Engine {
	if cfg.SegmentConcurrency <= 0 {
		cfg.SegmentConcurrency = 20
	}
	if cfg.SegmentTimeout <= 0 {
		cfg.SegmentTimeout = 30 * time.Second
	}

	e := &Engine{
		cfg:        cfg,
		client:     client,
		ffmpeg:     ffmpeg,
		httpClient: http.DefaultClient,
		store:      store,
		surface:    surface,
		bus:        bus,
		logger:     logger.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) publish(ctx context.Context, p models.DownloadProgress) {
	if err := events.PublishProgress(ctx, e.bus, p); err != nil {
		e.logger.WithError(err).Warn("Failed to publish progress")
	}
}

// CheckDependency reports whether ffmpeg is usable
func (e *Engine) CheckDependency(ctx context.Context) bool {
	return e.ffmpeg.Check(ctx)
}

// InstallDependency downloads ffmpeg into the data directory
func (e *Engine) InstallDependency(ctx context.Context) (path string, err error) {
	span, ctx := tracing.StartSpan(ctx, "install_ffmpeg")
	defer func() { tracing.FinishSpan(span, err) }()

	return e.ffmpeg.Install(ctx, e.httpClient, e.cfg.InstallURL, func(p models.DownloadProgress) {
		e.publish(ctx, p)
	})
}

// LoadCredentials returns the stored credentials, or nil when none exist
func (e *Engine) LoadCredentials(ctx context.Context) (*models.Credentials, error) {
	return e.store.Load(ctx)
}

// SaveCredentials stores both tokens as given
func (e *Engine) SaveCredentials(ctx context.Context, creds models.Credentials) error {
	return e.store.Save(ctx, creds)
}

// OpenCapture opens or focuses the login surface
func (e *Engine) OpenCapture(ctx context.Context) (string, error) {
	return e.surface.Open(), nil
}

// credentials loads the stored cookies for authenticated requests. A failed
// load downgrades to anonymous access.
func (e *Engine) credentials(ctx context.Context) *models.Credentials {
	creds, err := e.store.Load(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to load credentials, continuing without them")
		return nil
	}
	return creds
}
