// Package controller holds the input resolution and download session state
// machine. All state is owned by a single goroutine that drains a task queue;
// public methods post closures onto that queue and wait for them to run.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/events"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/logging"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/timecode"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// DefaultQuietPeriod is the debounce delay before a metadata fetch
const DefaultQuietPeriod = 500 * time.Millisecond

// Config holds controller settings
type Config struct {
	QuietPeriod time.Duration
	OutputDir   string
}

// Controller is the single owner of the current input, its preview, the
// time range, the quality selection and the download session.
type Controller struct {
	backend Backend
	bus     events.Bus
	logger  *logging.Logger

	quietPeriod time.Duration

	tasks chan func()
	quit  chan struct{}
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	closeOnce sync.Once
	subsMu    sync.Mutex
	subs      []events.Subscription

	// fields below are owned by the loop goroutine
	onUpdate func(View)
	dirty    bool

	input      string
	ref        models.MediaReference
	debounce   *time.Timer
	fetchSeq   uint64
	fetching   bool
	lastFailed bool
	preview    *models.PreviewInfo
	qualities  []models.QualityOption
	quality    string

	start *timecode.Field
	end   *timecode.Field

	outputDir       string
	session         models.SessionState
	sessionID       string
	installing      bool
	dependencyReady bool
	progress        *models.DownloadProgress
	notification    *models.Notification
	lastOutput      string

	credentials     models.Credentials
	awaitingCapture bool
}

// New creates a controller and starts its task loop. Start must be called
// before the controller observes events.
func New(cfg Config, backend Backend, bus events.Bus, logger *logging.Logger) *Controller {
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = DefaultQuietPeriod
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend:     backend,
		bus:         bus,
		logger:      logger.WithComponent("controller"),
		quietPeriod: cfg.QuietPeriod,
		tasks:       make(chan func()),
		quit:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		quality:     models.QualityAuto,
		start:       timecode.NewField(timecode.Zero),
		end:         timecode.NewField(""),
		outputDir:   cfg.OutputDir,
		session:     models.SessionIdle,
	}

	c.wg.Add(1)
	go c.loop()
	return c
}

// Start subscribes to the progress and login event channels, then loads
// stored credentials and checks dependency readiness in the background.
func (c *Controller) Start() error {
	var err error
	c.startOnce.Do(func() {
		err = c.subscribe()
		if err != nil {
			return
		}
		c.goBackend(c.loadCredentials)
		c.goBackend(c.checkDependency)
	})
	return err
}

func (c *Controller) subscribe() error {
	onDecodeError := func(err error) {
		c.logger.ErrorWithErr("Dropped malformed event", err)
	}

	progressSub, err := events.SubscribeProgress(c.bus, func(p models.DownloadProgress) {
		c.post(func() { c.applyProgress(p) })
	}, onDecodeError)
	if err != nil {
		return err
	}

	loginSub, err := events.SubscribeLogin(c.bus, func(creds models.Credentials) {
		c.post(func() { c.applyCapturedCredentials(creds) })
	}, onDecodeError)
	if err != nil {
		progressSub.Close()
		return err
	}

	c.subsMu.Lock()
	c.subs = append(c.subs, progressSub, loginSub)
	c.subsMu.Unlock()

	c.logger.Debug("Subscribed to progress and login events")
	return nil
}

// Close releases event subscriptions, cancels any pending debounce timer and
// stops the task loop. Results of calls still in flight are discarded.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		// subscriptions go first so that handlers still running can post
		c.subsMu.Lock()
		subs := c.subs
		c.subs = nil
		c.subsMu.Unlock()
		for _, sub := range subs {
			if err := sub.Close(); err != nil {
				c.logger.ErrorWithErr("Failed to release subscription", err)
			}
		}

		_ = c.do(func() {
			if c.debounce != nil {
				c.debounce.Stop()
				c.debounce = nil
			}
		})

		close(c.quit)
		c.cancel()
		c.wg.Wait()
		c.logger.Debug("Controller closed")
	})
	return nil
}

// SetUpdateCallback registers fn to receive a fresh View after every state
// change. fn runs on the task loop and must not call back into the controller
// synchronously.
func (c *Controller) SetUpdateCallback(fn func(View)) {
	_ = c.do(func() { c.onUpdate = fn })
}

// View returns a snapshot of the current state
func (c *Controller) View() View {
	var v View
	if err := c.do(func() { v = c.snapshot() }); err != nil {
		return View{State: models.SessionIdle, Quality: models.QualityAuto}
	}
	return v
}

func (c *Controller) loop() {
	defer c.wg.Done()
	for {
		select {
		case fn := <-c.tasks:
			fn()
			if c.dirty {
				c.dirty = false
				if c.onUpdate != nil {
					c.onUpdate(c.snapshot())
				}
			}
		case <-c.quit:
			return
		}
	}
}

// post queues fn without waiting for it. It gives up once the controller is
// closed.
func (c *Controller) post(fn func()) {
	select {
	case c.tasks <- fn:
	case <-c.quit:
	}
}

// do queues fn and waits until it has run
func (c *Controller) do(fn func()) error {
	done := make(chan struct{})
	select {
	case c.tasks <- func() { fn(); close(done) }:
	case <-c.quit:
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-c.quit:
		return ErrClosed
	}
}

// goBackend runs fn off the task loop
func (c *Controller) goBackend(fn func(ctx context.Context)) {
	go fn(c.ctx)
}

func (c *Controller) changed() {
	c.dirty = true
}

func (c *Controller) notify(kind models.NotificationKind, message, detail string) {
	c.notification = &models.Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	c.changed()
}

// DismissNotification clears the current notification
func (c *Controller) DismissNotification() error {
	return c.do(func() {
		if c.notification != nil {
			c.notification = nil
			c.changed()
		}
	})
}
