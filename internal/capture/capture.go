// Package capture implements the assisted login surface. The surface is
// opened by the engine, filled in by the user through the host API, and on
// completion hands the captured cookies to the credential store and to every
// observer of the login event.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/credentials"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/events"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/logging"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Open results
const (
	ResultOpened  = "login_webview_opened"
	ResultFocused = "login_webview_focused"
)

// LoginURL is the page the user signs in on before copying the cookies
const LoginURL = "https://nid.naver.com/nidlogin.login?url=https%3A%2F%2Fchzzk.naver.com%2F"

var (
	// ErrNotOpen is returned when completing a surface that is not open
	ErrNotOpen = errors.New("login capture is not open")
	// ErrIncomplete is returned when either cookie is missing
	ErrIncomplete = errors.New("both NID_AUT and NID_SES are required")
	// ErrInvalidToken is returned when the completion token does not match
	ErrInvalidToken = errors.New("capture token does not match the open surface")
)

// Surface is the single assisted login surface of the process
type Surface struct {
	store  credentials.Store
	bus    events.Bus
	logger *logging.Logger

	mu    sync.Mutex
	open  bool
	token string
}

// NewSurface creates a closed surface
func NewSurface(store credentials.Store, bus events.Bus, logger *logging.Logger) *Surface {
	return &Surface{
		store:  store,
		bus:    bus,
		logger: logger.WithComponent("capture"),
	}
}

// Open opens the surface, or focuses it when it is already open
func (s *Surface) Open() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		s.logger.Debug("Login surface focused")
		return ResultFocused
	}

	s.open = true
	s.token = uuid.New().String()
	s.logger.Info("Login surface opened")
	return ResultOpened
}

// State reports whether the surface is open and the token that completes it
func (s *Surface) State() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open, s.token
}

// Complete saves the captured cookies, announces them on the login event
// and closes the surface. token must match the open surface.
func (s *Surface) Complete(ctx context.Context, token string, creds models.Credentials) error {
	creds.AuthToken = strings.TrimSpace(creds.AuthToken)
	creds.SessionToken = strings.TrimSpace(creds.SessionToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return ErrNotOpen
	}
	if token != s.token {
		return ErrInvalidToken
	}
	if !creds.Complete() {
		return ErrIncomplete
	}

	if err := s.store.Save(ctx, creds); err != nil {
		metrics.CredentialSavesTotal.WithLabelValues("capture", "failure").Inc()
		return fmt.Errorf("failed to save captured credentials: %w", err)
	}

	s.open = false
	s.token = ""

	if err := events.PublishLogin(ctx, s.bus, creds); err != nil {
		s.logger.ErrorWithErr("Failed to publish login event", err)
	}
	s.logger.Info("Login captured")
	return nil
}

// Close closes the surface without capturing anything
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		s.logger.Info("Login surface closed")
	}
	s.open = false
	s.token = ""
}
