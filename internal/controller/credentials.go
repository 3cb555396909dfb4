package controller

import (
	"context"
	"time"

	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// loadCredentials mirrors the stored credentials. Absence leaves the fields
// blank.
func (c *Controller) loadCredentials(ctx context.Context) {
	started := time.Now()
	creds, err := c.backend.LoadCredentials(ctx)
	c.logger.LogBackendCall("load_credentials", time.Since(started), err)
	if err != nil || creds == nil {
		return
	}

	loaded := *creds
	c.post(func() {
		c.credentials = loaded
		c.changed()
	})
}

// SaveCredentials persists both tokens verbatim. The mirror is updated and a
// notification raised once the backend confirms.
func (c *Controller) SaveCredentials(creds models.Credentials) error {
	return c.do(func() {
		c.goBackend(func(ctx context.Context) {
			started := time.Now()
			err := c.backend.SaveCredentials(ctx, creds)
			c.logger.LogBackendCall("save_credentials", time.Since(started), err)
			c.post(func() { c.finishSave(creds, err) })
		})
	})
}

func (c *Controller) finishSave(creds models.Credentials, err error) {
	if err != nil {
		metrics.CredentialSavesTotal.WithLabelValues("direct", "failure").Inc()
		c.notify(models.NotificationError, "Failed to save credentials", err.Error())
		return
	}
	metrics.CredentialSavesTotal.WithLabelValues("direct", "success").Inc()
	c.credentials = creds
	c.notify(models.NotificationSuccess, "Credentials saved", "")
}

// BeginCapture asks the backend to open the assisted login surface. Success
// only means the capture started; completion arrives as a login event.
func (c *Controller) BeginCapture() error {
	return c.do(func() {
		c.awaitingCapture = true
		c.changed()

		c.goBackend(func(ctx context.Context) {
			started := time.Now()
			result, err := c.backend.OpenCapture(ctx)
			c.logger.LogBackendCall("open_login_webview", time.Since(started), err)
			c.post(func() { c.captureOpened(result, err) })
		})
	})
}

func (c *Controller) captureOpened(result string, err error) {
	if err != nil {
		c.awaitingCapture = false
		c.notify(models.NotificationError, "Failed to open login", err.Error())
		return
	}
	c.logger.Debugf("Login capture surface: %s", result)
}

// applyCapturedCredentials handles a login event from the capture surface
func (c *Controller) applyCapturedCredentials(creds models.Credentials) {
	metrics.CredentialSavesTotal.WithLabelValues("capture", "success").Inc()
	c.credentials = creds
	c.awaitingCapture = false
	c.notify(models.NotificationSuccess, "Login captured", "")
}
