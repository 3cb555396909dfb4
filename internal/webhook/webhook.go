package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/config"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/logging"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Event names
const (
	EventDownloadCompleted = "download.completed"
	EventDownloadFailed    = "download.failed"
)

// Delivery headers
const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderDelivery  = "X-Webhook-Delivery"
	HeaderSignature = "X-Webhook-Signature"
)

// Payload is the JSON body of one delivery
type Payload struct {
	Event     string                 `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	Data      *models.DownloadRecord `json:"data"`
}

// Notifier posts terminal download outcomes to a single endpoint
type Notifier struct {
	client     *http.Client
	url        string
	secret     string
	maxRetries int
	retryDelay time.Duration
	logger     *logging.Logger
}

// New creates a notifier
func New(cfg config.WebhookConfig, logger *logging.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Notifier{
		client:     &http.Client{Timeout: timeout},
		url:        cfg.URL,
		secret:     cfg.Secret,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
		logger:     logger.WithComponent("webhook"),
	}
}

// EventFor maps a record status to its event name
func EventFor(record *models.DownloadRecord) string {
	if record.Status == models.DownloadStatusCompleted {
		return EventDownloadCompleted
	}
	return EventDownloadFailed
}

// Publish delivers the record, retrying with exponential backoff on network
// errors, 5xx and 429 responses
func (n *Notifier) Publish(ctx context.Context, record *models.DownloadRecord) error {
	event := EventFor(record)
	payload, err := json.Marshal(Payload{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      record,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	deliveryID := uuid.New().String()
	delay := n.retryDelay

	for attempt := 0; ; attempt++ {
		retry, err := n.deliver(ctx, event, deliveryID, payload)
		if err == nil {
			metrics.WebhookDeliveriesTotal.WithLabelValues(event, "delivered").Inc()
			return nil
		}
		if !retry || attempt >= n.maxRetries {
			metrics.WebhookDeliveriesTotal.WithLabelValues(event, "failed").Inc()
			return fmt.Errorf("webhook delivery %s failed after %d attempts: %w", deliveryID, attempt+1, err)
		}

		n.logger.WithFields(map[string]interface{}{
			"delivery_id": deliveryID,
			"attempt":     attempt + 1,
		}).WithError(err).Warn("Webhook delivery failed, retrying")

		select {
		case <-ctx.Done():
			metrics.WebhookDeliveriesTotal.WithLabelValues(event, "failed").Inc()
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// deliver sends one attempt and reports whether a failure is worth retrying
func (n *Notifier) deliver(ctx context.Context, event, deliveryID string, payload []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chzzkdl-webhook/1.0")
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderDelivery, deliveryID)
	if n.secret != "" {
		req.Header.Set(HeaderSignature, Sign(payload, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
	return retry, fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, string(body))
}

// Sign returns the HMAC-SHA256 signature header value for payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature header value in constant time
func Verify(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
