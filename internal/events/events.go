// Package events carries the named, fire-and-forget event channel between the
// download engine and its observers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Event names
const (
	DownloadProgress = "download-progress"
	LoginSuccess     = "login-success"
)

// Handler receives the raw JSON payload of one event
type Handler func(payload []byte)

// Subscription is a registration on a Bus. Close releases it; handlers are
// never invoked after Close returns.
type Subscription interface {
	Close() error
}

// Bus multiplexes events by name
type Bus interface {
	Publish(ctx context.Context, name string, payload interface{}) error
	Subscribe(name string, handler Handler) (Subscription, error)
	Close() error
}

// PublishProgress publishes a progress snapshot
func PublishProgress(ctx context.Context, bus Bus, p models.DownloadProgress) error {
	return bus.Publish(ctx, DownloadProgress, p)
}

// PublishLogin publishes captured credentials
func PublishLogin(ctx context.Context, bus Bus, creds models.Credentials) error {
	return bus.Publish(ctx, LoginSuccess, creds)
}

// SubscribeProgress decodes progress events. Undecodable payloads are passed to
// onError when it is not nil.
func SubscribeProgress(bus Bus, fn func(models.DownloadProgress), onError func(error)) (Subscription, error) {
	return bus.Subscribe(DownloadProgress, func(payload []byte) {
		var p models.DownloadProgress
		if err := json.Unmarshal(payload, &p); err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to decode progress event: %w", err))
			}
			return
		}
		fn(p)
	})
}

// SubscribeLogin decodes capture completion events
func SubscribeLogin(bus Bus, fn func(models.Credentials), onError func(error)) (Subscription, error) {
	return bus.Subscribe(LoginSuccess, func(payload []byte) {
		var creds models.Credentials
		if err := json.Unmarshal(payload, &creds); err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to decode login event: %w", err))
			}
			return
		}
		fn(creds)
	})
}
