package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/config"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Routing keys of outcome messages
const (
	RoutingKeyCompleted = "download.completed"
	RoutingKeyFailed    = "download.failed"
)

// publisher is the part of *amqp.Channel the notifier uses
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Notifier publishes terminal download outcomes to a topic exchange
type Notifier struct {
	conn     *amqp.Connection
	channel  publisher
	exchange string
}

// New connects to RabbitMQ and declares the outcome exchange
func New(cfg config.QueueConfig) (*Notifier, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Notifier{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
	}, nil
}

// Close closes the channel and connection
func (n *Notifier) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

// RoutingKey returns the key an outcome is published under
func RoutingKey(record *models.DownloadRecord) string {
	if record.Status == models.DownloadStatusCompleted {
		return RoutingKeyCompleted
	}
	return RoutingKeyFailed
}

// Publish sends the record as a persistent JSON message
func (n *Notifier) Publish(ctx context.Context, record *models.DownloadRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = n.channel.PublishWithContext(ctx,
		n.exchange,
		RoutingKey(record),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    record.ID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish outcome: %w", err)
	}

	return nil
}
