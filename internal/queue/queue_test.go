package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	messages []published
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, RoutingKeyCompleted, RoutingKey(&models.DownloadRecord{Status: models.DownloadStatusCompleted}))
	assert.Equal(t, RoutingKeyFailed, RoutingKey(&models.DownloadRecord{Status: models.DownloadStatusFailed}))
}

func TestNotifier_Publish(t *testing.T) {
	channel := &fakeChannel{}
	notifier := &Notifier{channel: channel, exchange: "chzzkdl.downloads"}

	record := &models.DownloadRecord{
		ID:         "session-1",
		Kind:       models.ReferenceVideo,
		MediaID:    "12345",
		Status:     models.DownloadStatusCompleted,
		OutputPath: "/tmp/out.mp4",
	}
	require.NoError(t, notifier.Publish(context.Background(), record))

	require.Len(t, channel.messages, 1)
	msg := channel.messages[0]
	assert.Equal(t, "chzzkdl.downloads", msg.exchange)
	assert.Equal(t, RoutingKeyCompleted, msg.key)
	assert.Equal(t, "session-1", msg.msg.MessageId)
	assert.Equal(t, uint8(amqp.Persistent), msg.msg.DeliveryMode)

	var decoded models.DownloadRecord
	require.NoError(t, json.Unmarshal(msg.msg.Body, &decoded))
	assert.Equal(t, "12345", decoded.MediaID)

	require.NoError(t, notifier.Close())
	assert.True(t, channel.closed)
}

func TestNotifier_PublishError(t *testing.T) {
	notifier := &Notifier{channel: &fakeChannel{err: errors.New("channel closed")}, exchange: "x"}

	err := notifier.Publish(context.Background(), &models.DownloadRecord{ID: "1", Status: models.DownloadStatusFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}
