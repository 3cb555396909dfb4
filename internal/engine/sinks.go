package engine

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/storage"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

const sinkTimeout = 2 * time.Minute

// finish hands a terminal outcome to the optional sinks in the background, so
// the download result is returned without waiting on uploads or retries. Sink
// failures are logged and never change the outcome.
func (e *Engine) finish(record *models.DownloadRecord, output string, err error) {
	if e.archive == nil && e.history == nil && len(e.notifiers) == 0 {
		return
	}

	e.sinks.Add(1)
	go func() {
		defer e.sinks.Done()
		e.deliver(record, output, err)
	}()
}

// Wait blocks until every pending outcome has been handed to the sinks
func (e *Engine) Wait() {
	e.sinks.Wait()
}

func (e *Engine) deliver(record *models.DownloadRecord, output string, err error) {

	record.ID = uuid.New().String()
	record.CompletedAt = time.Now()
	record.OutputPath = output
	if err != nil {
		record.Status = models.DownloadStatusFailed
		record.ErrorMsg = err.Error()
	} else {
		record.Status = models.DownloadStatusCompleted
		if info, statErr := os.Stat(output); statErr == nil {
			record.Size = info.Size()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	logger := e.logger.WithFields(map[string]interface{}{
		"record_id": record.ID,
		"media_id":  record.MediaID,
	})

	if e.archive != nil && err == nil {
		key := storage.ObjectKey(record)
		started := time.Now()
		size, uploadErr := e.archive.UploadFile(ctx, key, output)
		logger.LogStorageOperation("upload", e.archive.Bucket(), key, size, time.Since(started), uploadErr)
		if uploadErr == nil {
			record.ArchiveKey = key
		}
	}

	if e.history != nil {
		started := time.Now()
		historyErr := e.history.Create(ctx, record)
		logger.LogDatabaseOperation("insert_download", time.Since(started), historyErr)
	}

	for _, notifier := range e.notifiers {
		if notifyErr := notifier.Publish(ctx, record); notifyErr != nil {
			logger.WithError(notifyErr).Warn("Failed to publish download outcome")
		}
	}
}
