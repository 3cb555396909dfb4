package models

import "time"

// VideoDownloadRequest is the input of the video download command.
// End is empty for "to end of media"; QualityID nil lets the engine choose.
type VideoDownloadRequest struct {
	VideoID   string  `json:"video_id"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	OutputDir string  `json:"output_dir"`
	QualityID *string `json:"quality_id,omitempty"`
}

// ClipDownloadRequest is the input of the clip download command
type ClipDownloadRequest struct {
	ClipID    string `json:"clip_id"`
	OutputDir string `json:"output_dir"`
}

// DownloadStatus constants
const (
	DownloadStatusCompleted = "completed"
	DownloadStatusFailed    = "failed"
)

// DownloadRecord is a finished download session, kept in the history
type DownloadRecord struct {
	ID          string        `json:"id" db:"id"`
	Kind        ReferenceKind `json:"kind" db:"kind"`
	MediaID     string        `json:"media_id" db:"media_id"`
	Title       string        `json:"title" db:"title"`
	Channel     string        `json:"channel" db:"channel"`
	Start       string        `json:"start,omitempty" db:"start_time"`
	End         string        `json:"end,omitempty" db:"end_time"`
	QualityID   string        `json:"quality_id,omitempty" db:"quality_id"`
	Status      string        `json:"status" db:"status"`
	OutputPath  string        `json:"output_path,omitempty" db:"output_path"`
	ArchiveKey  string        `json:"archive_key,omitempty" db:"archive_key"`
	Size        int64         `json:"size" db:"size"`
	ErrorMsg    string        `json:"error_msg,omitempty" db:"error_msg"`
	StartedAt   time.Time     `json:"started_at" db:"started_at"`
	CompletedAt time.Time     `json:"completed_at" db:"completed_at"`
}
