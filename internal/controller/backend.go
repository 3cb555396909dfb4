package controller

import (
	"context"

	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Backend is the set of commands the controller dispatches to the download
// engine. Every method may block; the controller always calls them off its
// task queue and applies the result later.
type Backend interface {
	CheckDependency(ctx context.Context) bool
	InstallDependency(ctx context.Context) (string, error)
	FetchVideoInfo(ctx context.Context, videoID string) (*models.VideoInfo, error)
	FetchClipInfo(ctx context.Context, clipID string) (*models.ClipInfo, error)
	DownloadClip(ctx context.Context, req models.ClipDownloadRequest) (string, error)
	DownloadVideo(ctx context.Context, req models.VideoDownloadRequest) (string, error)
	LoadCredentials(ctx context.Context) (*models.Credentials, error)
	SaveCredentials(ctx context.Context, creds models.Credentials) error
	OpenCapture(ctx context.Context) (string, error)
}
