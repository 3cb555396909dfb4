package models

import "math"

// Progress stages emitted by the download engine
const (
	StageInfo          = "info"
	StageDownloading   = "downloading"
	StageMerging       = "merging"
	StageRemuxing      = "remuxing"
	StageComplete      = "complete"
	StageFFmpegInstall = "ffmpeg-install"
)

// DownloadProgress is a snapshot published on the progress channel
type DownloadProgress struct {
	Stage   string `json:"stage"`
	Current uint32 `json:"current"`
	Total   uint32 `json:"total"`
	Message string `json:"message"`
}

// Percent returns round(current/total*100), or 0 when total is 0
func (p DownloadProgress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int(math.Round(float64(p.Current) / float64(p.Total) * 100))
}
