package models

import "sort"

// QualityAuto is the pseudo quality id that lets the download engine choose
const QualityAuto = "auto"

// QualityOption is one selectable encoding of a video
type QualityOption struct {
	ID        string `json:"id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bandwidth int64  `json:"bandwidth"`
	Label     string `json:"label"`
}

// SortQualities orders options by bandwidth, highest first
func SortQualities(options []QualityOption) {
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Bandwidth > options[j].Bandwidth
	})
}

// VideoInfo is the metadata returned for a full-length recording
type VideoInfo struct {
	Title     string          `json:"title"`
	Channel   string          `json:"channel"`
	Duration  int64           `json:"duration"`
	Thumbnail string          `json:"thumbnail"`
	Qualities []QualityOption `json:"qualities"`
}

// ClipInfo is the metadata returned for a clip
type ClipInfo struct {
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	Thumbnail string `json:"thumbnail"`
}

// PreviewInfo is the minimal metadata shown before a download starts.
// Duration is nil for clips and when it is unknown.
type PreviewInfo struct {
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	Thumbnail string `json:"thumbnail"`
	Duration  *int64 `json:"duration,omitempty"`
}

// HasDuration reports whether a positive duration is known
func (p *PreviewInfo) HasDuration() bool {
	return p != nil && p.Duration != nil && *p.Duration > 0
}
