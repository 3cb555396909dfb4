package chzzk

import (
	"fmt"
	"math"
	"strings"

	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// MIME types of the playback adaptation sets
const (
	MimeTypeMP2T = "video/mp2t"
	MimeTypeMP4  = "video/mp4"
)

// Playback is the neonplayer playback description
type Playback struct {
	Period []Period `json:"period"`
}

// Period is one playback period
type Period struct {
	AdaptationSet        []AdaptationSet        `json:"adaptationSet"`
	SupplementalProperty []SupplementalProperty `json:"supplementalProperty"`
}

// AdaptationSet groups the representations of one MIME type
type AdaptationSet struct {
	MimeType       string           `json:"mimeType"`
	Representation []Representation `json:"representation"`
}

// Representation is one encoding
type Representation struct {
	ID              string           `json:"id"`
	Width           int              `json:"width"`
	Height          int              `json:"height"`
	Bandwidth       int64            `json:"bandwidth"`
	BaseURL         []Value          `json:"baseURL"`
	SegmentTemplate *SegmentTemplate `json:"segmentTemplate"`
}

// Value wraps a string value
type Value struct {
	Value string `json:"value"`
}

// SegmentTemplate describes numbered segment URLs
type SegmentTemplate struct {
	Media           string          `json:"media"`
	Timescale       int64           `json:"timescale"`
	SegmentTimeline SegmentTimeline `json:"segmentTimeline"`
}

// SegmentTimeline lists segment durations
type SegmentTimeline struct {
	S []TimelineEntry `json:"s"`
}

// TimelineEntry is a run of r+1 segments of duration d
type TimelineEntry struct {
	D int64 `json:"d"`
	R int64 `json:"r"`
}

// SupplementalProperty carries the thumbnail sets
type SupplementalProperty struct {
	Any []PropertyItem `json:"any"`
}

// PropertyItem is one entry of a supplemental property
type PropertyItem struct {
	ThumbnailSet []ThumbnailSet `json:"thumbnailSet"`
}

// ThumbnailSet is a list of thumbnails
type ThumbnailSet struct {
	Thumbnail []Thumbnail `json:"thumbnail"`
}

// Thumbnail points at one image
type Thumbnail struct {
	Source Value `json:"source"`
}

// AdaptationSetByMime returns the first adaptation set of the first period
// with the given MIME type.
func (p *Playback) AdaptationSetByMime(mime string) (*AdaptationSet, bool) {
	if len(p.Period) == 0 {
		return nil, false
	}
	for i := range p.Period[0].AdaptationSet {
		if p.Period[0].AdaptationSet[i].MimeType == mime {
			return &p.Period[0].AdaptationSet[i], true
		}
	}
	return nil, false
}

// Thumbnail returns the first thumbnail URL with any "?type=" suffix removed
func (p *Playback) Thumbnail() string {
	if len(p.Period) == 0 || len(p.Period[0].SupplementalProperty) == 0 {
		return ""
	}
	for _, item := range p.Period[0].SupplementalProperty[0].Any {
		if item.ThumbnailSet == nil {
			continue
		}
		if len(item.ThumbnailSet) == 0 || len(item.ThumbnailSet[0].Thumbnail) == 0 {
			return ""
		}
		url := item.ThumbnailSet[0].Thumbnail[0].Source.Value
		if idx := strings.Index(url, "?type="); idx >= 0 {
			url = url[:idx]
		}
		return url
	}
	return ""
}

// Qualities returns the options of an adaptation set
func (a *AdaptationSet) Qualities() []models.QualityOption {
	options := make([]models.QualityOption, 0, len(a.Representation))
	for _, rep := range a.Representation {
		height := rep.Height
		if rep.Width <= 0 {
			height = 0
		}
		options = append(options, models.QualityOption{
			ID:        rep.ID,
			Width:     rep.Width,
			Height:    rep.Height,
			Bandwidth: rep.Bandwidth,
			Label:     QualityLabel(height, rep.Bandwidth),
		})
	}
	return options
}

// Select returns the representation with the given id, or the one with the
// highest bandwidth when id is nil.
func (a *AdaptationSet) Select(id *string) (*Representation, error) {
	if len(a.Representation) == 0 {
		return nil, fmt.Errorf("adaptation set %s has no representations", a.MimeType)
	}

	if id != nil {
		for i := range a.Representation {
			if a.Representation[i].ID == *id {
				return &a.Representation[i], nil
			}
		}
		return nil, fmt.Errorf("quality %q not found", *id)
	}

	best := &a.Representation[0]
	for i := range a.Representation[1:] {
		if a.Representation[i+1].Bandwidth > best.Bandwidth {
			best = &a.Representation[i+1]
		}
	}
	return best, nil
}

// SelectDASHSegments expands the segment timeline of rep and returns every
// segment whose span overlaps [start, end]. A negative end is unbounded.
func SelectDASHSegments(rep *Representation, start, end float64) ([]Segment, error) {
	if len(rep.BaseURL) == 0 {
		return nil, fmt.Errorf("representation %s has no baseURL", rep.ID)
	}
	if rep.SegmentTemplate == nil || rep.SegmentTemplate.Media == "" {
		return nil, fmt.Errorf("representation %s has no segment template", rep.ID)
	}
	if end < 0 {
		end = math.MaxFloat64
	}

	tmpl := rep.SegmentTemplate
	timescale := float64(tmpl.Timescale)
	if timescale <= 0 {
		timescale = 1000
	}
	base := rep.BaseURL[0].Value

	var segments []Segment
	number := 1
	var t float64
	for _, entry := range tmpl.SegmentTimeline.S {
		d := float64(entry.D) / timescale
		count := int64(1)
		if entry.R >= 0 {
			count = entry.R + 1
		}

		for n := int64(0); n < count; n++ {
			if t+d >= start && t <= end {
				media := strings.NewReplacer(
					"$RepresentationID$", rep.ID,
					"$Number%06d$", fmt.Sprintf("%06d", number),
					"$Number$", fmt.Sprintf("%d", number),
				).Replace(tmpl.Media)
				segments = append(segments, Segment{URL: base + media})
			}
			t += d
			number++
			if t > end {
				return segments, nil
			}
		}
	}
	return segments, nil
}
