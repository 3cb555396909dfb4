package controller

import (
	"fmt"
	"math"

	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// QualityChoice is one entry of the quality selector
type QualityChoice struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	EstimateMB *int64 `json:"estimate_mb,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// EstimateSizeMB returns round(bandwidth * seconds / 8 / 1e6)
func EstimateSizeMB(bandwidth, seconds int64) int64 {
	return int64(math.Round(float64(bandwidth) * float64(seconds) / 8 / 1_000_000))
}

// FormatSize renders a megabyte count, switching to gigabytes at 1000 MB
func FormatSize(mb int64) string {
	if mb >= 1000 {
		return fmt.Sprintf("%.1f GB", float64(mb)/1000)
	}
	return fmt.Sprintf("%d MB", mb)
}

// FormatBitrate renders a bandwidth in megabits per second
func FormatBitrate(bandwidth int64) string {
	return fmt.Sprintf("%.1f Mbps", float64(bandwidth)/1_000_000)
}

// QualityChoices builds the selector entries: "auto" first, then every
// option in the given order. With a known range length each option carries a
// size estimate, otherwise its raw bitrate.
func QualityChoices(options []models.QualityOption, seconds int64, known bool) []QualityChoice {
	choices := make([]QualityChoice, 0, len(options)+1)
	choices = append(choices, QualityChoice{ID: models.QualityAuto, Label: "Auto"})

	for _, opt := range options {
		choice := QualityChoice{ID: opt.ID, Label: opt.Label}
		if known {
			mb := EstimateSizeMB(opt.Bandwidth, seconds)
			choice.EstimateMB = &mb
			choice.Detail = "~" + FormatSize(mb)
		} else {
			choice.Detail = FormatBitrate(opt.Bandwidth)
		}
		choices = append(choices, choice)
	}
	return choices
}

// SelectQuality sets the quality selection to "auto" or one of the resolved
// options.
func (c *Controller) SelectQuality(id string) error {
	var err error
	doErr := c.do(func() {
		if id != models.QualityAuto && !c.hasQuality(id) {
			err = fmt.Errorf("%w: %s", ErrUnknownQuality, id)
			return
		}
		c.quality = id
		c.changed()
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (c *Controller) hasQuality(id string) bool {
	for _, opt := range c.qualities {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// selectedQualityID returns nil for "auto" so the engine chooses
func (c *Controller) selectedQualityID() *string {
	if c.quality == models.QualityAuto || c.quality == "" {
		return nil
	}
	id := c.quality
	return &id
}
