// Package reference classifies free-text input into a typed media reference.
package reference

import (
	"regexp"
	"strings"

	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

var (
	clipURLPattern  = regexp.MustCompile(`/clips/([A-Za-z0-9]+)`)
	videoURLPattern = regexp.MustCompile(`/video/(\d+)`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
	alnumPattern    = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// Parse classifies raw input. Rules are tried in order and the first match
// wins: clip URL, video URL, bare digits (video), bare alphanumerics (clip).
// It returns the zero reference when nothing matches.
func Parse(input string) models.MediaReference {
	text := strings.TrimSpace(input)
	if text == "" {
		return models.MediaReference{}
	}

	if m := clipURLPattern.FindStringSubmatch(text); m != nil {
		return models.MediaReference{Kind: models.ReferenceClip, ID: m[1]}
	}

	if m := videoURLPattern.FindStringSubmatch(text); m != nil {
		return models.MediaReference{Kind: models.ReferenceVideo, ID: m[1]}
	}

	if digitsPattern.MatchString(text) {
		return models.MediaReference{Kind: models.ReferenceVideo, ID: text}
	}

	if alnumPattern.MatchString(text) {
		return models.MediaReference{Kind: models.ReferenceClip, ID: text}
	}

	return models.MediaReference{}
}
