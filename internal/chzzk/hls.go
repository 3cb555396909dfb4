package chzzk

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

var (
	mapURIPattern = regexp.MustCompile(`#EXT-X-MAP:URI="([^"]+)"`)
	numberPattern = regexp.MustCompile(`[\d.]+`)
)

// Segment is one downloadable chunk of media
type Segment struct {
	URL    string
	IsInit bool
}

// QualityLabel renders "1080p (8.0Mbps)", or just the bitrate when the height
// is unknown.
func QualityLabel(height int, bandwidth int64) string {
	mbps := float64(bandwidth) / 1_000_000
	if height > 0 {
		return fmt.Sprintf("%dp (%.1fMbps)", height, mbps)
	}
	return fmt.Sprintf("%.1fMbps", mbps)
}

// ParseMasterPlaylist returns one quality per #EXT-X-STREAM-INF entry. The
// quality id is the variant URI on the following line, as written.
func ParseMasterPlaylist(text string) []models.QualityOption {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var options []models.QualityOption
	for i, line := range lines {
		params, ok := strings.CutPrefix(line, "#EXT-X-STREAM-INF:")
		if !ok || i+1 >= len(lines) {
			continue
		}

		uri := strings.TrimSpace(lines[i+1])
		if uri == "" || strings.HasPrefix(uri, "#") {
			continue
		}

		opt := models.QualityOption{ID: uri}
		if bw, ok := attribute(params, "BANDWIDTH"); ok {
			opt.Bandwidth, _ = strconv.ParseInt(bw, 10, 64)
		}
		if res, ok := attribute(params, "RESOLUTION"); ok {
			if w, h, found := strings.Cut(res, "x"); found {
				opt.Width, _ = strconv.Atoi(w)
				opt.Height, _ = strconv.Atoi(h)
			}
		}
		opt.Label = QualityLabel(opt.Height, opt.Bandwidth)
		options = append(options, opt)
	}
	return options
}

// attribute extracts KEY=value from an attribute list
func attribute(params, key string) (string, bool) {
	idx := strings.Index(params, key+"=")
	if idx < 0 {
		return "", false
	}
	value := params[idx+len(key)+1:]
	if comma := strings.IndexByte(value, ','); comma >= 0 {
		value = value[:comma]
	}
	return value, true
}

// LastVariant returns the last URI line of a master playlist
func LastVariant(text string) (string, bool) {
	var last string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			last = strings.TrimSpace(line)
		}
	}
	return last, last != ""
}

// ResolveURL resolves a playlist-relative reference against base. The query
// string of base is ignored when locating the last path separator.
func ResolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	path := base
	if q := strings.IndexByte(base, '?'); q >= 0 {
		path = base[:q]
	}
	if slash := strings.LastIndexByte(path, '/'); slash >= 0 {
		return base[:slash] + "/" + ref
	}
	return ref
}

// SelectHLSSegments picks the init segment and every media segment whose
// [t, t+d] span overlaps [start, end]. A negative end means the playlist's
// total duration.
func SelectHLSSegments(playlist, playlistURL string, start, end float64) []Segment {
	var segments []Segment
	if m := mapURIPattern.FindStringSubmatch(playlist); m != nil {
		segments = append(segments, Segment{URL: ResolveURL(playlistURL, m[1]), IsInit: true})
	}

	lines := strings.Split(strings.ReplaceAll(playlist, "\r\n", "\n"), "\n")
	if end < 0 {
		end = 0
		for _, line := range lines {
			if d, ok := extinfDuration(line); ok {
				end += d
			}
		}
	}

	var t float64
	for i, line := range lines {
		d, ok := extinfDuration(line)
		if !ok {
			continue
		}
		if t+d >= start && t <= end && i+1 < len(lines) {
			uri := strings.TrimSpace(lines[i+1])
			if !strings.HasPrefix(uri, "#") {
				segments = append(segments, Segment{URL: ResolveURL(playlistURL, uri)})
			}
		}
		t += d
		if t > end {
			break
		}
	}
	return segments
}

func extinfDuration(line string) (float64, bool) {
	if !strings.HasPrefix(line, "#EXTINF") {
		return 0, false
	}
	m := numberPattern.FindString(line)
	if m == "" {
		return 0, false
	}
	d, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

// ClockSeconds parses "HH:MM:SS", "MM:SS" or "SS" into seconds. Empty or
// malformed text is 0.
func ClockSeconds(text string) float64 {
	if text == "" {
		return 0
	}
	var parts []float64
	for _, p := range strings.Split(text, ":") {
		if v, err := strconv.ParseFloat(p, 64); err == nil {
			parts = append(parts, v)
		}
	}
	switch len(parts) {
	case 3:
		return parts[0]*3600 + parts[1]*60 + parts[2]
	case 2:
		return parts[0]*60 + parts[1]
	case 1:
		return parts[0]
	default:
		return 0
	}
}
