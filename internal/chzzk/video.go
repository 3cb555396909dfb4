package chzzk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// ErrNoContent is returned when an API response has no content object
var ErrNoContent = errors.New("chzzk: response has no content")

type videoResponse struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Content *videoContent `json:"content"`
}

type videoContent struct {
	VideoTitle             *string `json:"videoTitle"`
	Duration               int64   `json:"duration"`
	ThumbnailImageURL      *string `json:"thumbnailImageUrl"`
	LiveRewindPlaybackJSON *string `json:"liveRewindPlaybackJson"`
	VideoID                *string `json:"videoId"`
	InKey                  *string `json:"inKey"`
	Channel                *struct {
		ChannelName *string `json:"channelName"`
	} `json:"channel"`
}

type rewindPlayback struct {
	Media []struct {
		Path string `json:"path"`
	} `json:"media"`
}

// Video is a resolved VOD. Recordings of live streams are served as HLS from
// MasterURL; everything else is DASH addressed by VideoID and InKey.
type Video struct {
	ID        string
	Title     string
	Channel   string
	Duration  int64
	Thumbnail string
	MasterURL string
	VideoID   string
	InKey     string
}

// IsDASH reports whether the video is served through the playback API
func (v *Video) IsDASH() bool {
	return v.MasterURL == ""
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// GetVideo fetches VOD metadata
func (c *Client) GetVideo(ctx context.Context, id string, creds *models.Credentials) (*Video, error) {
	var resp videoResponse
	url := fmt.Sprintf("%s/service/v3/videos/%s", c.cfg.APIBaseURL, id)
	if err := c.getJSON(ctx, url, creds, &resp); err != nil {
		return nil, err
	}
	if resp.Content == nil {
		return nil, ErrNoContent
	}

	content := resp.Content
	video := &Video{
		ID:        id,
		Title:     stringOr(content.VideoTitle, "video"),
		Channel:   "channel",
		Duration:  content.Duration,
		Thumbnail: stringOr(content.ThumbnailImageURL, ""),
	}
	if content.Channel != nil {
		video.Channel = stringOr(content.Channel.ChannelName, "channel")
	}

	if content.LiveRewindPlaybackJSON != nil {
		var rewind rewindPlayback
		if err := json.Unmarshal([]byte(*content.LiveRewindPlaybackJSON), &rewind); err != nil {
			return nil, fmt.Errorf("failed to decode rewind playback: %w", err)
		}
		if len(rewind.Media) == 0 || rewind.Media[0].Path == "" {
			return nil, errors.New("chzzk: master playlist URL not found")
		}
		video.MasterURL = rewind.Media[0].Path
		return video, nil
	}

	if content.VideoID == nil || content.InKey == nil {
		return nil, errors.New("chzzk: videoId or inKey not found")
	}
	video.VideoID = *content.VideoID
	video.InKey = *content.InKey
	return video, nil
}

// Qualities lists the selectable encodings of v, highest bandwidth first
func (c *Client) Qualities(ctx context.Context, v *Video, creds *models.Credentials) ([]models.QualityOption, error) {
	var options []models.QualityOption
	if v.IsDASH() {
		pb, err := c.playback(ctx, v.VideoID, v.InKey, creds)
		if err != nil {
			return nil, err
		}
		set, ok := pb.AdaptationSetByMime(MimeTypeMP2T)
		if !ok {
			return nil, nil
		}
		options = set.Qualities()
	} else {
		master, err := c.getText(ctx, v.MasterURL)
		if err != nil {
			return nil, err
		}
		options = ParseMasterPlaylist(master)
	}

	models.SortQualities(options)
	return options, nil
}

// Segments resolves the segment list covering [start, end] of v. start and
// end are clock strings; an empty end means the end of the media. A nil
// qualityID picks the last HLS variant or the highest DASH bandwidth.
func (c *Client) Segments(ctx context.Context, v *Video, start, end string, qualityID *string) ([]Segment, error) {
	startSec := ClockSeconds(start)
	endSec := -1.0
	if end != "" {
		endSec = ClockSeconds(end)
	}

	if v.IsDASH() {
		pb, err := c.playback(ctx, v.VideoID, v.InKey, nil)
		if err != nil {
			return nil, err
		}
		set, ok := pb.AdaptationSetByMime(MimeTypeMP2T)
		if !ok {
			return nil, fmt.Errorf("chzzk: no %s adaptation set", MimeTypeMP2T)
		}
		rep, err := set.Select(qualityID)
		if err != nil {
			return nil, err
		}
		return SelectDASHSegments(rep, startSec, endSec)
	}

	master, err := c.getText(ctx, v.MasterURL)
	if err != nil {
		return nil, err
	}

	variant := ""
	if qualityID != nil {
		variant = *qualityID
	} else {
		last, ok := LastVariant(master)
		if !ok {
			return nil, errors.New("chzzk: master playlist has no variants")
		}
		variant = last
	}

	playlistURL := ResolveURL(v.MasterURL, variant)
	playlist, err := c.getText(ctx, playlistURL)
	if err != nil {
		return nil, err
	}
	return SelectHLSSegments(playlist, playlistURL, startSec, endSec), nil
}
