package chzzk

import (
	"context"
	"errors"
	"fmt"
)

type clipResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Content *clipContent `json:"content"`
}

type clipContent struct {
	ContentTitle *string `json:"contentTitle"`
	VideoID      *string `json:"videoId"`
	InKey        *string `json:"inKey"`
	OwnerChannel *struct {
		ChannelName *string `json:"channelName"`
	} `json:"ownerChannel"`
}

// Clip is a resolved clip with its direct MP4 URL
type Clip struct {
	ID        string
	Title     string
	Channel   string
	Thumbnail string
	MP4URL    string
}

// GetClip fetches clip metadata and its playback description
func (c *Client) GetClip(ctx context.Context, id string) (*Clip, error) {
	var resp clipResponse
	url := fmt.Sprintf("%s/service/v1/play-info/clip/%s", c.cfg.APIBaseURL, id)
	if err := c.getJSON(ctx, url, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Content == nil {
		return nil, ErrNoContent
	}

	content := resp.Content
	clip := &Clip{
		ID:      id,
		Title:   stringOr(content.ContentTitle, "clip"),
		Channel: "channel",
	}
	if content.OwnerChannel != nil {
		clip.Channel = stringOr(content.OwnerChannel.ChannelName, "channel")
	}
	if content.VideoID == nil || content.InKey == nil {
		return nil, errors.New("chzzk: clip videoId or inKey not found")
	}

	pb, err := c.playback(ctx, *content.VideoID, *content.InKey, nil)
	if err != nil {
		return nil, err
	}

	set, ok := pb.AdaptationSetByMime(MimeTypeMP4)
	if !ok || len(set.Representation) == 0 || len(set.Representation[0].BaseURL) == 0 {
		return nil, errors.New("chzzk: clip MP4 URL not found")
	}
	clip.MP4URL = set.Representation[0].BaseURL[0].Value
	clip.Thumbnail = pb.Thumbnail()
	return clip, nil
}
