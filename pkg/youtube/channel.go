package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	apperrors "mediagate/pkg/errors"
)

// thumbnailPreference is the order thumbnails are picked in
var thumbnailPreference = []string{"maxres", "high", "medium", "default"}

// FetchChannel loads snippet, statistics and branding for channelID and
// shapes them into a Channel
func (c *Client) FetchChannel(ctx context.Context, channelID string) (*Channel, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics,brandingSettings")
	params.Set("id", channelID)

	var resp ChannelListResponse
	if err := c.getJSON(ctx, "channels", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrChannelNotFound
	}

	raw := resp.Items[0]
	var item ChannelItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, apperrors.Upstream("Unexpected response from YouTube", err)
	}

	ch := ShapeChannel(channelID, item)
	ch.FullJSONResponse = raw

	c.logger.DebugWithFields("channel fetched", map[string]interface{}{
		"channel_id": channelID,
		"title":      ch.Title,
	})
	return ch, nil
}

// ShapeChannel builds the caller-facing result from a channel resource
func ShapeChannel(channelID string, item ChannelItem) *Channel {
	ch := &Channel{
		ChannelID:   channelID,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		PublishedAt: item.Snippet.PublishedAt,
		Country:     orDefault(item.Snippet.Country, "N/A"),
		Thumbnail:   pickThumbnail(item.Snippet.Thumbnails),
		Subscribers: item.Statistics.SubscriberCount,
		TotalViews:  item.Statistics.ViewCount,
		TotalVideos: item.Statistics.VideoCount,
		CustomURL:   orDefault(item.Snippet.CustomURL, "N/A"),
	}

	switch img := item.BrandingSettings.Image; {
	case img.BannerExternalURL != "":
		ch.BannerURL = img.BannerExternalURL
	case img.BannerImageURL != "":
		ch.BannerURL = img.BannerImageURL
	}

	return ch
}

// pickThumbnail returns the largest thumbnail URL, or nil when the channel
// has none
func pickThumbnail(thumbs map[string]Thumbnail) *string {
	for _, size := range thumbnailPreference {
		if t, ok := thumbs[size]; ok && t.URL != "" {
			url := t.URL
			return &url
		}
	}
	return nil
}

func orDefault(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

// Lookup validates rawURL, resolves it and fetches the channel. Errors are
// typed for the HTTP boundary.
func (c *Client) Lookup(ctx context.Context, rawURL string) (*Channel, error) {
	if !ValidChannelURL(rawURL) {
		return nil, apperrors.Validation("Invalid URL format")
	}

	channelID, err := c.ResolveChannelID(ctx, rawURL)
	if err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			return nil, apperrors.Validation("Invalid channel URL")
		}
		return nil, err
	}

	ch, err := c.FetchChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			return nil, apperrors.NotFound("Channel not found")
		}
		return nil, err
	}
	return ch, nil
}
