package youtube

import "encoding/json"

// ChannelListResponse is the body of channels.list
type ChannelListResponse struct {
	Items []json.RawMessage `json:"items"`
}

// ChannelIDListResponse is channels.list with part=id
type ChannelIDListResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

// SearchResponse is the body of search.list with type=channel
type SearchResponse struct {
	Items []struct {
		Snippet struct {
			ChannelID string `json:"channelId"`
		} `json:"snippet"`
	} `json:"items"`
}

// ChannelItem is the subset of a channel resource the service reads
type ChannelItem struct {
	ID               string           `json:"id"`
	Snippet          ChannelSnippet   `json:"snippet"`
	Statistics       ChannelStats     `json:"statistics"`
	BrandingSettings BrandingSettings `json:"brandingSettings"`
}

type ChannelSnippet struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	CustomURL   *string              `json:"customUrl"`
	PublishedAt string               `json:"publishedAt"`
	Country     *string              `json:"country"`
	Thumbnails  map[string]Thumbnail `json:"thumbnails"`
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ChannelStats holds counters, which the API sends as decimal strings.
// A hidden subscriber count is absent rather than zero.
type ChannelStats struct {
	ViewCount       *string `json:"viewCount"`
	SubscriberCount *string `json:"subscriberCount"`
	VideoCount      *string `json:"videoCount"`
}

type BrandingSettings struct {
	Image struct {
		BannerExternalURL string `json:"bannerExternalUrl"`
		BannerImageURL    string `json:"bannerImageUrl"`
	} `json:"image"`
}

// Channel is the shaped result returned to callers
type Channel struct {
	ChannelID        string          `json:"channel_id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	PublishedAt      string          `json:"published_at"`
	Country          string          `json:"country"`
	Thumbnail        *string         `json:"thumbnail"`
	BannerURL        string          `json:"banner_url"`
	Subscribers      *string         `json:"subscribers"`
	TotalViews       *string         `json:"total_views"`
	TotalVideos      *string         `json:"total_videos"`
	CustomURL        string          `json:"custom_url"`
	FullJSONResponse json.RawMessage `json:"full_json_response"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
