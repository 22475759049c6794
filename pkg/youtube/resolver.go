package youtube

import (
	"context"
	"net/url"
	"regexp"
	"strings"
)

var (
	// channelURLPattern is the accepted shape of a channel_url
	channelURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.*$`)

	handlePattern = regexp.MustCompile(`youtube\.com/@([^/?]+)`)
)

// ValidChannelURL reports whether raw looks like a YouTube URL
func ValidChannelURL(raw string) bool {
	return raw != "" && channelURLPattern.MatchString(raw)
}

// segmentAfter returns the path segment that follows marker, without any
// query or fragment
func segmentAfter(raw, marker string) string {
	parts := strings.Split(raw, marker)
	seg := parts[len(parts)-1]
	if i := strings.IndexAny(seg, "/?#"); i >= 0 {
		seg = seg[:i]
	}
	return seg
}

// ResolveChannelID maps a channel, legacy username or handle URL to a
// channel ID. Usernames and handles are looked up through the API on every
// call. ErrChannelNotFound means the URL matched no form or the lookup
// came back empty.
func (c *Client) ResolveChannelID(ctx context.Context, rawURL string) (string, error) {
	switch {
	case strings.Contains(rawURL, "channel/"):
		if id := segmentAfter(rawURL, "channel/"); id != "" {
			return id, nil
		}
		return "", ErrChannelNotFound

	case strings.Contains(rawURL, "user/"):
		username := segmentAfter(rawURL, "user/")
		if username == "" {
			return "", ErrChannelNotFound
		}
		return c.lookupUsername(ctx, username)

	case strings.Contains(rawURL, "youtube.com/@"):
		m := handlePattern.FindStringSubmatch(rawURL)
		if m == nil {
			return "", ErrChannelNotFound
		}
		return c.searchHandle(ctx, m[1])
	}

	return "", ErrChannelNotFound
}

func (c *Client) lookupUsername(ctx context.Context, username string) (string, error) {
	params := url.Values{}
	params.Set("part", "id")
	params.Set("forUsername", username)

	var resp ChannelIDListResponse
	if err := c.getJSON(ctx, "channels", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].ID == "" {
		c.logger.DebugWithFields("username did not resolve", map[string]interface{}{
			"username": username,
		})
		return "", ErrChannelNotFound
	}
	return resp.Items[0].ID, nil
}

func (c *Client) searchHandle(ctx context.Context, handle string) (string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", handle)
	params.Set("type", "channel")

	var resp SearchResponse
	if err := c.getJSON(ctx, "search", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet.ChannelID == "" {
		c.logger.DebugWithFields("handle did not resolve", map[string]interface{}{
			"handle": handle,
		})
		return "", ErrChannelNotFound
	}
	return resp.Items[0].Snippet.ChannelID, nil
}
