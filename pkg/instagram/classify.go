package instagram

import (
	"errors"
	"net/url"
	"strings"
)

// Kind is the type of media a URL points at
type Kind string

const (
	KindPost          Kind = "post"
	KindReel          Kind = "reel"
	KindStory         Kind = "story"
	KindExtendedVideo Kind = "tv"
)

var errUnsupportedURL = errors.New("unsupported url")

// allowedHosts are the hosts Instagram serves media pages on
var allowedHosts = map[string]bool{
	"instagram.com":     true,
	"www.instagram.com": true,
	"m.instagram.com":   true,
}

var pathKinds = []struct {
	prefix string
	kind   Kind
}{
	{"/p/", KindPost},
	{"/reel/", KindReel},
	{"/reels/", KindReel},
	{"/stories/", KindStory},
	{"/tv/", KindExtendedVideo},
}

// Classify returns the kind of media rawURL points at. ok is false for
// unparseable URLs, foreign hosts and unknown paths.
func Classify(rawURL string) (kind Kind, ok bool) {
	u, err := parse(rawURL)
	if err != nil {
		return "", false
	}

	for _, pk := range pathKinds {
		rest, found := strings.CutPrefix(u.Path, pk.prefix)
		if found && strings.Trim(rest, "/") != "" {
			return pk.kind, true
		}
	}
	return "", false
}

// Shortcode returns the media identifier segment of a post, reel or tv URL,
// or the username of a story URL
func Shortcode(rawURL string) string {
	u, err := parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return ""
	}
	return segments[1]
}

func parse(rawURL string) (*url.URL, error) {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errUnsupportedURL
	}
	if !allowedHosts[strings.ToLower(u.Hostname())] {
		return nil, errUnsupportedURL
	}
	return u, nil
}

// Normalize returns rawURL as an absolute URL without query or fragment,
// or "" when it is not an Instagram URL
func Normalize(rawURL string) string {
	u, err := parse(rawURL)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
