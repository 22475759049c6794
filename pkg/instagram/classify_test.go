package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   Kind
		wantOK bool
	}{
		{"reel", "https://www.instagram.com/reel/C8abcDEF123/", KindReel, true},
		{"reels alias", "https://www.instagram.com/reels/C8abcDEF123/", KindReel, true},
		{"post", "https://instagram.com/p/Bx7abc/?igsh=xyz", KindPost, true},
		{"mobile host", "https://m.instagram.com/p/Bx7abc", KindPost, true},
		{"story", "https://www.instagram.com/stories/natgeo/3141592653589793/", KindStory, true},
		{"tv", "https://www.instagram.com/tv/CDtv123/", KindExtendedVideo, true},
		{"no scheme", "www.instagram.com/reel/C8abc/", KindReel, true},
		{"upper case host", "https://WWW.INSTAGRAM.COM/reel/C8abc/", KindReel, true},
		{"unrecognized host", "https://www.example.com/reel/C8abc/", "", false},
		{"lookalike host", "https://instagram.com.evil.example/reel/C8abc/", "", false},
		{"profile page", "https://www.instagram.com/natgeo/", "", false},
		{"missing code", "https://www.instagram.com/reel/", "", false},
		{"non http scheme", "ftp://www.instagram.com/p/abc/", "", false},
		{"malformed", "https://www.instagram.com/%zz", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := Classify(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestShortcode(t *testing.T) {
	assert.Equal(t, "C8abcDEF123", Shortcode("https://www.instagram.com/reel/C8abcDEF123/"))
	assert.Equal(t, "natgeo", Shortcode("https://www.instagram.com/stories/natgeo/314/"))
	assert.Equal(t, "", Shortcode("https://www.instagram.com/"))
	assert.Equal(t, "", Shortcode("https://example.com/p/abc/"))
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"instagram.com/reel/abc/":                           "https://instagram.com/reel/abc/",
		"https://www.instagram.com/p/xyz/?igsh=123#comment": "https://www.instagram.com/p/xyz/",
		" http://m.instagram.com/tv/def ":                   "http://m.instagram.com/tv/def",
		"https://example.com/p/xyz/":                        "",
		"ftp://instagram.com/p/xyz/":                        "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
