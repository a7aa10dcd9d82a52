// Package sourceurl recognises the media sites users paste links from and
// tidies their URLs.
package sourceurl

import (
	"errors"
	"net/url"
	"strings"
)

// Host aliases. Key: input host. Value: canonical domain.
var canonicalDomainByHost = map[string]string{
	"youtube.com":       "youtube.com",
	"www.youtube.com":   "youtube.com",
	"m.youtube.com":     "youtube.com",
	"music.youtube.com": "youtube.com",
	"youtu.be":          "youtube.com",

	"x.com":              "x.com",
	"www.x.com":          "x.com",
	"twitter.com":        "x.com",
	"www.twitter.com":    "x.com",
	"mobile.twitter.com": "x.com",

	"twitch.tv":     "twitch.tv",
	"www.twitch.tv": "twitch.tv",
	"m.twitch.tv":   "twitch.tv",

	"vimeo.com":     "vimeo.com",
	"www.vimeo.com": "vimeo.com",
}

// Domain returns the canonical domain of a URL ("" if it cannot be parsed).
func Domain(raw string) string {
	u, err := parse(raw)
	if err != nil {
		return ""
	}
	return CanonicalDomain(u.Host)
}

// CanonicalDomain folds known aliases (twitter.com -> x.com).
func CanonicalDomain(host string) string {
	h := normalizeHost(host)
	if h == "" {
		return ""
	}
	if c, ok := canonicalDomainByHost[h]; ok {
		return c
	}
	return h
}

// Normalize drops fragments, credentials and query parameters that only
// track or seek. YouTube links collapse to https://youtube.com/watch?v={id};
// unknown hosts keep their query.
func Normalize(raw string) (string, error) {
	u, err := parse(raw)
	if err != nil {
		return "", err
	}

	u.Fragment = ""
	u.User = nil

	canon := CanonicalDomain(u.Host)

	// youtu.be carries the id in the path, so read it before the host changes
	youtubeID := ""
	if canon == "youtube.com" {
		youtubeID, _ = YouTubeID(u.String())
	}

	if canon != "" {
		u.Host = canon
	}
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Path = trimTrailingSlash(u.Path)

	switch canon {
	case "youtube.com":
		if youtubeID != "" {
			u.Path = "/watch"
			u.RawQuery = "v=" + url.QueryEscape(youtubeID)
		}
	case "twitch.tv", "x.com", "vimeo.com":
		u.RawQuery = ""
	}

	return u.String(), nil
}

// YouTubeID extracts the video id from watch, short, embed, live and
// youtu.be links.
func YouTubeID(raw string) (string, error) {
	u, err := parse(raw)
	if err != nil {
		return "", err
	}

	host := normalizeHost(u.Host)
	if host == "youtu.be" {
		if id := firstPathSegment(u.Path); id != "" {
			return id, nil
		}
		return "", errNotYouTube
	}
	if CanonicalDomain(host) != "youtube.com" {
		return "", errNotYouTube
	}

	if q := strings.TrimSpace(u.Query().Get("v")); q != "" {
		return q, nil
	}
	for _, prefix := range []string{"/embed/", "/v/", "/shorts/", "/live/"} {
		if strings.HasPrefix(u.Path, prefix) {
			if id := firstPathSegment(strings.TrimPrefix(u.Path, prefix)); id != "" {
				return id, nil
			}
		}
	}
	return "", errNotYouTube
}

// ThumbnailFallback returns a predictable thumbnail URL for YouTube links,
// or "" for everything else.
func ThumbnailFallback(raw string) string {
	id, err := YouTubeID(raw)
	if err != nil {
		return ""
	}
	return "https://i.ytimg.com/vi/" + url.PathEscape(id) + "/hqdefault.jpg"
}

var errNotYouTube = errors.New("not a youtube url or video id not found")

func parse(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("missing url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		// Best effort: treat as https.
		return url.Parse("https://" + raw)
	}
	return u, nil
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	// url.URL.Host may include port.
	if strings.Contains(h, ":") {
		if parsed, err := url.Parse("//" + h); err == nil && parsed.Hostname() != "" {
			h = parsed.Hostname()
		}
	}
	return strings.TrimSuffix(h, ".")
}

func trimTrailingSlash(p string) string {
	if p == "" || p == "/" {
		return p
	}
	return strings.TrimRight(p, "/")
}

func firstPathSegment(p string) string {
	p = strings.TrimPrefix(strings.TrimSpace(p), "/")
	seg, _, _ := strings.Cut(p, "/")
	return strings.TrimSpace(seg)
}
