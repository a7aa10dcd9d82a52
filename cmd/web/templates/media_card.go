package templates

import (
	"net/url"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"thirdcoast.systems/mediagrab/internal/media"
	"thirdcoast.systems/mediagrab/internal/sourceurl"
)

// MediaCardID is the element the info card is patched into.
const MediaCardID = "media-card"

// DownloadHref builds the download link for a source URL and mode.
func DownloadHref(sourceURL string, mode media.Mode) string {
	q := url.Values{}
	q.Set("url", sourceURL)
	q.Set("mode", string(mode))
	return "/api/download?" + q.Encode()
}

// sourceOf prefers the normalized form of the looked-up URL so download
// links drop tracking and playlist parameters.
func sourceOf(info *media.MediaInfo) string {
	if n, err := sourceurl.Normalize(info.URL); err == nil {
		return n
	}
	return info.URL
}

func downloadLabel(mode media.Mode) string {
	return cases.Title(language.English).String("download " + string(mode))
}
