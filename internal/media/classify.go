// Package media resolves and validates post and draft attachments.
package media

import (
	"net/url"
	"path"
	"strings"

	"murmur/internal/models"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".avif": true, ".heic": true, ".heif": true, ".bmp": true, ".svg": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".m4v": true, ".webm": true,
	".mkv": true, ".avi": true, ".m3u8": true, ".mpd": true,
}

var (
	videoPathHints = []string{"/video/", "/videos/", "/stream/"}
	imagePathHints = []string{"/image/", "/images/", "/img/", "/photos/"}
	videoHostHints = []string{"stream.", "video.", "vimeo", "mux"}
	imageHostHints = []string{"images.", "img.", "imagedelivery.net"}
)

// Classify decides the media type of an attachment. A declared type wins,
// then the path extension, then path hints, then host hints; anything left
// is an image.
func Classify(declared, rawURL string) models.MediaType {
	switch models.MediaType(strings.ToLower(strings.TrimSpace(declared))) {
	case models.MediaImage:
		return models.MediaImage
	case models.MediaVideo:
		return models.MediaVideo
	}

	host, p := splitURL(rawURL)

	ext := strings.ToLower(path.Ext(p))
	if videoExtensions[ext] {
		return models.MediaVideo
	}
	if imageExtensions[ext] {
		return models.MediaImage
	}

	lp := strings.ToLower(p)
	if containsAny(lp, videoPathHints) {
		return models.MediaVideo
	}
	if containsAny(lp, imagePathHints) || strings.Contains(lp, "/cdn-cgi/image/") {
		return models.MediaImage
	}

	if containsAny(host, videoHostHints) {
		return models.MediaVideo
	}
	if containsAny(host, imageHostHints) {
		return models.MediaImage
	}

	return models.MediaImage
}

func splitURL(raw string) (host, p string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", raw
	}
	return strings.ToLower(u.Hostname()), u.Path
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
