package utils

import (
	"net/url"
	"strings"
)

const youtubeEmbedBase = "https://www.youtube.com/embed/"

// EmbedTrailerURL rewrites YouTube links (youtu.be/<id>, watch?v=<id>,
// /embed/<id>, /shorts/<id>) to the embeddable form.  Anything else is
// returned trimmed but otherwise untouched.
func EmbedTrailerURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.ToLower(u.Hostname())

	var id string
	switch {
	case host == "youtu.be" || strings.HasSuffix(host, ".youtu.be"):
		id = strings.TrimPrefix(u.Path, "/")
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			id = v
		} else if i := strings.Index(u.Path, "/embed/"); i >= 0 {
			id = u.Path[i+len("/embed/"):]
		} else if i := strings.Index(u.Path, "/shorts/"); i >= 0 {
			id = u.Path[i+len("/shorts/"):]
		}
	}
	id = strings.Trim(id, "/")
	if id == "" {
		return raw
	}
	return youtubeEmbedBase + id
}
