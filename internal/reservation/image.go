package reservation

import (
	"regexp"
	"strings"

	"github.com/dukerupert/hostcal/internal/ics"
)

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s)]+`)

// FirstURL returns the first http(s) URL in free text.
func FirstURL(text string) (string, bool) {
	m := urlPattern.FindString(text)
	return m, m != ""
}

// rewriteRule maps one recognized link shape to a direct-fetch URL.
type rewriteRule struct {
	name    string
	pattern *regexp.Regexp
	rewrite func(url string, match []string) string
}

func driveDirect(_ string, match []string) string {
	return "https://drive.google.com/uc?export=view&id=" + match[1]
}

func unchanged(url string, _ []string) string {
	return url
}

// imageRules are tried in order; the first match decides. Add providers
// here, ahead of the extension rule.
var imageRules = []rewriteRule{
	{
		name:    "drive-file-view",
		pattern: regexp.MustCompile(`(?i)https?://drive\.google\.com/file/d/([^/]+)/view`),
		rewrite: driveDirect,
	},
	{
		name:    "drive-open",
		pattern: regexp.MustCompile(`(?i)https?://drive\.google\.com/open\?id=([^&]+)`),
		rewrite: driveDirect,
	},
	{
		name:    "drive-uc",
		pattern: regexp.MustCompile(`(?i)https?://drive\.google\.com/uc\?(?:export=\w+&)?id=([^&]+)`),
		rewrite: driveDirect,
	},
	{
		name:    "image-extension",
		pattern: regexp.MustCompile(`(?i)\.(?:png|jpe?g|webp|gif)(?:\?.*)?$`),
		rewrite: unchanged,
	},
}

// DirectImageURL rewrites cloud-storage share links into direct-download
// form. Anything unrecognized is returned as is.
func DirectImageURL(url string) string {
	if url == "" {
		return url
	}
	for _, r := range imageRules {
		if m := r.pattern.FindStringSubmatch(url); m != nil {
			return r.rewrite(url, m)
		}
	}
	return url
}

// ResolveImage picks the event's image. Priority:
//  1. the first attachment that yields a non-empty URL
//  2. the first URL in the description
//
// It returns nil when neither source has one.
func ResolveImage(ev ics.Event) *string {
	for _, a := range ev.Attachments {
		if u := DirectImageURL(strings.TrimSpace(a)); u != "" {
			return &u
		}
	}
	if m, ok := FirstURL(ev.Description); ok {
		u := DirectImageURL(m)
		return &u
	}
	return nil
}
