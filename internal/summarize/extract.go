package summarize

import "regexp"

var (
	videoRe = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube\.com|youtu\.be)/(?:watch\?v=)?([\w-]+)`)
	urlRe   = regexp.MustCompile(`https?://[^\s<>()]+`)
)

// ExtractVideoID returns the YouTube video ID found in content, or "".
func ExtractVideoID(content string) string {
	m := videoRe.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractURL returns the first http(s) link found in content, or "".
func ExtractURL(content string) string {
	return urlRe.FindString(content)
}
