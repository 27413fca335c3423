package engine

import "strings"

// liveMarkers are the title substrings that flag a live recording. Matching
// is case-insensitive and intentionally conservative: a track literally
// titled "Live" stays, only annotated titles are filtered.
var liveMarkers = []string{
	"(live",
	"[live",
	"- live",
	"(en vivo",
}

// isLiveTitle reports whether a track title is annotated as a live
// recording.
func isLiveTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range liveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
