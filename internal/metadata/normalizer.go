package metadata

import (
	"regexp"
	"strings"
)

// Noise commonly found in ripped or downloaded file names.
var titleCleanupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[\(\[]\s*official\s+(music\s+|lyric\s+)?(video|audio|visualizer)\s*[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]\s*(lyrics?|audio|hd|hq|4k|explicit|clean|mv|m/v|live)\s*[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]\s*\d{2,3}\s*kbps\s*[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]\s*(inst\.?|instrumental)\s*[\)\]]`),
}

var featuringPattern = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:feat\.?|ft\.?|featuring)\s+([^\)\]]+)[\)\]]`)

var separatorRun = regexp.MustCompile(`[_\s]+`)

// CleanQuery strips file-name noise ("(Official Audio)", "[MV]", "(feat. X)",
// underscores) from the artist and title hints and builds a search query from
// what is left. Callers use it as a second attempt when the plain query
// returns nothing.
func CleanQuery(info TrackInfo) string {
	cleaned := TrackInfo{Source: info.Source}
	if info.Artist != nil {
		if a := cleanText(*info.Artist); a != "" {
			cleaned.Artist = String(a)
		}
	}
	if info.Title != nil {
		title := *info.Title
		for _, p := range titleCleanupPatterns {
			title = p.ReplaceAllString(title, "")
		}
		title = featuringPattern.ReplaceAllString(title, "")
		if t := cleanText(title); t != "" {
			cleaned.Title = String(t)
		}
	}
	return BuildSearchQuery(cleaned)
}

func cleanText(s string) string {
	return strings.TrimSpace(separatorRun.ReplaceAllString(s, " "))
}
