package metadata

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/unicode/norm"
)

// DefaultConfidenceThreshold is the score a result needs to be picked without asking.
const DefaultConfidenceThreshold = 0.7

// Score computes a similarity score (0.0-1.0) between what is known about a
// file and a search result.
func Score(hint, result TrackInfo) float64 {
	title := normalize(deref(hint.Title))
	artist := normalize(deref(hint.Artist))

	switch {
	case title == "" && artist == "":
		return 0
	case artist == "":
		return similarity(title, normalize(deref(result.Title)))
	case title == "":
		return similarity(artist, normalize(deref(result.Artist)))
	}
	// Weight: 60% title, 40% artist
	return similarity(title, normalize(deref(result.Title)))*0.6 +
		similarity(artist, normalize(deref(result.Artist)))*0.4
}

// BestMatch returns the index and score of the highest scoring result, or
// -1 when results is empty. Ties keep the earlier result.
func BestMatch(hint TrackInfo, results []TrackInfo) (int, float64) {
	best, bestScore := -1, -1.0
	for i, r := range results {
		if s := Score(hint, r); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}

// similarity returns how similar two strings are (0.0-1.0).
// Token overlap and Jaro-Winkler distance are averaged; compact equality
// handles cases like "theweeknd" vs "the weeknd".
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	if strings.ReplaceAll(a, " ", "") == strings.ReplaceAll(b, " ", "") {
		return 1.0
	}

	jw, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		jw = 0
	}
	return tokenOverlap(a, b)*0.5 + float64(jw)*0.5
}

func tokenOverlap(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	setB := make(map[string]bool, len(tokensB))
	for _, t := range tokensB {
		setB[t] = true
	}

	matches := 0
	for _, t := range tokensA {
		if setB[t] {
			matches++
		}
	}
	return float64(matches) / float64(max(len(tokensA), len(tokensB)))
}

// normalize lowercases and strips non-alphanumeric characters for comparison.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(norm.NFC.String(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
