package metadata

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

var leadingYear = regexp.MustCompile(`^\d{4}`)

// ParseYear extracts the year from a release date such as "2019",
// "2019-11", "2019-11-18" or "2019.11.18". It returns nil when there is no
// year.
func ParseYear(date string) *int {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil
	}
	if len(date) > 4 {
		if t, err := dateparse.ParseAny(date); err == nil && t.Year() > 0 {
			y := t.Year()
			return &y
		}
	}
	if m := leadingYear.FindString(date); m != "" {
		y, _ := strconv.Atoi(m)
		return &y
	}
	return nil
}
