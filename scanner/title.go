package scanner

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	wordSepRe = regexp.MustCompile(`[._](\w)`)
	yearRe    = regexp.MustCompile(`\(?([12]\d{3})\)?`)
)

// normalizeTitle turns a filename or folder stem into a display title:
// separator characters followed by a word character become spaces, a 4-digit
// release year is extracted (everything from the year to the end of the stem
// is release noise and is dropped), and dangling separators are trimmed.
// The returned year is 0 when none was found.
func normalizeTitle(stem string) (string, int) {
	title := wordSepRe.ReplaceAllString(stem, " $1")
	year := 0
	if loc := yearRe.FindStringSubmatchIndex(title); loc != nil {
		year, _ = strconv.Atoi(title[loc[2]:loc[3]])
		title = title[:loc[0]]
	}
	title = strings.TrimSpace(title)
	title = strings.TrimRight(title, "._ ")
	return title, year
}

// epochDays is dc:date storage: days since 1970-01-01 of January 1 of year.
func epochDays(year int) int64 {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
