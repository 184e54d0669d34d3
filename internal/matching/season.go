package matching

import (
	"regexp"
	"strconv"
)

var (
	seasonWordPattern    = regexp.MustCompile(`(?i)\bseason\s*(\d{1,3})\b`)
	seasonOrdinalPattern = regexp.MustCompile(`(?i)\b(\d{1,3})(?:st|nd|rd|th)\s+season\b`)
)

// ExtractSeason returns the season number marked in title. Titles without a
// "Season N" or "Nth Season" marker are season 1.
func ExtractSeason(title string) int {
	season, _ := seasonInfo(title)
	return season
}

// seasonInfo reports the season number and whether the title marked it
// explicitly.
func seasonInfo(title string) (int, bool) {
	for _, pattern := range []*regexp.Regexp{seasonWordPattern, seasonOrdinalPattern} {
		match := pattern.FindStringSubmatch(title)
		if len(match) != 2 {
			continue
		}
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
			return n, true
		}
	}
	return 1, false
}

// targetSeason prefers the metadata season hint, then the first explicit
// marker among the target's titles, then the implicit season 1.
func targetSeason(target TargetRecord) (int, bool) {
	if target.SeasonHint > 0 {
		return target.SeasonHint, true
	}
	for _, title := range target.Titles() {
		if season, explicit := seasonInfo(title); explicit {
			return season, true
		}
	}
	return 1, false
}
