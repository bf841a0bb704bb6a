package linkedin

import (
	"strings"
	"time"
)

var looseDateFormats = []string{
	"Jan 2006",
	"January 2006",
	"2006",
	"Jan 2, 2006",
}

var presentMarkers = map[string]bool{
	"present": true,
	"current": true,
	"now":     true,
}

// ParseLooseDate interprets the free-text dates scraped off date-range
// spans. It returns the parsed date, or ongoing=true for the
// "Present"/"Current"/"Now" markers. Anything unparseable is treated
// as absent.
func ParseLooseDate(raw string) (date *time.Time, ongoing bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}
	if presentMarkers[strings.ToLower(s)] {
		return nil, true
	}
	for _, format := range looseDateFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return &t, false
		}
	}
	return nil, false
}

// ParseDateRange splits a scraped "Jan 2020 - Present" style range.
// An absent or ongoing right-hand side leaves the end date nil.
func ParseDateRange(raw string) (start, end *time.Time, current bool) {
	raw = strings.NewReplacer("–", "-", "—", "-").Replace(raw)
	parts := strings.SplitN(raw, "-", 2)
	start, _ = ParseLooseDate(parts[0])
	if len(parts) < 2 {
		return start, nil, true
	}
	end, ongoing := ParseLooseDate(parts[1])
	return start, end, ongoing || end == nil
}
