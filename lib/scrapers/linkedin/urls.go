package linkedin

import (
	"fmt"
	"strings"

	"linkedin-importer/lib/apperr"
)

// NormalizeProfileURL canonicalizes the many shapes a profile
// identifier arrives in:
//
//	someuser
//	in/someuser
//	/in/someuser/
//	linkedin.com/in/someuser
//	http://www.linkedin.com/in/someuser/?trk=x
//
// into https://www.linkedin.com/in/someuser, keeping any query string.
func NormalizeProfileURL(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", apperr.Validation("profile identifier is empty")
	}

	var query string
	if i := strings.IndexByte(s, '?'); i >= 0 {
		query = s[i:]
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")

	s = trimPrefixFold(s, "https://")
	s = trimPrefixFold(s, "http://")
	s = trimPrefixFold(s, "www.")
	s = trimPrefixFold(s, "linkedin.com")
	s = strings.Trim(s, "/")
	s = trimPrefixFold(s, "in/")

	if s == "" || strings.ContainsAny(s, "/ ") {
		return "", apperr.Validation(fmt.Sprintf("cannot derive a profile username from %q", input))
	}

	return "https://www.linkedin.com/in/" + s + query, nil
}

// UsernameFromURL pulls the bare username back out of a canonical
// profile url, for cache keys and log lines.
func UsernameFromURL(profileURL string) string {
	s := profileURL
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func trimPrefixFold(s, prefix string) string {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):]
	}
	return s
}
