package dispatch

import (
	"fmt"
	"strings"
)

// SplitCommand splits "group:label" (or "group label") into its parts.
func SplitCommand(s string) (group, label string, err error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, ": ")
	if sep <= 0 || sep == len(s)-1 {
		return "", "", fmt.Errorf("invalid command %q: want group:label", s)
	}
	group, label = s[:sep], strings.TrimSpace(s[sep+1:])
	if label == "" || strings.ContainsAny(label, ": ") {
		return "", "", fmt.Errorf("invalid command %q: want group:label", s)
	}
	return group, label, nil
}
