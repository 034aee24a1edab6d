package docschema

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// CheckVersion normalizes a document version ("1.2" or "v1.2.0") to canonical
// semver and rejects versions whose major component is not major.
func CheckVersion(v, major string) (string, error) {
	canon := v
	if !strings.HasPrefix(canon, "v") {
		canon = "v" + canon
	}
	if !semver.IsValid(canon) {
		return "", fmt.Errorf("invalid version %q", v)
	}
	if got := semver.Major(canon); got != major {
		return "", fmt.Errorf("unsupported version %s (this build reads %s.x)", canon, major)
	}
	return semver.Canonical(canon), nil
}
