// Package buildinfo holds release metadata set with -ldflags -X.
package buildinfo

// Empty for local builds; the version command then falls back to VCS data.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)
