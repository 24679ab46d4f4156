package splitmerge

import "strings"

var (
	// Version is the semantic version of splitmerge,
	// overridden at build time with -ldflags.
	Version = "0.1.0"
	// Prerelease is the prerelease suffix of Version, if any.
	Prerelease = ""
)

// SemVer returns the semantic version of splitmerge.
func SemVer() string {
	if Prerelease != "" {
		return Version + "-" + strings.TrimPrefix(Prerelease, "-")
	}

	return Version
}
