package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.3.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// product is the name reported in the User-Agent header.
const product = "yale-alarm"

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("%s version: %s, commit: %s, built at: %s", product, Version, Commit, BuildTime)
}

// UserAgent returns the value sent in the User-Agent header of API requests.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s/%s)", product, Version, runtime.GOOS, runtime.GOARCH)
}
