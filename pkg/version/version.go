// Package version carries build information set with -ldflags.
package version

var (
	// Version is the release version, e.g. v0.3.1.
	Version = "v0.0.0"
	// GitCommit is the short commit hash the binary was built from.
	GitCommit = "unknown"
)
