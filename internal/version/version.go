// Package version carries build-time version information for the stargazer
// binaries.
package version

// Set via -ldflags at build time.
var (
	// Version is the semantic version of the localizer.
	Version = "0.1.0"

	// BuildTime is the UTC time the binary was built.
	BuildTime = "unknown"

	// GitCommit is the git commit hash of the build.
	GitCommit = "unknown"
)
