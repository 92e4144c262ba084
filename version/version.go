// Package version holds build metadata injected at link time.
package version

import "runtime"

// Set via -ldflags at build time.
var (
	// GitRelease is the release tag, or "dev" for untagged builds.
	GitRelease = "dev"

	// GitCommit is the short commit hash.
	GitCommit = "unknown"

	// GitCommitDate is the commit date in RFC 3339 format.
	GitCommitDate = "unknown"
)

// GoInfo describes the Go toolchain the binary was built with.
var GoInfo = runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH
