// Package version carries build metadata injected via ldflags.
package version

import "fmt"

var (
	// Version is the release tag, set with -ldflags "-X .../internal/version.Version=v1.2.3".
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the build metadata for --version output.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
