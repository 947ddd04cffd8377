// Package version provides build version information for chaincheck.
// These variables are set at build time via ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build information variables.
// Example: go build -ldflags "-X chaincheck/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	// Version is the semantic version (e.g., "v1.2.3" or "dev" for development builds).
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)

// Resolve returns the ldflags version, or the main module version recorded in
// build info when no version was injected.
func Resolve(info *debug.BuildInfo) string {
	if Version != "dev" || info == nil {
		return Version
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	return Version
}

// String returns a one-line description for the version subcommand.
func String() string {
	info, _ := debug.ReadBuildInfo()
	return fmt.Sprintf("chaincheck %s (commit %s, built %s)", Resolve(info), Commit, Date)
}
