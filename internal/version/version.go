// Package version carries the build stamp injected via -ldflags.
package version

var (
	// Version is the release version, "dev" for local builds.
	Version = "dev"

	// Commit is the short git commit hash of the build.
	Commit = "unknown"

	// BuildTime is the build timestamp in RFC3339 format.
	BuildTime = "unknown"
)

// String renders the full build stamp for logs and diagnostics.
func String() string {
	return Version + " (" + Commit + ", " + BuildTime + ")"
}
