// Package version exposes the build identity of sliver-graph.
package version

// Set via ldflags:
//
//	-X github.com/musyoka101/sliver-tui/pkg/version.version=v1.2.0
//
//nolint:gochecknoglobals // These are intentionally global for ldflags injection
var (
	version = "dev"
	buildID = "dev"
)

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// GetBuildID returns the current build ID
func GetBuildID() string {
	return buildID
}

// GetFullVersion returns version with build ID
func GetFullVersion() string {
	return "sliver-graph " + version + " (build: " + buildID + ")"
}
