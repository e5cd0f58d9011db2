// Package version exposes the build-time version string.
package version

// Version is set via ldflags at build time:
// -ldflags "-X github.com/padmux/padmux/internal/version.Version=x.y.z"
var Version = ""

// Get returns the version set at build time.
// Returns "0.0.1-dev" if Version is empty (development builds only).
func Get() string {
	if Version == "" {
		return "0.0.1-dev"
	}
	return Version
}
