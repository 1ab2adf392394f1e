// Package version holds build metadata injected via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String returns the one-line build description logged at startup.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
