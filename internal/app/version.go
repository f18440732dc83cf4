package app

import "fmt"

// Version, Commit, and BuildTime are set via ldflags at build time.
// Example: go build -ldflags "-X github.com/heartmarshall/myenglish-deckgen/internal/app.Version=1.0.0" ./cmd/deckgen
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildVersion returns a formatted version string for the -version flag and startup logs.
func BuildVersion() string {
	return fmt.Sprintf("deckgen %s (commit: %s, built: %s)", Version, Commit, BuildTime)
}
