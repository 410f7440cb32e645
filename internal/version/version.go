package version

import "fmt"

// Set with -ldflags "-X github.com/famomatic/ytlive/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func Full() string {
	return fmt.Sprintf("ytlive %s, commit %s, built at %s", Version, Commit, Date)
}
