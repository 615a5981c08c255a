// Package buildinfo provides build-time version information for wordmap.
//
// Release builds inject the variables via ldflags:
//
//	go build -ldflags "-X github.com/lexatlas/wordmap/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/lexatlas/wordmap/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/lexatlas/wordmap/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Plain `go build` and `go install` runs fall back to the VCS metadata the
// toolchain embeds, so --version stays useful for untagged builds.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

func init() {
	if Commit != "none" && Date != "unknown" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

// String returns the formatted build information.
func String() string {
	return fmt.Sprintf("wordmap %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the --version output template for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
