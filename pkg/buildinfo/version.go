// Package buildinfo provides build-time version information.
//
// Variables are set via ldflags during build:
//
//	go build -ldflags "-X github.com/matzehuels/flowcanvas/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/flowcanvas/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/flowcanvas/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
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

// resolved fills Version from the module build info when the binary was
// installed with "go install" and no ldflags were given.
func resolved() (version, commit, date string) {
	version, commit, date = Version, Commit, Date
	if version != "dev" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "none" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "unknown" {
				date = s.Value
			}
		}
	}
	return
}

// String returns the formatted build information.
func String() string {
	v, c, d := resolved()
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", v, c, d)
}

// Template returns the version template string for cobra.
func Template() string {
	v, c, d := resolved()
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", v, c, d)
}
