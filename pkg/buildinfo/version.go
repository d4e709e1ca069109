// Package buildinfo reports which pixclock build is running.
//
// Release builds stamp the values with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/pixclock/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/pixclock/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/pixclock
//
// Builds from `go install` or a plain `go build` fall back to the module
// version and VCS stamp recorded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var fillOnce sync.Once

// fill replaces unset values from the embedded build info.
func fill() {
	fillOnce.Do(func() {
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "none":
				Commit = s.Value[:min(len(s.Value), 12)]
			case s.Key == "vcs.time" && Date == "unknown":
				Date = s.Value
			}
		}
	})
}

// Template is the cobra --version template.
func Template() string {
	fill()
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", Version, Commit, Date)
}

// UserAgent is sent with every outgoing HTTP request.
func UserAgent() string {
	fill()
	return "pixclock/" + Version + " (+https://github.com/matzehuels/pixclock)"
}
