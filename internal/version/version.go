package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time.
	Commit = ""
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Revision returns Commit, falling back to the VCS revision recorded by the
// Go toolchain, or "none".
func Revision() string {
	if Commit != "" {
		return Commit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "none"
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			return shortRevision(setting.Value)
		}
	}

	return "none"
}

// Full returns a human-readable version line for the named program.
func Full(program string) string {
	return fmt.Sprintf("%s %s (commit: %s, built at: %s, %s %s/%s)",
		program, Version, Revision(), BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func shortRevision(revision string) string {
	const length = 7
	if len(revision) > length {
		return revision[:length]
	}

	return revision
}
