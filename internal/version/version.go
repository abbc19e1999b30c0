package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/flowmesh/mockgps/internal/version.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Info describes the running binary
type Info struct {
	Version   string
	BuildTime string
	GitCommit string
	Dirty     bool
	GoVersion string
}

// Get merges linker-provided values with the toolchain's embedded build info.
// Linker values win.
func Get() Info {
	info := Info{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = fromBuildInfo(info, bi)
	}
	return info
}

func fromBuildInfo(info Info, bi *debug.BuildInfo) Info {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = strings.TrimPrefix(bi.Main.Version, "v")
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	if bi.GoVersion != "" {
		info.GoVersion = bi.GoVersion
	}
	return info
}

// Commit returns the abbreviated revision, marked when the tree was modified
func (i Info) Commit() string {
	commit := i.GitCommit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if i.Dirty {
		commit += "-dirty"
	}
	return commit
}

func (i Info) String() string {
	return fmt.Sprintf("mockgps %s (commit %s, built %s, %s)", i.Version, i.Commit(), i.BuildTime, i.GoVersion)
}

// String describes the running binary on one line
func String() string {
	return Get().String()
}
