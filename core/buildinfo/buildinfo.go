// Package buildinfo carries the release identifiers stamped in with
//
//	go build -ldflags "-X github.com/m3rciful/leadbot/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/m3rciful/leadbot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/leadbot/core/buildinfo.Date=$(date -u +%FT%TZ)"
package buildinfo

import (
	"runtime/debug"
	"strings"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

func init() {
	if Commit != "" {
		return
	}
	Commit = "local"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			Commit = shortRevision(s.Value)
		case "vcs.time":
			if Date == "" {
				Date = s.Value
			}
		}
	}
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// String renders "version (commit, date)", leaving out unknown parts.
func String() string {
	parts := []string{Commit}
	if Date != "" {
		parts = append(parts, Date)
	}
	return Version + " (" + strings.Join(parts, ", ") + ")"
}
