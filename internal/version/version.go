// Package version 构建版本信息，可通过 ldflags 注入：
//
//	go build -ldflags="-X github.com/taoyao-code/loadbank/internal/version.Version=v1.2.3 \
//	                   -X github.com/taoyao-code/loadbank/internal/version.Commit=abc1234"
//
// 未注入时从构建信息中读取 VCS 修订号
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		populateFromBuildInfo()
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func populateFromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	var revision, modified string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}
	if Commit == "" && revision != "" {
		if len(revision) > 7 {
			revision = revision[:7]
		}
		Commit = revision
		if modified == "true" {
			Commit += "-dirty"
		}
	}
}

// String 形如 "v1.2.3 (commit: abc1234)"
func String() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
