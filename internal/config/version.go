package config

import (
	"fmt"
	"runtime/debug"
)

// Version the build information, set via ldflags
type Version struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

var (
	version = "v0.1.0"
	commit  = ""
	date    = ""
)

func NewVersion() *Version {
	v := &Version{Version: version, Commit: commit, Date: date}
	if v.Commit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					v.Commit = s.Value
				case "vcs.time":
					v.Date = s.Value
				}
			}
		}
	}
	return v
}

func (v *Version) String() string {
	if v.Commit == "" {
		return fmt.Sprintf("go_mapview %s", v.Version)
	}
	return fmt.Sprintf("go_mapview %s (%s %s)", v.Version, v.Commit, v.Date)
}
