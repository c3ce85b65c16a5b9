// Package version holds build metadata, set with -ldflags at release time.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Version  = "0.1.0"
	Revision = "unknown"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && Revision == "unknown" && s.Value != "" {
			Revision = s.Value
		}
	}
}

// String returns "version+revision".
func String() string {
	return fmt.Sprintf("%s+%s", Version, Revision)
}
