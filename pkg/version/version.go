// Package version holds the build version, set with
// -ldflags "-X simbridge/pkg/version.Version=..." at release time.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "v0.1.0-dev"
	Commit  = ""
)

// String is the one-line version banner used by the CLI.
func String() string {
	if Commit == "" {
		return fmt.Sprintf("%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
	}
	return fmt.Sprintf("%s+%s (%s/%s)", Version, Commit, runtime.GOOS, runtime.GOARCH)
}
