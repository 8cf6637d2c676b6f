package version

import (
	"fmt"
	"runtime"
)

// These variables are set at build time via ldflags.
var (
	// Release is the release version (e.g., "v1.0.0-abc1234").
	Release = "dev"
	// GitCommit is the short git commit hash.
	GitCommit = "unknown"
)

// Short is the release and commit, e.g. "v1.0.0 (abc1234)".
func Short() string {
	return fmt.Sprintf("%s (%s)", Release, GitCommit)
}

// Full adds the platform to Short.
func Full() string {
	return fmt.Sprintf("%s %s/%s", Short(), runtime.GOOS, runtime.GOARCH)
}
