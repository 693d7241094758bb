package version

import "fmt"

// set via ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var FullVersion = fmt.Sprintf("%s build %s (%s)", Version, GitCommit, BuildDate)
