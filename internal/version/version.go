// Package version carries build metadata injected with -ldflags "-X ...".
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	Platform  string
}

func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Lines renders the info for `kycstack version`, omitting unknown fields.
func (i Info) Lines() []string {
	lines := []string{"Version: " + i.Version}
	if i.GitCommit != "" && i.GitCommit != "unknown" {
		lines = append(lines, "GitCommit: "+i.GitCommit)
	}
	if i.BuildDate != "" && i.BuildDate != "unknown" {
		lines = append(lines, "BuildDate: "+i.BuildDate)
	}
	return append(lines, "GoVersion: "+i.GoVersion, "Platform: "+i.Platform)
}
