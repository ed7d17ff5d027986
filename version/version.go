package version

import (
	"fmt"
	"strings"
)

// Populated at build time, e.g.
// go build -ldflags "-X 'github.com/user00265/ctyresolve/version.GitCommit=f80cf83' -X 'github.com/user00265/ctyresolve/version.BuildVersion=v1.0.0'"
var (
	ProjectName      = "ctyresolve"
	ProjectGitHubURL = "https://github.com/user00265/ctyresolve"

	// BuildVersion is the semver tag of the build, "unknown" when not set.
	BuildVersion = "unknown"
	// GitCommit is the commit hash of the build, "unknown" when not set.
	GitCommit = "unknown"

	// ProjectVersion is "X.Y.Z+commit" when both build values are set.
	ProjectVersion = "unknown"
	// UserAgent is sent with every country file download.
	UserAgent = ""
)

func init() {
	ProjectVersion = projectVersion(BuildVersion, GitCommit)
	UserAgent = fmt.Sprintf("%s/%s (+%s)", ProjectName, ProjectVersion, ProjectGitHubURL)
}

func projectVersion(build, commit string) string {
	if build == "unknown" || commit == "unknown" || build == "" || commit == "" {
		return "unknown"
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s+%s", strings.TrimPrefix(build, "v"), commit)
}
