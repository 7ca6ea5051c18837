package version

import "runtime"

var (
	Version = "0.1.0-dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return "pose " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}
