// Package buildinfo carries release metadata stamped in by the linker, e.g.
//
//	go build -ldflags "-X github.com/rsnash92/taxfolio/internal/buildinfo.Version=v0.3.0"
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
