package config

// Linker-injected build metadata, for example:
//
//	go build -ldflags "-X alertsystem/internal/config.version=1.4.0 \
//	    -X alertsystem/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X alertsystem/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo constructs a BuildInfo from the linker-injected variables.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// String renders the build info for `alertctl version` and cold-start logs.
func (b BuildInfo) String() string {
	return b.Version + " (" + b.Commit + ", built " + b.BuildTime + ")"
}
