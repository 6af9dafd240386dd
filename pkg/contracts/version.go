package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version of the adshub binary
	Version = "1.0.0"

	// DataFormatVersion identifies the master and rolling CSV schemas.
	// Bump it whenever a column is added, renamed or reordered.
	DataFormatVersion = "v4"

	// APIVersion is the version of the HTTP and WebSocket contracts
	APIVersion = "v1"
)

// Stamped at build time:
//
//	go build -ldflags "-X adshub/pkg/contracts.BuildTime=$(date -u +%FT%TZ) -X adshub/pkg/contracts.GitCommit=$(git rev-parse --short HEAD)"
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is the build identity `adshub version` prints
type VersionInfo struct {
	Version    string `json:"version"`
	BuildTime  string `json:"build_time"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	DataFormat string `json:"data_format"`
	APIVersion string `json:"api_version"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:    Version,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		DataFormat: DataFormatVersion,
		APIVersion: APIVersion,
	}
}

// GetFullVersionString is the one-line banner, e.g.
// "adshub 1.0.0 (commit abc123, built 2024-05-01, go1.23.0 linux/amd64)"
func GetFullVersionString() string {
	i := GetVersionInfo()
	return fmt.Sprintf("adshub %s (commit %s, built %s, %s %s)", i.Version, i.GitCommit, i.BuildTime, i.GoVersion, i.Platform)
}
