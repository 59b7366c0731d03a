// Package version reports the searchbridge build and the search engine it
// was linked against.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// EngineModule is the module path of the search engine.
const EngineModule = "github.com/blevesearch/bleve/v2"

// Set with -ldflags "-X github.com/Aman-CERP/searchbridge/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo is the JSON form of the build metadata.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Engine    string `json:"engine"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var engineVersion = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return moduleVersion(info, EngineModule)
})

func moduleVersion(info *debug.BuildInfo, path string) string {
	for _, dep := range info.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil {
			dep = dep.Replace
		}
		if dep.Version != "" {
			return dep.Version
		}
	}
	return "unknown"
}

// Engine returns the linked bleve version, or "unknown" when the binary
// carries no module information (as under go test).
func Engine() string { return engineVersion() }

// Short returns the version alone.
func Short() string { return Version }

// String returns a one-line description of the build.
func String() string {
	i := GetInfo()
	return fmt.Sprintf("searchbridge %s (commit %s, built %s, bleve %s, %s, %s)",
		i.Version, i.Commit, i.Date, i.Engine, i.GoVersion, i.Platform)
}

// GetInfo returns the build metadata.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		Engine:    Engine(),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
