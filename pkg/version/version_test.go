package version

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShort_IsVersion(t *testing.T) {
	assert.Equal(t, Version, Short())
	assert.NotEmpty(t, Short())
}

func TestString_NamesBuildAndEngine(t *testing.T) {
	s := String()

	assert.Contains(t, s, "searchbridge "+Version)
	assert.Contains(t, s, "commit "+Commit)
	assert.Contains(t, s, "bleve "+Engine())
	assert.Contains(t, s, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestGetInfo_JSONKeys(t *testing.T) {
	// Given the build info encoded as the CLI prints it
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	// Then every key is a snake_case string
	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	for _, key := range []string{"version", "commit", "date", "engine", "go_version", "platform"} {
		assert.NotEmpty(t, got[key], key)
	}
	assert.Equal(t, runtime.Version(), got["go_version"])
}

func TestModuleVersion(t *testing.T) {
	info := &debug.BuildInfo{Deps: []*debug.Module{
		{Path: "gopkg.in/yaml.v3", Version: "v3.0.1"},
		{Path: EngineModule, Version: "v2.5.7"},
	}}

	t.Run("direct", func(t *testing.T) {
		assert.Equal(t, "v2.5.7", moduleVersion(info, EngineModule))
	})

	t.Run("replaced", func(t *testing.T) {
		replaced := &debug.BuildInfo{Deps: []*debug.Module{
			{Path: EngineModule, Version: "v2.5.7", Replace: &debug.Module{Path: "../bleve", Version: "v2.6.0-fork"}},
		}}
		assert.Equal(t, "v2.6.0-fork", moduleVersion(replaced, EngineModule))
	})

	t.Run("absent", func(t *testing.T) {
		assert.Equal(t, "unknown", moduleVersion(info, "example.com/missing"))
	})
}
