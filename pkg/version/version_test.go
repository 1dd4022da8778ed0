package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	original := Version
	Version = "v0.3.1"
	defer func() { Version = original }()

	info := Get()
	assert.Equal(t, "v0.3.1", info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestInfoFormats(t *testing.T) {
	info := Info{
		Version:   "v0.3.1",
		GitCommit: "9e8deec",
		BuildTime: "2026-10-02T08:15:00Z",
		GoVersion: "go1.25.1",
	}

	assert.Equal(t, "Version: v0.3.1, GitCommit: 9e8deec, BuildTime: 2026-10-02T08:15:00Z, GoVersion: go1.25.1", info.String())

	out, err := info.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"v0.3.1","gitCommit":"9e8deec","buildTime":"2026-10-02T08:15:00Z","goVersion":"go1.25.1"}`, out)
	assert.Contains(t, out, "\n  \"version\": \"v0.3.1\",\n")
}
