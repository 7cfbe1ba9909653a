package main

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrintVersion(t *testing.T) {
	t.Run("missing build info", func(t *testing.T) {
		var buf bytes.Buffer
		printVersion(&buf, nil, false)
		require.Equal(t, "infermark: version info not available\n", buf.String())
	})

	t.Run("full build info", func(t *testing.T) {
		var buf bytes.Buffer
		printVersion(&buf, &debug.BuildInfo{
			GoVersion: "go1.24.6",
			Main:      debug.Module{Version: "v1.2.3"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc123"},
				{Key: "vcs.time", Value: "2026-08-23T00:00:00Z"},
				{Key: "vcs.modified", Value: "false"},
			},
		}, true)

		out := buf.String()
		require.Contains(t, out, "infermark: v1.2.3")
		require.Contains(t, out, "go:        go1.24.6")
		require.Contains(t, out, "commit: abc123")
		require.Contains(t, out, "dirty:  false")
	})
}
