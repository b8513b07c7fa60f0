package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompile(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"compile", "-graph", "rig.hcl", "-o", "build", "proc_a.hcl", "proc_b.hcl",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "compile", cfg.Mode)
	assert.Equal(t, "rig.hcl", cfg.GraphPath)
	assert.Equal(t, "build", cfg.OutputPath)
	assert.Equal(t, []string{"proc_a.hcl", "proc_b.hcl"}, cfg.Procedures)

	// Validation defaults.
	assert.Equal(t, "genetic_algorithm", cfg.Strategy)
	assert.Equal(t, 200, cfg.Generations)
	assert.Equal(t, "sim", cfg.Driver)
}

func TestParseHelp(t *testing.T) {
	for _, args := range [][]string{nil, {"help"}, {"-h"}, {"--help"}} {
		var out bytes.Buffer
		cfg, exit, err := Parse(args, &out)
		assert.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown mode", []string{"transmogrify", "-graph", "g.hcl", "p.hcl"}, "unknown mode"},
		{"missing graph", []string{"compile", "p.hcl"}, "graph"},
		{"no procedures", []string{"compile", "-graph", "g.hcl"}, "at least one procedure"},
		{"execute multiple artifacts", []string{"execute", "-graph", "g.hcl", "a.xdlexe", "b.xdlexe"}, "exactly one"},
		{"bad log format", []string{"compile", "-graph", "g.hcl", "-log-format", "xml", "p.hcl"}, "log-format"},
		{"bad log level", []string{"compile", "-graph", "g.hcl", "-log-level", "loud", "p.hcl"}, "log-level"},
		{"remote without url", []string{"execute", "-graph", "g.hcl", "-driver", "remote", "a.xdlexe"}, "rig-url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := Parse(tc.args, &out)
			var ee *ExitError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, 2, ee.Code)
			assert.Contains(t, ee.Message, tc.msg)
		})
	}
}

func TestParseConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xdl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
strategy: random_search
generations: 75
seed: 9
`), 0o644))

	t.Run("file fills unset flags", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{
			"schedule", "-config", path, "-graph", "g.hcl", "a.hcl", "b.hcl",
		}, &out)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "random_search", cfg.Strategy)
		assert.Equal(t, 75, cfg.Generations)
		assert.Equal(t, int64(9), cfg.Seed)
	})

	t.Run("explicit flags win", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{
			"schedule", "-config", path, "-graph", "g.hcl",
			"-strategy", "grid_search", "-generations", "10", "a.hcl",
		}, &out)
		require.NoError(t, err)

		assert.Equal(t, "grid_search", cfg.Strategy)
		assert.Equal(t, 10, cfg.Generations)
		// Untouched fields still come from the file.
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("missing file", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{
			"schedule", "-config", filepath.Join(dir, "nope.yaml"),
			"-graph", "g.hcl", "a.hcl",
		}, &out)
		var ee *ExitError
		require.ErrorAs(t, err, &ee)
	})
}
