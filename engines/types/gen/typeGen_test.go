package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	for tmpl, out := range outputs {
		t.Run(tmpl, func(t *testing.T) {
			src, err := render(tmpl, engines)
			require.NoError(t, err)

			checkedIn, err := os.ReadFile(filepath.Join("..", out))
			require.NoError(t, err)
			assert.Equal(t, strings.Fields(string(checkedIn)), strings.Fields(string(src)),
				"%s is stale, run go generate", out)
		})
	}
}

func TestRender_Rows(t *testing.T) {
	t.Parallel()

	src, err := render("type.go.tmpl", []engine{
		{Name: "Lua", Value: "lua", Description: "Lua", Output: "Lua output", Bench: "Lua"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(src), `Lua Type = "lua"`)
	assert.Contains(t, string(src), `return "Lua output"`)
	assert.NotContains(t, string(src), "Interpreter")
}

func TestRender_UnknownTemplate(t *testing.T) {
	t.Parallel()

	_, err := render("missing.tmpl", engines)
	require.Error(t, err)
}
