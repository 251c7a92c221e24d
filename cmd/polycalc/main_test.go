package main

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robbyt/go-polycalc/engines/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Formula(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCmd(t, "((x y) (+ (* x y) 10.5))", "4", "2")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "Interpreted output: 18.5\nCode gen output: 18.5\n", out)
}

func TestRun_AllEngines(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCmd(t, "-engine", "all", "((a b) (/ a b))", "1", "0")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t,
		"Interpreted output: +Inf\nCode gen output: +Inf\nStarlark output: +Inf\nExtism output: +Inf\n",
		out,
	)
}

func TestRun_EngineList(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCmd(t, "-engine", "starlark, extism", "((x) (- 0 x))", "2.5")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "Starlark output: -2.5\nExtism output: -2.5\n", out)
}

func TestRun_FromFile(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCmd(t, "-engine", "interpreter", "-f", filepath.Join("testdata", "square.sexp"), "3")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "Interpreted output: 9\n", out)
}

func TestRun_Benchmark(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCmd(t, "-benchmark", "-n", "100", "((x) (* x 2))", "21")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Code gen output: 42\n")
	assert.Contains(t, out, "Benchmarking...")
	assert.Contains(t, out, "Duration for 100 repeated evaluations:")
	assert.Contains(t, out, " - Interpreted: ")
	assert.Contains(t, out, " - JIT: ")
}

func TestRun_Permissive(t *testing.T) {
	t.Parallel()

	code, _, errOut := runCmd(t, "((x) (+ x 1.5abc))", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid numeric literal")

	code, out, errOut := runCmd(t, "-permissive", "((x) (+ x 1.5abc))", "1x")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Interpreted output: 2.5\n")
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"no arguments", nil, 2, "not enough arguments"},
		{"wrong arg count", []string{"((x y) (+ x y))", "1"}, 1, "wrong number of numeric arguments"},
		{"bad argument", []string{"((x) x)", "abc"}, 1, "argument 1"},
		{"malformed formula", []string{"(x)"}, 1, "function cell must be of form"},
		{"unknown operation", []string{"((x) (% x 2))", "1"}, 1, "unknown operation"},
		{"unknown engine", []string{"-engine", "lua", "((x) x)", "1"}, 2, "unknown engine type"},
		{"bad repetitions", []string{"-n", "0", "((x) x)", "1"}, 2, "-n must be positive"},
		{"missing file", []string{"-f", "testdata/nope.sexp", "1"}, 1, "Error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCmd(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	code, _, errOut := runCmd(t, "-h")
	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "Usage:")
	assert.Contains(t, errOut, "-benchmark")
}

func TestRun_Batch(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCmd(t, "-engine", "all", "-batch", filepath.Join("testdata", "cases.yaml"))
	require.Equal(t, 0, code, out+errOut)
	assert.NotContains(t, out, "FAIL")
	assert.Contains(t, out, "ieee division [extism]")
	assert.True(t, strings.HasSuffix(out, "0 failed\n"), out)

	code, out, _ = runCmd(t, "-batch", filepath.Join("testdata", "failing.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "FAIL wrong expectation [interpreter] [2] = 4, want 5")
	assert.Contains(t, out, "0 passed, 2 failed")

	code, _, errOut = runCmd(t, "-batch", filepath.Join("testdata", "missing.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "reading batch file")
}

func TestLoadBatch(t *testing.T) {
	t.Parallel()

	cases, err := loadBatch(filepath.Join("testdata", "cases.yaml"))
	require.NoError(t, err)
	require.Len(t, cases, 7)
	assert.Equal(t, "ieee division", cases[2].Name)
	assert.True(t, math.IsInf(cases[2].Expect[0], 1))
	assert.True(t, math.IsNaN(cases[2].Expect[2]))
	assert.Equal(t, "unknown operation", cases[4].Error)
}

func TestBatchCase_Validate(t *testing.T) {
	t.Parallel()

	assert.Error(t, batchCase{Name: "a"}.validate())
	assert.Error(t, batchCase{Name: "a", Formula: "((x) x)", Args: [][]float64{{1}}}.validate())
	assert.NoError(t, batchCase{Name: "a", Formula: "((x) x)", Error: "boom"}.validate())
}

func TestParseEngines(t *testing.T) {
	t.Parallel()

	got, err := parseEngines("")
	require.NoError(t, err)
	assert.Equal(t, []types.Type{types.Interpreter, types.JIT}, got)

	got, err = parseEngines("all")
	require.NoError(t, err)
	assert.Equal(t, types.All, got)

	got, err = parseEngines("jit,starlark")
	require.NoError(t, err)
	assert.Equal(t, []types.Type{types.JIT, types.Starlark}, got)

	_, err = parseEngines("jit,")
	require.Error(t, err)
}

func TestSameFloat(t *testing.T) {
	t.Parallel()

	assert.True(t, sameFloat(math.NaN(), math.NaN()))
	assert.False(t, sameFloat(math.NaN(), 1))
	assert.True(t, sameFloat(math.Inf(-1), math.Inf(-1)))
	a, b := 0.1, 0.2
	assert.False(t, sameFloat(a+b, 0.3))
	assert.True(t, sameFloat(a*3, 0.30000000000000004))
}

func TestReporterPlain(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newReporter(&buf)
	r.report(true, "one %d", 1)
	r.report(false, "two")
	assert.Equal(t, "ok   one 1\nFAIL two\n", buf.String())
	assert.Equal(t, 1, r.passed)
	assert.Equal(t, 1, r.failed)
}
