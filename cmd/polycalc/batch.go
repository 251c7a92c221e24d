package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/robbyt/go-polycalc"
	"github.com/robbyt/go-polycalc/options"
	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/script/loader"
	"gopkg.in/yaml.v3"
)

// batchCase is one entry of a batch file. A case either lists expected
// results, one per argument set, or names the error every engine must report.
type batchCase struct {
	Name    string      `yaml:"name"`
	Formula string      `yaml:"formula"`
	Args    [][]float64 `yaml:"args"`
	Expect  []float64   `yaml:"expect"`
	Error   string      `yaml:"error"`
}

func (c batchCase) validate() error {
	if c.Formula == "" {
		return fmt.Errorf("case %q: formula is required", c.Name)
	}
	if c.Error != "" {
		return nil
	}
	if len(c.Args) != len(c.Expect) {
		return fmt.Errorf("case %q: %d argument sets but %d expected results", c.Name, len(c.Args), len(c.Expect))
	}
	return nil
}

func loadBatch(path string) ([]batchCase, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	var cases []batchCase
	if err := yaml.Unmarshal(content, &cases); err != nil {
		return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
	}
	for i := range cases {
		if cases[i].Name == "" {
			cases[i].Name = fmt.Sprintf("case %d", i+1)
		}
		if err := cases[i].validate(); err != nil {
			return nil, err
		}
	}
	return cases, nil
}

// reporter prints one line per check, colored when writing to a terminal.
type reporter struct {
	w      io.Writer
	color  bool
	failed int
	passed int
}

func newReporter(w io.Writer) *reporter {
	return &reporter{w: w, color: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *reporter) status(ok bool) string {
	switch {
	case ok && r.color:
		return "\x1b[32mok\x1b[0m  "
	case ok:
		return "ok  "
	case r.color:
		return "\x1b[31mFAIL\x1b[0m"
	default:
		return "FAIL"
	}
}

func (r *reporter) report(ok bool, format string, args ...any) {
	if ok {
		r.passed++
	} else {
		r.failed++
	}
	fmt.Fprintf(r.w, "%s %s\n", r.status(ok), fmt.Sprintf(format, args...))
}

// runBatch checks every case on every configured engine. It returns false
// when any check fails.
func runBatch(ctx context.Context, cfg *config, opts []options.Option, stdout io.Writer) (bool, error) {
	cases, err := loadBatch(cfg.batch)
	if err != nil {
		return false, err
	}

	r := newReporter(stdout)
	for _, c := range cases {
		for _, engine := range cfg.engines {
			label := fmt.Sprintf("%s [%s]", c.Name, engine)
			ldr, err := loader.NewFromString(c.Formula)
			if err != nil {
				r.report(false, "%s: %v", label, err)
				continue
			}
			fn, err := polycalc.New(ctx, engine, ldr, opts...)
			if err != nil {
				r.report(c.Error != "" && strings.Contains(err.Error(), c.Error), "%s: %v", label, err)
				continue
			}
			checkCase(ctx, r, label, c, fn)
			if err := fn.Close(ctx); err != nil {
				return false, fmt.Errorf("%s: %w", label, err)
			}
		}
	}

	fmt.Fprintf(stdout, "\n%d passed, %d failed\n", r.passed, r.failed)
	return r.failed == 0, nil
}

func checkCase(ctx context.Context, r *reporter, label string, c batchCase, fn platform.Function) {
	if c.Error != "" && len(c.Args) == 0 {
		r.report(false, "%s: built, want error containing %q", label, c.Error)
		return
	}
	for i, args := range c.Args {
		got, err := fn.Call(ctx, args)
		switch {
		case c.Error != "":
			r.report(err != nil && strings.Contains(err.Error(), c.Error),
				"%s %v: got %s, %v, want error containing %q", label, args, formatFloat(got), err, c.Error)
		case err != nil:
			r.report(false, "%s %v: %v", label, args, err)
		default:
			r.report(sameFloat(got, c.Expect[i]),
				"%s %v = %s, want %s", label, args, formatFloat(got), formatFloat(c.Expect[i]))
		}
	}
}

// sameFloat compares exactly, treating any two NaNs as equal.
func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}
