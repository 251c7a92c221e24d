// Command polycalc evaluates a formula with numeric arguments on one or more
// engines, and can time repeated evaluations or check a batch of cases.
//
// Usage:
//
//	polycalc [flags] "((x y) (+ (* x y) 10.5))" 4 2
//	polycalc [flags] -f formula.sexp 4 2
//	polycalc [flags] -batch cases.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robbyt/go-polycalc"
	"github.com/robbyt/go-polycalc/engines/types"
	"github.com/robbyt/go-polycalc/options"
	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/eval"
	"github.com/robbyt/go-polycalc/platform/script/loader"
)

const defaultRepetitions = 10_000_000

const usage = `Usage:

   $ polycalc [flags] "((args1 ... argsn) (expr))" arg1 ... argn

Example:

   $ polycalc "((x y) (+ (* x y) 10.5))" 4 2

Flags:
`

// errUsage marks errors caused by the command line itself.
var errUsage = errors.New("usage")

type config struct {
	benchmark   bool
	repetitions int
	engines     []types.Type
	file        string
	batch       string
	permissive  bool
	verbose     bool
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, rest, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	opts := []options.Option{options.WithLogHandler(logHandler(stderr, cfg.verbose))}
	if cfg.permissive {
		opts = append(opts, options.WithPermissiveNumbers())
	}

	if cfg.batch != "" {
		ok, err := runBatch(ctx, cfg, opts, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if !ok {
			return 1
		}
		return 0
	}

	if err := runFormula(ctx, cfg, opts, rest, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, "\n"+usage)
			return 2
		}
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*config, []string, error) {
	cfg := &config{}
	var engine string

	fs := flag.NewFlagSet("polycalc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.BoolVar(&cfg.benchmark, "benchmark", false, "time repeated evaluations on each engine")
	fs.IntVar(&cfg.repetitions, "n", defaultRepetitions, "number of repeated evaluations for -benchmark")
	fs.StringVar(&engine, "engine", "", `engines to run: "all", or a comma-separated list of `+engineNames()+` (default interpreter,jit)`)
	fs.StringVar(&cfg.file, "f", "", "read the formula from a file instead of the first argument")
	fs.StringVar(&cfg.batch, "batch", "", "check the cases in a YAML file")
	fs.BoolVar(&cfg.permissive, "permissive", false, "accept numbers with trailing garbage, keeping the longest valid prefix")
	fs.BoolVar(&cfg.verbose, "v", false, "log engine construction details")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if cfg.repetitions < 1 {
		return nil, nil, fmt.Errorf("-n must be positive, got %d", cfg.repetitions)
	}
	engines, err := parseEngines(engine)
	if err != nil {
		return nil, nil, err
	}
	cfg.engines = engines
	return cfg, fs.Args(), nil
}

func engineNames() string {
	names := make([]string, len(types.All))
	for i, t := range types.All {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

func parseEngines(s string) ([]types.Type, error) {
	switch s {
	case "":
		return []types.Type{types.Interpreter, types.JIT}, nil
	case "all":
		return types.All, nil
	}
	var engines []types.Type
	for name := range strings.SplitSeq(s, ",") {
		t, err := types.Parse(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		engines = append(engines, t)
	}
	return engines, nil
}

func logHandler(w io.Writer, verbose bool) slog.Handler {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

func formulaLoader(cfg *config, rest []string) (loader.Loader, []string, error) {
	if cfg.file != "" {
		path, err := filepath.Abs(cfg.file)
		if err != nil {
			return nil, nil, err
		}
		ldr, err := loader.NewFromDisk(path)
		return ldr, rest, err
	}
	if len(rest) == 0 {
		return nil, nil, fmt.Errorf("%w: not enough arguments", errUsage)
	}
	ldr, err := loader.NewFromString(rest[0])
	return ldr, rest[1:], err
}

func runFormula(
	ctx context.Context,
	cfg *config,
	opts []options.Option,
	rest []string,
	stdout io.Writer,
) error {
	ldr, rawArgs, err := formulaLoader(cfg, rest)
	if err != nil {
		return err
	}
	formula, err := loader.ReadFormula(ldr)
	if err != nil {
		return fmt.Errorf("function cell must be of form ((arg1 arg2 ...) (expression)): %w", err)
	}
	if len(rawArgs) != len(formula.Params) {
		return fmt.Errorf(
			"wrong number of numeric arguments passed in: %w: want %d, got %d",
			platform.ErrArgumentCount, len(formula.Params), len(rawArgs),
		)
	}
	args, err := parseArgs(rawArgs, cfg.permissive)
	if err != nil {
		return err
	}

	fns := make([]platform.Function, 0, len(cfg.engines))
	defer func() {
		for _, fn := range fns {
			_ = fn.Close(ctx)
		}
	}()
	for _, engine := range cfg.engines {
		ldr, err := loader.NewFromString(formula.String())
		if err != nil {
			return err
		}
		fn, err := polycalc.New(ctx, engine, ldr, opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", engine, err)
		}
		fns = append(fns, fn)
	}

	for i, fn := range fns {
		v, err := fn.Call(ctx, args)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.engines[i], err)
		}
		fmt.Fprintf(stdout, "%s: %s\n", cfg.engines[i].OutputLabel(), formatFloat(v))
	}

	if !cfg.benchmark {
		return nil
	}
	fmt.Fprintln(stdout, "\nBenchmarking...")
	durations := make([]time.Duration, len(fns))
	for i, fn := range fns {
		start := time.Now()
		for range cfg.repetitions {
			if _, err := fn.Call(ctx, args); err != nil {
				return fmt.Errorf("%s: %w", cfg.engines[i], err)
			}
		}
		durations[i] = time.Since(start)
	}
	fmt.Fprintf(stdout, "Duration for %d repeated evaluations:\n\n", cfg.repetitions)
	for i, d := range durations {
		fmt.Fprintf(stdout, " - %s: %dms\n", cfg.engines[i].BenchmarkLabel(), d.Milliseconds())
	}
	return nil
}

func parseArgs(raw []string, permissive bool) ([]float64, error) {
	args := make([]float64, len(raw))
	for i, s := range raw {
		v, err := eval.ParseNumber(s, permissive)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		args[i] = v
	}
	return args, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
