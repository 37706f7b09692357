// Package stageprof is a standalone profiler for the graph pipeline. It
// splits a run into load, client, compile and execute stages, labels each
// with pprof so CPU profiles attribute samples per stage, and prints average
// per-stage timings.
package stageprof

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"
	"time"

	"github.com/example/graphrun/internal/backend"
	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/literal"

	_ "github.com/example/graphrun/internal/backend/interp"
	_ "github.com/example/graphrun/internal/backend/ort"
	_ "github.com/example/graphrun/internal/backend/xla"
)

type timings struct {
	load    time.Duration
	client  time.Duration
	compile time.Duration
	execute time.Duration
	total   time.Duration
}

type inputFlags []string

func (f *inputFlags) String() string { return fmt.Sprint(*f) }

func (f *inputFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func Main() {
	var (
		graphPath     string
		backendConfig string
		runs          int
		warmup        int
		cpuprofile    string
		debugLogs     bool
		inputs        inputFlags
	)
	flag.StringVar(&graphPath, "graph", "", "graph file to profile (required)")
	flag.StringVar(&backendConfig, "backend", "", "backend config, e.g. interp or xla:cpu (empty = by format)")
	flag.IntVar(&runs, "runs", 5, "number of profiled executions")
	flag.IntVar(&warmup, "warmup", 1, "number of warmup executions")
	flag.StringVar(&cpuprofile, "cpuprofile", "", "write cpu profile")
	flag.BoolVar(&debugLogs, "debug-logs", false, "enable debug logs")
	flag.Var(&inputs, "input", "input literal, e.g. 'f32[2]=1,2' (repeatable)")
	flag.Parse()

	if debugLogs {
		slog.SetDefault(
			slog.New(
				slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
			),
		)
	}

	if graphPath == "" {
		fatalf("--graph is required")
	}

	if runs < 1 {
		fatalf("--runs must be >= 1")
	}

	lits := make([]*literal.Literal, 0, len(inputs))
	for i, spec := range inputs {
		lit, err := literal.Parse(spec)
		if err != nil {
			fatalf("input %d: %v", i, err)
		}
		lits = append(lits, lit)
	}

	ctx := context.Background()

	var agg timings

	loadStart := time.Now()
	bundle, err := graphio.Load(graphPath)
	if err != nil {
		fatalf("load graph: %v", err)
	}
	agg.load = time.Since(loadStart)

	clientStart := time.Now()
	var b backend.Backend
	if backendConfig != "" {
		b, err = backend.NewWithConfig(backendConfig, backend.Options{})
	} else {
		backend.DefaultConfig = backend.ForFormat(bundle.Format)
		b, err = backend.New(backend.Options{})
	}
	if err != nil {
		fatalf("acquire backend: %v", err)
	}
	defer b.Close()
	agg.client = time.Since(clientStart)

	var exec backend.Executable
	var compileErr error

	pprof.Do(ctx, pprof.Labels("stage", "compile"), func(ctx context.Context) {
		start := time.Now()
		exec, compileErr = b.Compile(ctx, bundle, backend.CompileOptions{})
		agg.compile = time.Since(start)
	})

	if compileErr != nil {
		fatalf("compile: %v", compileErr)
	}
	defer exec.Finalize()

	for i := range warmup {
		_, err := exec.Execute(ctx, lits)
		if err != nil {
			fatalf("warmup run %d failed: %v", i+1, err)
		}
	}

	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			fatalf("create cpuprofile: %v", err)
		}
		defer f.Close()

		err = pprof.StartCPUProfile(f)
		if err != nil {
			fatalf("start cpuprofile: %v", err)
		}

		defer pprof.StopCPUProfile()
	}

	totalStart := time.Now()

	for i := range runs {
		var execErr error

		pprof.Do(ctx, pprof.Labels("stage", "execute"), func(ctx context.Context) {
			start := time.Now()
			_, execErr = exec.Execute(ctx, lits)
			agg.execute += time.Since(start)
		})

		if execErr != nil {
			fatalf("profiled run %d failed: %v", i+1, execErr)
		}
	}

	agg.total = time.Since(totalStart)

	div := float64(runs)
	avgExecute := agg.execute.Seconds() * 1000 / div

	fmt.Printf("graph: %s (%s)\n", bundle.Name, bundle.Format)
	fmt.Printf("backend: %s\n", b.Description())
	fmt.Printf("runs: %d (warmup %d)\n", runs, warmup)
	fmt.Printf("load_ms: %.2f\n", agg.load.Seconds()*1000)
	fmt.Printf("client_ms: %.2f\n", agg.client.Seconds()*1000)
	fmt.Printf("compile_ms: %.2f\n", agg.compile.Seconds()*1000)
	fmt.Printf("avg_execute_ms: %.2f\n", avgExecute)

	if agg.total > 0 {
		fmt.Printf("share_execute_pct: %.2f\n", 100*agg.execute.Seconds()/agg.total.Seconds())
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
