package main

import (
	"fmt"
	"os"
	"time"

	"github.com/example/graphrun/internal/backend"
	"github.com/example/graphrun/internal/bench"
	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/runner"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		inputSpecs []string
		runs       int
		format     string
	)

	cmd := &cobra.Command{
		Use:   "bench <graph-file>",
		Short: "Compile a graph once and time repeated executions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			inputs, err := parseInputs(inputSpecs)
			if err != nil {
				return err
			}

			bundle, err := graphio.Load(args[0])
			if err != nil {
				return runner.NewError(runner.StepLoad, err)
			}

			config := backendConfig(cfg)
			if config == "" {
				config = backend.ForFormat(bundle.Format)
			}
			b, err := backend.NewWithConfig(config, backend.Options{DeviceCount: cfg.Runtime.DeviceCount})
			if err != nil {
				return runner.NewError(runner.StepClient, err)
			}
			defer b.Close()

			compileStart := time.Now()
			exec, err := b.Compile(cmd.Context(), bundle, backend.CompileOptions{DeviceNum: cfg.Run.DeviceNum})
			if err != nil {
				return runner.NewError(runner.StepCompile, err)
			}
			defer exec.Finalize()
			compileTime := time.Since(compileStart)

			if err := runner.ValidateInputs(exec.Inputs(), inputs); err != nil {
				return runner.NewError(runner.StepInput, err)
			}

			bar := progressbar.NewOptions(runs,
				progressbar.OptionSetDescription("executing"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionClearOnFinish(),
			)

			results := make([]bench.RunResult, 0, runs)
			for i := 0; i < runs; i++ {
				start := time.Now()
				if _, err := exec.Execute(cmd.Context(), inputs); err != nil {
					return runner.NewError(runner.StepExecute, fmt.Errorf("run %d failed: %w", i+1, err))
				}
				results = append(results, bench.RunResult{
					Index:    i,
					Cold:     i == 0,
					Duration: time.Since(start),
				})
				_ = bar.Add(1)
			}

			durations := make([]time.Duration, len(results))
			for i, r := range results {
				durations[i] = r.Duration
			}
			stats := bench.ComputeStats(durations)

			switch format {
			case "json":
				bench.FormatJSON(results, compileTime, stats, os.Stdout)
			default:
				bench.FormatTable(results, compileTime, stats, os.Stdout)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputSpecs, "input", nil,
		"Input literal, e.g. 'f32[2,2]=1,2,3,4' (repeatable, positional order)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of executions to time")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")

	return cmd
}
