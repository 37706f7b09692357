package main

import (
	"fmt"
	"os"

	"github.com/example/graphrun/internal/literal"
	"github.com/example/graphrun/internal/runner"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var inputSpecs []string

	cmd := &cobra.Command{
		Use:   "run <graph-file>",
		Short: "Load, compile and execute a graph, then print its outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			inputs, err := parseInputs(inputSpecs)
			if err != nil {
				return err
			}

			report, err := runner.Run(cmd.Context(), runner.Options{
				GraphPath:     args[0],
				Inputs:        inputs,
				BackendConfig: backendConfig(cfg),
				DeviceCount:   cfg.Runtime.DeviceCount,
				DeviceNum:     cfg.Run.DeviceNum,
			})
			if err != nil {
				return err
			}

			if cfg.Run.PrintOutputs {
				if err := report.Print(os.Stdout); err != nil {
					return runner.NewError(runner.StepReport, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputSpecs, "input", nil,
		"Input literal, e.g. 'f32[2,2]=1,2,3,4' (repeatable, positional order)")

	return cmd
}

// parseInputs parses --input literal flags. A malformed literal is a usage
// error, not a run failure.
func parseInputs(specs []string) ([]*literal.Literal, error) {
	inputs := make([]*literal.Literal, 0, len(specs))
	for i, spec := range specs {
		lit, err := literal.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		inputs = append(inputs, lit)
	}
	return inputs, nil
}
