package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/example/graphrun/internal/backend"
	"github.com/example/graphrun/internal/backend/ort"
	"github.com/example/graphrun/internal/backend/xla"
	"github.com/example/graphrun/internal/doctor"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var (
		skipPJRT bool
		skipORT  bool
	)

	cmd := &cobra.Command{
		Use:   "doctor [graph-file...]",
		Short: "Check backend availability and graph file presence",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			res := doctor.Run(doctor.Config{
				Backends: backend.Names(),
				PJRTPlugins: func() (string, error) {
					plugins := xla.AvailablePlugins()
					if len(plugins) == 0 {
						return "", fmt.Errorf("no PJRT plugin on search path")
					}
					return strings.Join(plugins, ", "), nil
				},
				SkipPJRT: skipPJRT,
				ORTLibrary: func() (string, error) {
					info, err := ort.Detect(cfg.Runtime.ORTLibraryPath, cfg.Runtime.ORTVersion)
					if err != nil {
						return "", err
					}
					return fmt.Sprintf("%s (version %s)", info.LibraryPath, info.Version), nil
				},
				SkipORT:    skipORT,
				GraphFiles: args,
			}, os.Stdout)

			if res.Failed() {
				return fmt.Errorf("%d check(s) failed", len(res.Failures()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPJRT, "skip-pjrt", false, "Skip the PJRT plugin check")
	cmd.Flags().BoolVar(&skipORT, "skip-ort", false, "Skip the ONNX Runtime check")

	return cmd
}
