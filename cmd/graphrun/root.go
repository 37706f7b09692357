package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/example/graphrun/internal/config"
	"github.com/spf13/cobra"

	// Register the built-in device backends.
	_ "github.com/example/graphrun/internal/backend/interp"
	_ "github.com/example/graphrun/internal/backend/ort"
	_ "github.com/example/graphrun/internal/backend/xla"
)

var (
	cfgFile   string
	activeCfg config.Config
	cfgLoaded bool
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "graphrun",
		Short:         "Compile and execute serialized computation graphs on a device backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			cfgLoaded = true
			setupLogger(loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl := parseLogLevel(levelStr)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func requireConfig() (config.Config, error) {
	if !cfgLoaded {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return activeCfg, nil
}

// backendConfig renders the configured backend selection as a
// "<name>:<config>" string for the registry, attaching the plugin name or
// library path the selected backend expects. An empty backend name returns
// an empty string, which lets the run pick a backend by graph format.
func backendConfig(cfg config.Config) string {
	switch cfg.Runtime.Backend {
	case "":
		return ""
	case "xla":
		if cfg.Runtime.PJRTPlugin != "" {
			return "xla:" + cfg.Runtime.PJRTPlugin
		}
		return "xla"
	case "ort":
		if cfg.Runtime.ORTLibraryPath != "" {
			return "ort:" + cfg.Runtime.ORTLibraryPath
		}
		return "ort"
	default:
		return cfg.Runtime.Backend
	}
}
