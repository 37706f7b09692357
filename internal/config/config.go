package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Runtime  RuntimeConfig `mapstructure:"runtime"`
	Run      RunConfig     `mapstructure:"run"`
	LogLevel string        `mapstructure:"log_level"`
}

type RuntimeConfig struct {
	Backend        string `mapstructure:"backend"`
	PJRTPlugin     string `mapstructure:"pjrt_plugin"`
	DeviceCount    int    `mapstructure:"device_count"`
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTVersion     string `mapstructure:"ort_version"`
}

type RunConfig struct {
	PrintOutputs bool `mapstructure:"print_outputs"`
	DeviceNum    int  `mapstructure:"device_num"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Runtime: RuntimeConfig{
			Backend:        "",
			PJRTPlugin:     "",
			DeviceCount:    1,
			ORTLibraryPath: "",
			ORTVersion:     "",
		},
		Run: RunConfig{
			PrintOutputs: true,
			DeviceNum:    0,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("backend", defaults.Runtime.Backend, "Device backend (xla, ort, interp); empty selects by graph format")
	fs.String("plugin", defaults.Runtime.PJRTPlugin, "PJRT plugin name for the xla backend (cpu, cuda, ...)")
	fs.Int("device-count", defaults.Runtime.DeviceCount, "Minimum number of addressable devices required")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-version", defaults.Runtime.ORTVersion, "Expected ONNX Runtime version")
	fs.Bool("print-outputs", defaults.Run.PrintOutputs, "Print output literals after execution")
	fs.Int("device-num", defaults.Run.DeviceNum, "Addressable device to compile and execute on")
	fs.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
}

// flagKeys maps each canonical config key to the flag that overrides it.
var flagKeys = map[string]string{
	"runtime.backend":          "backend",
	"runtime.pjrt_plugin":      "plugin",
	"runtime.device_count":     "device-count",
	"runtime.ort_library_path": "ort-lib",
	"runtime.ort_version":      "ort-version",
	"run.print_outputs":        "print-outputs",
	"run.device_num":           "device-num",
	"log_level":                "log-level",
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("GRAPHRUN")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("runtime.ort_library_path", "GRAPHRUN_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	if err := v.BindEnv("runtime.backend", "GRAPHRUN_BACKEND"); err != nil {
		return Config{}, fmt.Errorf("bind backend env var: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("graphrun")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("runtime.backend", c.Runtime.Backend)
	v.SetDefault("runtime.pjrt_plugin", c.Runtime.PJRTPlugin)
	v.SetDefault("runtime.device_count", c.Runtime.DeviceCount)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_version", c.Runtime.ORTVersion)
	v.SetDefault("run.print_outputs", c.Run.PrintOutputs)
	v.SetDefault("run.device_num", c.Run.DeviceNum)
	v.SetDefault("log_level", c.LogLevel)
}

// bindFlags binds each known flag to its canonical key. Binding the flags
// directly keeps viper's precedence intact: a changed flag wins, an unchanged
// one falls through to env, config file and defaults.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}
