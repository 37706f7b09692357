package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Runtime.Backend != "" {
		t.Errorf("Runtime.Backend = %q; want empty (auto-select)", cfg.Runtime.Backend)
	}

	if cfg.Runtime.DeviceCount != 1 {
		t.Errorf("Runtime.DeviceCount = %d; want 1", cfg.Runtime.DeviceCount)
	}

	if !cfg.Run.PrintOutputs {
		t.Error("Run.PrintOutputs = false; want true")
	}

	if cfg.Run.DeviceNum != 0 {
		t.Errorf("Run.DeviceNum = %d; want 0", cfg.Run.DeviceNum)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	checks := []struct {
		flag string
		want string
	}{
		{"backend", ""},
		{"plugin", ""},
		{"device-count", "1"},
		{"ort-lib", ""},
		{"print-outputs", "true"},
		{"log-level", "info"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	cfg, err := Load(LoadOptions{
		Cmd:      binder,
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Runtime.DeviceCount != defaults.Runtime.DeviceCount {
		t.Errorf("Runtime.DeviceCount = %d; want %d", cfg.Runtime.DeviceCount, defaults.Runtime.DeviceCount)
	}

	if cfg.Run.PrintOutputs != defaults.Run.PrintOutputs {
		t.Errorf("Run.PrintOutputs = %v; want %v", cfg.Run.PrintOutputs, defaults.Run.PrintOutputs)
	}

	if cfg.LogLevel != defaults.LogLevel {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, defaults.LogLevel)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	err := fs.Parse([]string{
		"--backend=interp",
		"--device-count=4",
		"--log-level=debug",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:      &fakeBinder{fs: fs},
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Runtime.Backend != "interp" {
		t.Errorf("Runtime.Backend = %q; want %q", cfg.Runtime.Backend, "interp")
	}

	if cfg.Runtime.DeviceCount != 4 {
		t.Errorf("Runtime.DeviceCount = %d; want 4", cfg.Runtime.DeviceCount)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_BackendFlags(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	err := fs.Parse([]string{
		"--plugin=cuda",
		"--ort-lib=/tmp/libort.so",
		"--ort-version=1.23.0",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:      &fakeBinder{fs: fs},
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Runtime.PJRTPlugin != "cuda" {
		t.Errorf("Runtime.PJRTPlugin = %q; want %q", cfg.Runtime.PJRTPlugin, "cuda")
	}

	if cfg.Runtime.ORTLibraryPath != "/tmp/libort.so" {
		t.Errorf("Runtime.ORTLibraryPath = %q; want %q", cfg.Runtime.ORTLibraryPath, "/tmp/libort.so")
	}

	if cfg.Runtime.ORTVersion != "1.23.0" {
		t.Errorf("Runtime.ORTVersion = %q; want %q", cfg.Runtime.ORTVersion, "1.23.0")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GRAPHRUN_LOG_LEVEL", "warn")
	t.Setenv("GRAPHRUN_BACKEND", "ort")

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}

	if cfg.Runtime.Backend != "ort" {
		t.Errorf("Runtime.Backend = %q; want %q", cfg.Runtime.Backend, "ort")
	}
}

func TestLoad_ORTLibraryEnvFallback(t *testing.T) {
	t.Setenv("ORT_LIBRARY_PATH", "/opt/ort/libonnxruntime.so")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Runtime.ORTLibraryPath != "/opt/ort/libonnxruntime.so" {
		t.Errorf("Runtime.ORTLibraryPath = %q; want %q", cfg.Runtime.ORTLibraryPath, "/opt/ort/libonnxruntime.so")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "graphrun.yaml")

	content := `
log_level: error
runtime:
  backend: xla
  device_count: 2
  pjrt_plugin: cpu
`

	err := os.WriteFile(cfgFile, []byte(content), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// Unparsed flags must not mask the config file layer.
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	cfg, err := Load(LoadOptions{
		Cmd:        binder,
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "error")
	}

	if cfg.Runtime.Backend != "xla" {
		t.Errorf("Runtime.Backend = %q; want %q", cfg.Runtime.Backend, "xla")
	}

	if cfg.Runtime.DeviceCount != 2 {
		t.Errorf("Runtime.DeviceCount = %d; want 2", cfg.Runtime.DeviceCount)
	}

	if cfg.Runtime.PJRTPlugin != "cpu" {
		t.Errorf("Runtime.PJRTPlugin = %q; want %q", cfg.Runtime.PJRTPlugin, "cpu")
	}
}

func TestLoad_FlagBeatsConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "graphrun.yaml")

	err := os.WriteFile(cfgFile, []byte("log_level: error\n"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	if err := fs.Parse([]string{"--log-level=debug"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:        &fakeBinder{fs: fs},
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want flag value %q over config file", cfg.LogLevel, "debug")
	}
}

func TestLoad_EnvBeatsConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "graphrun.yaml")

	err := os.WriteFile(cfgFile, []byte("runtime:\n  backend: xla\n"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("GRAPHRUN_BACKEND", "ort")

	cfg, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Runtime.Backend != "ort" {
		t.Errorf("Runtime.Backend = %q; want env value %q over config file", cfg.Runtime.Backend, "ort")
	}
}

func TestLoad_ConfigFileExists_NoError(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "graphrun.yaml")

	err := os.WriteFile(cfgFile, []byte("log_level: warn\n"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_ = cfg
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")

	err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/graphrun.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

func TestLoad_NilCmd(t *testing.T) {
	cfg, err := Load(LoadOptions{
		Cmd:      nil,
		Defaults: DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	_ = cfg.Runtime.Backend
	_ = cfg.Run.DeviceNum
}
