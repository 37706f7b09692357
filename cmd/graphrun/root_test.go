package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/graphrun/internal/config"
	"github.com/example/graphrun/internal/runner"
)

func writeGraph(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.graph")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()

	cmd := NewRootCmd()
	cmd.SetArgs(args)

	return cmd.Execute()
}

func TestRunCommand_Success(t *testing.T) {
	path := writeGraph(t, `
graph add_scalars
param x f32[]
param y f32[]
%0 = add x y
ret %0
`)

	err := execute(t, "run", path, "--input", "f32[]=2", "--input", "f32[]=3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunCommand_MissingFile_ExitCode(t *testing.T) {
	err := execute(t, "run", filepath.Join(t.TempDir(), "missing.graph"))
	if err == nil {
		t.Fatal("run(missing) = nil; want error")
	}

	if got := runner.ExitCode(err); got != 2 {
		t.Errorf("exit code = %d; want 2 for a load failure", got)
	}
}

func TestRunCommand_BadInputLiteral_ExitCode(t *testing.T) {
	path := writeGraph(t, "graph g\nparam x f32[]\nret x\n")

	err := execute(t, "run", path, "--input", "f32[]=notanumber")
	if err == nil {
		t.Fatal("run(bad literal) = nil; want error")
	}

	// Malformed flag values are usage errors, not run failures.
	if got := runner.ExitCode(err); got != 1 {
		t.Errorf("exit code = %d; want 1 for a malformed input flag", got)
	}
}

func TestRunCommand_UnsupportedOp_ExitCode(t *testing.T) {
	path := writeGraph(t, "graph g\nparam x f32[]\n%0 = matmul x x\nret %0\n")

	err := execute(t, "run", path, "--input", "f32[]=1")
	if err == nil {
		t.Fatal("run(unsupported op) = nil; want error")
	}

	if got := runner.ExitCode(err); got != 4 {
		t.Errorf("exit code = %d; want 4 for a compile failure", got)
	}
}

func TestRunCommand_ShapeMismatch_ExitCode(t *testing.T) {
	path := writeGraph(t, "graph g\nparam x f32[2]\nret x\n")

	err := execute(t, "run", path, "--input", "f32[3]=1,2,3")
	if err == nil {
		t.Fatal("run(shape mismatch) = nil; want error")
	}

	if got := runner.ExitCode(err); got != 5 {
		t.Errorf("exit code = %d; want 5 for an input mismatch", got)
	}
}

func TestRunCommand_UnknownBackend_ExitCode(t *testing.T) {
	path := writeGraph(t, "graph g\nparam x f32[]\nret x\n")

	err := execute(t, "run", path, "--backend", "nonexistent", "--input", "f32[]=1")
	if err == nil {
		t.Fatal("run(unknown backend) = nil; want error")
	}

	if got := runner.ExitCode(err); got != 3 {
		t.Errorf("exit code = %d; want 3 for a client failure", got)
	}
}

func TestInspectCommand(t *testing.T) {
	path := writeGraph(t, "graph g\nparam x f32[2]\nret x\n")

	if err := execute(t, "inspect", path); err != nil {
		t.Fatalf("inspect: %v", err)
	}
}

func TestBenchCommand(t *testing.T) {
	path := writeGraph(t, "graph g\nparam x f32[]\n%0 = mul x x\nret %0\n")

	if err := execute(t, "bench", path, "--input", "f32[]=3", "--runs", "2"); err != nil {
		t.Fatalf("bench: %v", err)
	}
}

func TestBenchCommand_BadFlags(t *testing.T) {
	path := writeGraph(t, "graph g\nparam x f32[]\nret x\n")

	if err := execute(t, "bench", path, "--runs", "0"); err == nil {
		t.Error("bench --runs 0 = nil; want error")
	}

	if err := execute(t, "bench", path, "--format", "xml"); err == nil {
		t.Error("bench --format xml = nil; want error")
	}
}

func TestDoctorCommand_SkipsNativeProbes(t *testing.T) {
	path := writeGraph(t, "graph g\nparam x f32[]\nret x\n")

	if err := execute(t, "doctor", "--skip-pjrt", "--skip-ort", path); err != nil {
		t.Fatalf("doctor: %v", err)
	}
}

func TestDoctorCommand_MissingGraphFails(t *testing.T) {
	err := execute(t, "doctor", "--skip-pjrt", "--skip-ort",
		filepath.Join(t.TempDir(), "missing.graph"))
	if err == nil {
		t.Fatal("doctor(missing graph) = nil; want error")
	}
}

func TestBackendConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"empty", config.Config{}, ""},
		{
			"xla with plugin",
			config.Config{Runtime: config.RuntimeConfig{Backend: "xla", PJRTPlugin: "cpu"}},
			"xla:cpu",
		},
		{
			"xla bare",
			config.Config{Runtime: config.RuntimeConfig{Backend: "xla"}},
			"xla",
		},
		{
			"ort with library",
			config.Config{Runtime: config.RuntimeConfig{Backend: "ort", ORTLibraryPath: "/lib/ort.so"}},
			"ort:/lib/ort.so",
		},
		{
			"interp",
			config.Config{Runtime: config.RuntimeConfig{Backend: "interp"}},
			"interp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backendConfig(tt.cfg); got != tt.want {
				t.Errorf("backendConfig = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"WARN", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in).String(); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %s; want %s", tt.in, got, tt.want)
		}
	}
}
