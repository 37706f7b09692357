// Package testutil provides helpers shared between integration tests.
package testutil

import (
	"os"
	"testing"
)

// RequirePJRTPlugin skips the test when no PJRT plugin is discoverable.
// Set GRAPHRUN_TEST_PJRT=1 to force the test to run (and fail loudly
// when the plugin is actually missing).
func RequirePJRTPlugin(t *testing.T, available func() []string) {
	t.Helper()
	if os.Getenv("GRAPHRUN_TEST_PJRT") == "1" {
		return
	}
	if len(available()) == 0 {
		t.Skip("no PJRT plugin available; set GRAPHRUN_TEST_PJRT=1 to force")
	}
}

// RequireONNXRuntime skips the test when the ONNX Runtime shared library
// cannot be located. Set GRAPHRUN_TEST_ORT=1 to force the test to run.
func RequireONNXRuntime(t *testing.T, detect func() (string, error)) {
	t.Helper()
	if os.Getenv("GRAPHRUN_TEST_ORT") == "1" {
		return
	}
	if _, err := detect(); err != nil {
		t.Skipf("onnxruntime library not found (%v); set GRAPHRUN_TEST_ORT=1 to force", err)
	}
}

// TempGraph writes content to a temporary file with the given suffix and
// returns its path. The file is removed when the test finishes.
func TempGraph(t *testing.T, suffix string, content []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "graph-*"+suffix)
	if err != nil {
		t.Fatalf("create temp graph: %v", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		t.Fatalf("write temp graph: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp graph: %v", err)
	}
	return f.Name()
}
