package ort_test

import (
	"context"
	"testing"

	"github.com/example/graphrun/internal/backend"
	"github.com/example/graphrun/internal/backend/ort"
	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/testutil"
)

func detect() (string, error) { return ort.DetectLibrary("") }

func TestORT_NewAndClose(t *testing.T) {
	testutil.RequireONNXRuntime(t, detect)

	b, err := ort.New("", backend.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := b.NumDevices(); got != 1 {
		t.Errorf("NumDevices() = %d; want 1", got)
	}

	if err := b.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	// Close must be idempotent.
	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestORT_CompileRequiresManifest(t *testing.T) {
	testutil.RequireONNXRuntime(t, detect)

	b, err := ort.New("", backend.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	path := testutil.TempGraph(t, ".onnx", []byte("not a real model"))

	bundle := &graphio.Bundle{
		Path:   path,
		Name:   "m",
		Format: graphio.FormatONNX,
		Data:   []byte("not a real model"),
	}

	_, err = b.Compile(context.Background(), bundle, backend.CompileOptions{})
	if err == nil {
		t.Fatal("Compile without manifest = nil; want error")
	}
}
