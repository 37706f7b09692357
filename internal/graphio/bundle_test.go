package graphio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/graphrun/internal/literal"
	"github.com/gomlx/gopjrt/dtypes"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}

	return path
}

const textGraph = `graph add2
param x f32[2]
param y f32[2]
%0 = add x y
ret %0
`

// --- DetectFormat ---

func TestDetectFormat_Extensions(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"model.graph", FormatText},
		{"model.txt", FormatText},
		{"model.onnx", FormatONNX},
		{"model.mlir", FormatStableHLO},
		{"model.stablehlo", FormatStableHLO},
		{"model.pb", FormatHLOProto},
		{"model.hlo", FormatHLOProto},
		{"MODEL.ONNX", FormatONNX},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DetectFormat(tt.path, []byte("x")); got != tt.want {
				t.Errorf("DetectFormat(%q) = %s; want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestDetectFormat_Sniffing(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"text header", []byte("graph foo\nret x\n"), FormatText},
		{"mlir bytecode magic", []byte{'M', 'L', 0xef, 'R', 1, 2}, FormatStableHLO},
		{"stablehlo text", []byte("module {\n  func.func @main() {}\n}\n"), FormatStableHLO},
		{"garbage", []byte{0xde, 0xad, 0xbe, 0xef}, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat("noext", tt.data); got != tt.want {
				t.Errorf("DetectFormat = %s; want %s", got, tt.want)
			}
		})
	}
}

// --- Load ---

func TestLoad_TextGraph(t *testing.T) {
	path := writeFile(t, t.TempDir(), "add2.graph", []byte(textGraph))

	bundle, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if bundle.Format != FormatText {
		t.Errorf("Format = %s; want text", bundle.Format)
	}

	if bundle.Name != "add2" {
		t.Errorf("Name = %q; want %q", bundle.Name, "add2")
	}

	if bundle.SizeBytes() != len(textGraph) {
		t.Errorf("SizeBytes() = %d; want %d", bundle.SizeBytes(), len(textGraph))
	}

	if bundle.Manifest != nil {
		t.Error("Manifest != nil without a sidecar file")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.graph"))
	if err == nil {
		t.Fatal("Load(missing) = nil; want error")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.graph", nil)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load(empty) = nil; want error")
	}
}

func TestLoad_UnknownFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "blob", []byte{0xde, 0xad})

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load(unknown format) = nil; want error")
	}
}

// --- Manifest ---

func TestLoad_WithManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "model.onnx", []byte("onnx-bytes"))
	writeFile(t, dir, "model.onnx"+ManifestSuffix, []byte(`{
		"name": "matmul",
		"inputs": [
			{"name": "a", "dtype": "f32", "shape": [2, 3]},
			{"name": "b", "dtype": "f32", "shape": [3, 2]}
		],
		"outputs": [
			{"name": "out", "dtype": "f32", "shape": [2, 2]}
		]
	}`))

	bundle, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if bundle.Name != "matmul" {
		t.Errorf("Name = %q; want manifest name %q", bundle.Name, "matmul")
	}

	inputs := bundle.Manifest.InputNodes()
	if len(inputs) != 2 {
		t.Fatalf("InputNodes() length = %d; want 2", len(inputs))
	}

	want := literal.MakeShape(dtypes.Float32, 2, 3)
	if inputs[0].Name != "a" || !inputs[0].Shape.Equal(want) {
		t.Errorf("input 0 = %s %s; want a %s", inputs[0].Name, inputs[0].Shape, want)
	}

	outputs := bundle.Manifest.OutputNodes()
	if len(outputs) != 1 || outputs[0].Name != "out" {
		t.Errorf("OutputNodes() = %v; want one node named out", outputs)
	}
}

func TestLoad_ManifestBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "model.onnx", []byte("onnx-bytes"))
	writeFile(t, dir, "model.onnx"+ManifestSuffix, []byte("{not json"))

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load with corrupt manifest = nil; want error")
	}
}

func TestLoad_ManifestBadDType(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "model.onnx", []byte("onnx-bytes"))
	writeFile(t, dir, "model.onnx"+ManifestSuffix,
		[]byte(`{"inputs": [{"name": "a", "dtype": "u8", "shape": [2]}]}`))

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load with unsupported manifest dtype = nil; want error")
	}
}
