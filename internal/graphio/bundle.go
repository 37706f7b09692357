// Package graphio loads serialized computation graphs from disk.
//
// Graph bytes are an opaque, versioned contract owned by the external
// runtime: graphio detects the container format and hands the bytes through
// untouched. The one structure it does understand is the optional JSON
// sidecar manifest declaring the graph's parameter and output signature.
package graphio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies the container format of a serialized graph.
type Format int

const (
	FormatUnknown Format = iota
	// FormatText is the tiny line-oriented instruction set understood by the
	// interp backend.
	FormatText
	// FormatHLOProto is a serialized XLA HloModuleProto.
	FormatHLOProto
	// FormatStableHLO is StableHLO MLIR (text or bytecode).
	FormatStableHLO
	// FormatONNX is an ONNX model file.
	FormatONNX
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatHLOProto:
		return "hlo"
	case FormatStableHLO:
		return "stablehlo"
	case FormatONNX:
		return "onnx"
	}
	return "unknown"
}

// Bundle is a loaded graph: the raw bytes, the detected format, and the
// optional sidecar manifest. Immutable once loaded.
type Bundle struct {
	Path     string
	Name     string
	Format   Format
	Data     []byte
	Manifest *Manifest
}

// Load reads the graph file at path, detects its format and loads the
// sidecar manifest if one exists next to it.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("graph file %s is empty", path)
	}

	format := DetectFormat(path, data)
	if format == FormatUnknown {
		return nil, fmt.Errorf("graph file %s: unrecognized format", path)
	}

	manifest, err := loadManifest(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if manifest != nil && manifest.Name != "" {
		name = manifest.Name
	}

	return &Bundle{
		Path:     path,
		Name:     name,
		Format:   format,
		Data:     data,
		Manifest: manifest,
	}, nil
}

// mlirBytecodeMagic is the prefix of MLIR bytecode files.
var mlirBytecodeMagic = []byte{'M', 'L', 0xef, 'R'}

// DetectFormat decides the container format from the file extension, falling
// back to content sniffing for extension-less files.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".graph", ".txt":
		return FormatText
	case ".onnx":
		return FormatONNX
	case ".mlir", ".stablehlo":
		return FormatStableHLO
	case ".pb", ".hlo", ".pbtxt":
		return FormatHLOProto
	}

	if bytes.HasPrefix(data, []byte("graph ")) {
		return FormatText
	}
	if bytes.HasPrefix(data, mlirBytecodeMagic) {
		return FormatStableHLO
	}
	if head := string(data[:min(len(data), 4096)]); strings.Contains(head, "module") &&
		(strings.Contains(head, "func.func") || strings.Contains(head, "stablehlo.")) {
		return FormatStableHLO
	}
	return FormatUnknown
}

// SizeBytes returns the size of the serialized graph.
func (b *Bundle) SizeBytes() int { return len(b.Data) }
