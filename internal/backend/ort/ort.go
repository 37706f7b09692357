// Package ort implements an ONNX Runtime backend for graphrun, loading the
// runtime's shared library at run time. ONNX graphs do not expose a
// signature through this binding, so a bundle manifest is required.
//
// Import it for side effects to register it:
//
//	import _ "github.com/example/graphrun/internal/backend/ort"
package ort

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"

	"github.com/example/graphrun/internal/backend"
)

// BackendName is the registry name of this backend.
const BackendName = "ort"

// defaultAPIVersion is the ORT C API version requested from the library.
const defaultAPIVersion = 23

func init() {
	backend.Register(BackendName, New)
}

// EnvLibraryPath points at the ONNX Runtime shared library, overriding
// discovery.
const EnvLibraryPath = "GRAPHRUN_ORT_LIB"

// New creates an ONNX Runtime backend. The config string is the path to the
// ONNX Runtime shared library; empty triggers discovery via EnvLibraryPath,
// ORT_LIBRARY_PATH and well-known system locations.
func New(libraryPath string, opts backend.Options) (backend.Backend, error) {
	if want := opts.DeviceCount; want > 1 {
		return nil, fmt.Errorf("backend %q drives a single CPU device, %d required", BackendName, want)
	}
	path, err := DetectLibrary(libraryPath)
	if err != nil {
		return nil, err
	}

	runtime, err := ort.NewRuntime(path, defaultAPIVersion)
	if err != nil {
		return nil, fmt.Errorf("backend %q: load runtime %s: %w", BackendName, path, err)
	}
	env, err := runtime.NewEnv("graphrun", ort.LoggingLevelWarning)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("backend %q: create environment: %w", BackendName, err)
	}

	return &Backend{
		libraryPath: path,
		runtime:     runtime,
		env:         env,
	}, nil
}

// DetectLibrary resolves the ONNX Runtime shared library path: explicit
// path, then environment variables, then well-known locations.
func DetectLibrary(path string) (string, error) {
	if path == "" {
		path = os.Getenv(EnvLibraryPath)
	}
	if path == "" {
		path = os.Getenv("ORT_LIBRARY_PATH")
	}
	if path == "" {
		candidates := []string{
			"/usr/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
			"/opt/homebrew/lib/libonnxruntime.dylib",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}
	if path == "" {
		return "", errors.New("unable to detect ONNX Runtime library path; set " + EnvLibraryPath)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("onnx runtime library path check failed: %w", err)
	}
	return path, nil
}

// Info describes a detected ONNX Runtime installation.
type Info struct {
	LibraryPath string
	Version     string
}

var versionPattern = regexp.MustCompile(`([0-9]+\.[0-9]+\.[0-9]+)`)

// Detect resolves the shared library and reports its version. The version
// comes from the version argument, the ORT_VERSION environment variable or
// the library file name, in that order; "unknown" when none applies.
func Detect(libraryPath, version string) (Info, error) {
	path, err := DetectLibrary(libraryPath)
	if err != nil {
		return Info{LibraryPath: "not found", Version: "unknown"}, err
	}
	if version == "" {
		version = os.Getenv("ORT_VERSION")
	}
	if version == "" {
		version = inferVersionFromPath(path)
	}
	if version == "" {
		version = "unknown"
	}
	return Info{LibraryPath: path, Version: version}, nil
}

func inferVersionFromPath(path string) string {
	if m := versionPattern.FindStringSubmatch(filepath.Base(path)); len(m) == 2 {
		return m[1]
	}
	return ""
}

// Backend implements backend.Backend over an ONNX Runtime environment.
type Backend struct {
	libraryPath string
	runtime     *ort.Runtime
	env         *ort.Env
}

// Name returns "ort".
func (b *Backend) Name() string { return BackendName }

// Description describes the loaded runtime library.
func (b *Backend) Description() string {
	return fmt.Sprintf("%s - ONNX Runtime (%s)", BackendName, b.libraryPath)
}

// NumDevices returns 1: the binding drives a single CPU device.
func (b *Backend) NumDevices() int { return 1 }

// Close releases the ORT environment and runtime. Safe to call more than once.
func (b *Backend) Close() error {
	if b.env != nil {
		b.env.Close()
		b.env = nil
	}
	if b.runtime != nil {
		err := b.runtime.Close()
		b.runtime = nil
		if err != nil {
			return fmt.Errorf("backend %q: close runtime: %w", BackendName, err)
		}
	}
	return nil
}
