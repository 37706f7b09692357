// Package backend defines the device-client contract graphrun consumes:
// acquire a client, compile a loaded graph against it, execute the compiled
// executable. Implementations register themselves by name; the heavy
// runtimes stay behind this interface so the runner's control flow can be
// exercised without them.
package backend

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/literal"
)

// Backend is a handle to one or more compute devices able to compile and
// execute graphs. A backend owns native resources; Close must be called on
// every exit path.
type Backend interface {
	// Name returns the registered short name, e.g. "xla".
	Name() string

	// Description is a longer human-readable description for diagnostics.
	Description() string

	// NumDevices returns the number of addressable devices.
	NumDevices() int

	// Compile builds an executable for this backend from the loaded graph.
	// The executable is valid only for the backend instance that compiled it.
	Compile(ctx context.Context, bundle *graphio.Bundle, opts CompileOptions) (Executable, error)

	// Close releases all associated resources. The backend and any
	// executable it compiled are invalid afterwards.
	Close() error
}

// Executable is a compiled program ready to run.
type Executable interface {
	// Name returns the graph name the executable was compiled from.
	Name() string

	// Inputs returns the parameter signature in positional order, or nil if
	// the backend cannot introspect it and no manifest declared it.
	Inputs() []graphio.Node

	// Outputs returns the output signature, or nil if unknown.
	Outputs() []graphio.Node

	// Execute runs the program synchronously, blocking until completion.
	// The number, shapes and dtypes of inputs must match Inputs when known.
	Execute(ctx context.Context, inputs []*literal.Literal) ([]*literal.Literal, error)

	// Finalize releases resources associated with the executable.
	// Safe to call more than once.
	Finalize()
}

// CompileOptions carries the compilation configuration. Defaults only: no
// sharding, no autotuning overrides.
type CompileOptions struct {
	// DeviceNum is the device the executable will run on.
	DeviceNum int
}

// Options carries client-acquisition configuration shared by all backends.
type Options struct {
	// DeviceCount is the number of devices the client must expose.
	// Zero means 1.
	DeviceCount int
}

// Constructor builds a backend from a backend-specific config string.
type Constructor func(config string, opts Options) (Backend, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register makes a backend constructor available under name. Call from the
// implementing package's init.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// EnvBackend is the environment variable holding the default backend
// configuration, formatted "<backend_name>:<backend_config>".
const EnvBackend = "GRAPHRUN_BACKEND"

// DefaultConfig is used by New when EnvBackend is unset.
var DefaultConfig string

// New builds the default backend: EnvBackend if set, else DefaultConfig,
// else the first registered backend with an empty config.
func New(opts Options) (Backend, error) {
	if config, found := os.LookupEnv(EnvBackend); found {
		return NewWithConfig(config, opts)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig, opts)
	}
	return NewWithConfig("", opts)
}

// NewWithConfig builds a backend from a "<backend_name>:<backend_config>"
// string. An empty name selects the first registered backend.
func NewWithConfig(config string, opts Options) (Backend, error) {
	if len(registeredConstructors) == 0 {
		return nil, fmt.Errorf("no backends registered; import a backend package such as internal/backend/interp")
	}
	name := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		name = config[:idx]
		backendConfig = config[idx+1:]
	} else if config != "" {
		name = config
		backendConfig = ""
	}
	constructor, found := registeredConstructors[name]
	if !found {
		return nil, fmt.Errorf("backend %q not registered (available: %s)", name, strings.Join(Names(), ", "))
	}
	return constructor(backendConfig, opts)
}

// ForFormat returns the preferred backend name for a graph format.
func ForFormat(format graphio.Format) string {
	switch format {
	case graphio.FormatText:
		return "interp"
	case graphio.FormatONNX:
		return "ort"
	default:
		return "xla"
	}
}

// Names lists the registered backend names.
func Names() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
