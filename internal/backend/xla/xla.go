// Package xla implements the XLA/PJRT (https://openxla.org/) backend for
// graphrun. It consumes serialized HLO proto and StableHLO MLIR graphs and
// delegates compilation and execution to a PJRT plugin.
//
// Import it for side effects to register it:
//
//	import _ "github.com/example/graphrun/internal/backend/xla"
package xla

import (
	"slices"

	"github.com/example/graphrun/internal/backend"
	"github.com/gomlx/gopjrt/pjrt"
	"github.com/pkg/errors"
)

// BackendName is the registry name of this backend.
const BackendName = "xla"

func init() {
	backend.Register(BackendName, New)
}

// DefaultPlugins is the list of PJRT plugins to use in preference order when
// the config string does not name one.
var DefaultPlugins = []string{"cuda", "cpu"}

// availablePluginsList caches AvailablePlugins results.
var availablePluginsList []string

// New creates an XLA backend. The config string is the PJRT plugin name (or
// an absolute path to a plugin library); empty selects the first available
// plugin in DefaultPlugins order.
func New(pluginName string, opts backend.Options) (backend.Backend, error) {
	plugins := AvailablePlugins()
	if len(plugins) == 0 {
		return nil, errors.Errorf(
			"backend %q: no PJRT plugins found -- either use the absolute path to the plugin "+
				"as the configuration or set PJRT_PLUGIN_LIBRARY_PATH to the path where to search for plugins",
			BackendName)
	}
	if pluginName == "" {
		pluginName = plugins[0]
	}

	plugin, err := pjrt.GetPlugin(pluginName)
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q: plugin %q", BackendName, pluginName)
	}
	client, err := plugin.NewClient(nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q: creating client for plugin %q", BackendName, pluginName)
	}

	b := &Backend{
		plugin:     plugin,
		client:     client,
		pluginName: pluginName,
	}
	if want := opts.DeviceCount; want > 0 && b.NumDevices() < want {
		numDevices := b.NumDevices()
		_ = b.Close()
		return nil, errors.Errorf("backend %q: plugin %q exposes %d addressable devices, %d required",
			BackendName, pluginName, numDevices, want)
	}
	return b, nil
}

// AvailablePlugins lists the PJRT plugins that can be loaded, DefaultPlugins
// first. It caches and reuses the result in future calls.
//
// Plugins are searched in the PJRT_PLUGIN_LIBRARY_PATH directory -- or
// directories, if it is a ":" separated list -- and the system's standard
// library directories otherwise.
func AvailablePlugins() []string {
	if len(availablePluginsList) > 0 {
		return availablePluginsList
	}

	found := pjrt.AvailablePlugins()
	for _, name := range DefaultPlugins {
		if _, ok := found[name]; ok {
			availablePluginsList = append(availablePluginsList, name)
			delete(found, name)
		}
	}
	remaining := make([]string, 0, len(found))
	for name := range found {
		remaining = append(remaining, name)
	}
	slices.Sort(remaining)
	availablePluginsList = append(availablePluginsList, remaining...)
	return availablePluginsList
}
