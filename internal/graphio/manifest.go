package graphio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/example/graphrun/internal/literal"
)

// ManifestSuffix is appended to the graph path to locate the sidecar
// manifest, e.g. "model.onnx" -> "model.onnx.manifest.json".
const ManifestSuffix = ".manifest.json"

// NodeInfo declares one parameter or output of a graph.
type NodeInfo struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
}

// Manifest is the optional sidecar signature declaration for graph formats
// whose signature cannot be introspected by the client.
type Manifest struct {
	Name    string     `json:"name"`
	Inputs  []NodeInfo `json:"inputs"`
	Outputs []NodeInfo `json:"outputs"`
}

// Node is a resolved signature entry: a named shape.
type Node struct {
	Name  string
	Shape literal.Shape
}

func loadManifest(graphPath string) (*Manifest, error) {
	path := graphPath + ManifestSuffix
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read graph manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode graph manifest %s: %w", path, err)
	}
	// Resolve eagerly so a bad manifest fails at load time, not mid-run.
	if _, err := resolveNodes(m.Inputs); err != nil {
		return nil, fmt.Errorf("graph manifest %s: inputs: %w", path, err)
	}
	if _, err := resolveNodes(m.Outputs); err != nil {
		return nil, fmt.Errorf("graph manifest %s: outputs: %w", path, err)
	}
	return &m, nil
}

// InputNodes resolves the declared parameter signature.
func (m *Manifest) InputNodes() []Node {
	nodes, _ := resolveNodes(m.Inputs)
	return nodes
}

// OutputNodes resolves the declared output signature.
func (m *Manifest) OutputNodes() []Node {
	nodes, _ := resolveNodes(m.Outputs)
	return nodes
}

func resolveNodes(infos []NodeInfo) ([]Node, error) {
	nodes := make([]Node, 0, len(infos))
	for i, info := range infos {
		dtype, err := literal.ParseDType(info.DType)
		if err != nil {
			return nil, fmt.Errorf("node %d (%q): %w", i, info.Name, err)
		}
		shape := literal.MakeShape(dtype, info.Shape...)
		if err := shape.Check(); err != nil {
			return nil, fmt.Errorf("node %d (%q): %w", i, info.Name, err)
		}
		nodes = append(nodes, Node{Name: info.Name, Shape: shape})
	}
	return nodes, nil
}
