package executor

import (
	"fmt"
	"sync"

	"github.com/flowglyph/agentflow/pkg/models"
)

// ParameterType is the declared type of a NodeSpec parameter (§4.1).
type ParameterType string

const (
	ParamString        ParameterType = "string"
	ParamNumber        ParameterType = "number"
	ParamBoolean       ParameterType = "boolean"
	ParamJSON          ParameterType = "json"
	ParamPromptTemplate ParameterType = "prompt_template"
	ParamSelect        ParameterType = "select"
)

// ParameterDescriptor documents one configurable field on a node type, for
// the visual editor's parameter panel.
type ParameterDescriptor struct {
	Name        string
	Type        ParameterType
	Default     any
	Min         *float64
	Max         *float64
	Options     []string
	Required    bool
	Group       string
	Description string
}

// NodeSpec is the registry's catalog entry for one node type: display
// metadata, parameter descriptors, static output ports, and the concrete
// capability that the compiler binds into the executable graph (§4.1).
type NodeSpec struct {
	NodeType    string
	Label       string
	Category    string
	Icon        string
	Color       string
	Parameters  []ParameterDescriptor
	OutputPorts []string
	Node        Node
}

// Ports returns the spec's output ports, preferring the node's dynamic
// resolver (if any) over the static list (§4.2 dynamicOutputPorts).
func (s *NodeSpec) Ports(config map[string]any) []string {
	if dp, ok := s.Node.(DynamicPorts); ok {
		return dp.DynamicOutputPorts(config)
	}
	return s.OutputPorts
}

// Registry is the process-wide, thread-safe Node Registry (§4.1). Lookup
// is O(1); registration is append-only at runtime — Register refuses to
// replace an already-registered type, matching the design note that the
// registry is a constructed value handed to the rest of the system, not
// a mutable global.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*NodeSpec
}

// NewRegistry creates an empty registry. Callers register every built-in
// (and any custom) node type during startup, then treat it as read-only.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*NodeSpec)}
}

// Register adds a node type to the catalog. It is an error to register
// the same nodeType twice — the registry only grows.
func (r *Registry) Register(spec *NodeSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if spec == nil || spec.NodeType == "" {
		return fmt.Errorf("node spec and node type are required")
	}
	if spec.Node == nil {
		return fmt.Errorf("node spec %s: capability is required", spec.NodeType)
	}
	if _, exists := r.specs[spec.NodeType]; exists {
		return fmt.Errorf("%w: %s", models.ErrNodeSpecExists, spec.NodeType)
	}
	r.specs[spec.NodeType] = spec
	return nil
}

// Get retrieves a node spec by type.
func (r *Registry) Get(nodeType string) (*NodeSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNodeSpecNotFound, nodeType)
	}
	return spec, nil
}

// Has reports whether a node type is registered.
func (r *Registry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.specs[nodeType]
	return ok
}

// List returns every registered node type.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.specs))
	for t := range r.specs {
		out = append(out, t)
	}
	return out
}
