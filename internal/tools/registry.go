package tools

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"skymarshal/internal/adapters/ai"
	"skymarshal/pkg/errors"
	"skymarshal/pkg/logger"
)

// Registry holds all registered tools, indexed by name and category.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]Tool
	byCategory map[string][]string
	log        *logger.Logger
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]Tool),
		byCategory: make(map[string][]string),
		log:        logger.Get().With("component", "tool_registry"),
	}
}

// Register adds a tool to the registry. Registering a duplicate name is
// a programming error and fails loudly.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return errors.Wrapf(errors.ErrInvalidInput, "tool %s already registered", name)
	}

	r.tools[name] = t
	cat := t.Definition().Category
	r.byCategory[cat] = append(r.byCategory[cat], name)
	sort.Strings(r.byCategory[cat])

	return nil
}

// Get returns a tool by name
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "tool %s", name)
	}
	return t, nil
}

// Names returns all registered tool names sorted alphabetically
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scoped returns a view of the registry restricted to the given categories.
// Agents only ever see scoped views; the full registry is wiring-time only.
func (r *Registry) Scoped(agentName string, categories []string) *ScopedRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	allowed := make(map[string]bool)
	for _, cat := range categories {
		for _, name := range r.byCategory[cat] {
			allowed[name] = true
		}
	}

	return &ScopedRegistry{
		registry:  r,
		agentName: agentName,
		allowed:   allowed,
	}
}

// ScopedRegistry is a per-agent view of the registry that enforces
// category grants at execution time.
type ScopedRegistry struct {
	registry  *Registry
	agentName string
	allowed   map[string]bool
}

// Definitions returns the model-facing declarations of all granted tools,
// sorted by name for deterministic prompt construction.
func (s *ScopedRegistry) Definitions() []ai.ToolDefinition {
	names := make([]string, 0, len(s.allowed))
	for name := range s.allowed {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]ai.ToolDefinition, 0, len(names))
	for _, name := range names {
		t, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		def := t.Definition()
		defs = append(defs, ai.ToolDefinition{
			Type: "function",
			Function: ai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return defs
}

// Execute runs a granted tool. Calls to tools outside the agent's grant
// fail with ErrToolAccessDenied and never reach the handler.
func (s *ScopedRegistry) Execute(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if !s.allowed[name] {
		s.registry.log.Warnw("Tool call outside grant rejected",
			"agent", s.agentName,
			"tool", name,
		)
		return nil, errors.Wrapf(errors.ErrToolAccessDenied, "agent %s is not granted tool %s", s.agentName, name)
	}

	t, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	return t.Execute(ctx, args)
}

// Has reports whether a tool is within this scope's grant
func (s *ScopedRegistry) Has(name string) bool {
	return s.allowed[name]
}
