package agents

import (
	"skymarshal/internal/adapters/ai"
	"skymarshal/internal/tools"
	"skymarshal/pkg/errors"
)

// Registry holds the specialist roster in canonical order.
type Registry struct {
	invokers []Invoker
	byName   map[AgentName]Invoker
}

// NewRegistry builds the full roster: one specialist per config entry,
// each with its own scoped tool grant.
func NewRegistry(provider ai.ChatProvider, toolRegistry *tools.Registry, settings InvokerSettings) (*Registry, error) {
	configs := AgentConfigs()

	reg := &Registry{
		byName: make(map[AgentName]Invoker, len(configs)),
	}

	for _, name := range AllAgents() {
		cfg, ok := configs[name]
		if !ok {
			return nil, errors.Wrapf(errors.ErrInternal, "no config for agent %s", name)
		}

		scoped := toolRegistry.Scoped(name.String(), cfg.ToolCategories)
		specialist := NewSpecialist(cfg, provider, scoped, settings)

		reg.invokers = append(reg.invokers, specialist)
		reg.byName[name] = specialist
	}

	return reg, nil
}

// NewRegistryFromInvokers wraps prebuilt invokers, preserving order
func NewRegistryFromInvokers(invokers ...Invoker) *Registry {
	reg := &Registry{
		byName: make(map[AgentName]Invoker, len(invokers)),
	}
	for _, inv := range invokers {
		reg.invokers = append(reg.invokers, inv)
		reg.byName[inv.Name()] = inv
	}
	return reg
}

// Invokers returns the roster in registration order
func (r *Registry) Invokers() []Invoker {
	return r.invokers
}

// Get returns one invoker by name
func (r *Registry) Get(name AgentName) (Invoker, bool) {
	inv, ok := r.byName[name]
	return inv, ok
}
