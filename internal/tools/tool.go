package tools

import (
	"context"
	"encoding/json"

	"skymarshal/pkg/errors"
)

// Tool represents a callable capability exposed to agents.
type Tool interface {
	// Name returns the unique tool identifier.
	Name() string
	// Definition returns the tool's metadata and parameter schema.
	Definition() Definition
	// Execute performs the tool's action using JSON-encoded arguments.
	Execute(ctx context.Context, args json.RawMessage) (interface{}, error)
}

// Definition describes a tool's metadata for registration, agent grants,
// and model-facing function declarations.
type Definition struct {
	Name        string
	Description string
	Category    string
	// Parameters is the JSON schema of the tool's arguments, passed to the
	// model as a function declaration.
	Parameters map[string]interface{}
}

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (interface{}, error)

// FunctionTool is a simple Tool implementation backed by a handler function.
type FunctionTool struct {
	def     Definition
	handler HandlerFunc
}

// New creates a new function-backed Tool.
func New(def Definition, handler HandlerFunc) Tool {
	return &FunctionTool{
		def:     def,
		handler: handler,
	}
}

// Name returns the tool identifier.
func (t *FunctionTool) Name() string { return t.def.Name }

// Definition returns the tool metadata.
func (t *FunctionTool) Definition() Definition { return t.def }

// Execute runs the underlying handler.
func (t *FunctionTool) Execute(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if t.handler == nil {
		return nil, errors.New("tool handler is not defined")
	}

	return t.handler(ctx, args)
}

// objectSchema builds a JSON schema for an object with the given properties.
// Keys listed in required must all be present in props.
func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}
