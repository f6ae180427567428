// Package tools maps tool names to their declared contracts and implementations.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "shopping-agent/internal/common/errors"
	"shopping-agent/internal/common/validation"
	"shopping-agent/pkg/registry"
)

// Func is a tool implementation. Inputs and outputs are JSON-shaped maps.
type Func func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)

// Tool is a registered implementation together with its compiled schemas.
type Tool struct {
	Spec   registry.ToolSpec
	Fn     Func
	input  *validation.Schema
	output *validation.Schema
}

// Registry is filled at startup and read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register binds fn to spec.ID. Both schemas, when declared, must compile.
func (r *Registry) Register(spec registry.ToolSpec, fn Func) error {
	if err := validation.ValidateToolNaming(spec.ID); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("tool %s has no implementation", spec.ID)
	}

	t := &Tool{Spec: spec, Fn: fn}
	var err error
	if len(spec.InputSchema) > 0 {
		if t.input, err = validation.Compile(spec.InputSchema); err != nil {
			return fmt.Errorf("tool %s input schema: %w", spec.ID, err)
		}
	}
	if len(spec.OutputSchema) > 0 {
		if t.output, err = validation.Compile(spec.OutputSchema); err != nil {
			return fmt.Errorf("tool %s output schema: %w", spec.ID, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[spec.ID]; exists {
		return fmt.Errorf("tool %s already registered", spec.ID)
	}
	r.tools[spec.ID] = t
	return nil
}

// RegisterFromCatalog registers fn under the catalog entry for id.
func (r *Registry) RegisterFromCatalog(catalog *registry.ToolCatalog, id string, fn Func) error {
	spec, ok := catalog.Find(id)
	if !ok {
		return fmt.Errorf("tool %s is not declared in the catalog", id)
	}
	return r.Register(*spec, fn)
}

func (r *Registry) Lookup(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, apperrors.NewToolNotFoundError(name)
	}
	return t, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke looks up name, checks input against the declared input schema, runs
// the tool and checks its output. Contract violations are SCHEMA_MISMATCH;
// errors returned by the tool itself pass through unchanged.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]interface{}) (map[string]interface{}, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := check(t.input, name, "input", input); err != nil {
		return nil, err
	}
	out, err := t.Fn(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := check(t.output, name, "output", out); err != nil {
		return nil, err
	}
	return out, nil
}

// WithTimeout bounds every call of fn by d. A non-positive d returns fn unchanged.
func WithTimeout(fn Func, d time.Duration) Func {
	if d <= 0 {
		return fn
	}
	return func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return fn(ctx, input)
	}
}

func check(schema *validation.Schema, tool, direction string, doc map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if doc == nil {
		return apperrors.NewSchemaMismatchError(tool, direction, []string{"document is null"})
	}
	result, err := schema.Validate(doc)
	if err != nil {
		return apperrors.NewSchemaMismatchError(tool, direction, []string{err.Error()})
	}
	if !result.Valid {
		return apperrors.NewSchemaMismatchError(tool, direction, result.GetErrorMessages())
	}
	return nil
}
