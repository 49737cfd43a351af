package functions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/orneryd/cypherfn/pkg/ast"
	"github.com/orneryd/cypherfn/pkg/value"
)

// Descriptor describes a registered function.
type Descriptor struct {
	Name        string         // Canonical name (e.g., "toInteger")
	Category    string         // Category (e.g., "conversion")
	Signature   string         // Cypher signature shown by SHOW FUNCTIONS
	Description string         // Human-readable description
	Function    ScalarFunction // The implementation
	Enabled     bool
}

// Registry maps case-insensitive function names to implementations.
//
// Cypher function names are case-insensitive, so "toInteger", "TOINTEGER"
// and "tointeger" all resolve to the same descriptor. Errors raised by the
// function still carry the name as written at the call site.
//
// Registry is safe for concurrent use. Registration normally happens once at
// startup; Invoke takes a read lock only for the lookup.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{functions: make(map[string]*Descriptor)}
}

// DefaultRegistry returns a registry holding the integer conversion family:
// toInteger, its toInt alias, toIntegerOrNull and toIntegerList.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range []Descriptor{
		{
			Name:        "toInteger",
			Category:    "conversion",
			Signature:   "toInteger(input :: ANY) :: INTEGER",
			Description: "Converts a value to an integer; fails for unsupported types",
			Function:    ToInteger{},
		},
		{
			Name:        "toInt",
			Category:    "conversion",
			Signature:   "toInt(input :: ANY) :: INTEGER",
			Description: "Alias of toInteger",
			Function:    ToInteger{},
		},
		{
			Name:        "toIntegerOrNull",
			Category:    "conversion",
			Signature:   "toIntegerOrNull(input :: ANY) :: INTEGER",
			Description: "Converts a value to an integer; returns null for unsupported types",
			Function:    ToIntegerOrNull{},
		},
		{
			Name:        "toIntegerList",
			Category:    "conversion",
			Signature:   "toIntegerList(input :: LIST<ANY>) :: LIST<INTEGER>",
			Description: "Converts each list element to an integer or null",
			Function:    ToIntegerList{},
		},
	} {
		desc := d
		desc.Enabled = true
		r.functions[strings.ToLower(desc.Name)] = &desc
	}
	return r
}

// Register adds a function. The name must not already be registered under
// any letter case.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" || d.Function == nil {
		return fmt.Errorf("functions: descriptor needs a name and a function")
	}
	key := strings.ToLower(d.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, d.Name)
	}
	desc := d
	r.functions[key] = &desc
	return nil
}

// Get returns a copy of the descriptor for name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.functions[strings.ToLower(name)]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// SetEnabled turns a function on or off. Disabled functions stay listed but
// Invoke refuses them.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.functions[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	d.Enabled = enabled
	return nil
}

// ApplyOverrides applies name → enabled overrides, typically from config.
// Unknown names are reported together after all known ones are applied.
func (r *Registry) ApplyOverrides(overrides map[string]bool) error {
	var unknown []string
	for name, enabled := range overrides {
		if err := r.SetEnabled(name, enabled); err != nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownFunction, strings.Join(unknown, ", "))
	}
	return nil
}

// List returns all descriptors sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.functions))
	for _, d := range r.functions {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup resolves name to an enabled function.
func (r *Registry) Lookup(name string) (ScalarFunction, error) {
	r.mu.RLock()
	d, ok := r.functions[strings.ToLower(name)]
	var (
		fn      ScalarFunction
		enabled bool
	)
	if ok {
		fn, enabled = d.Function, d.Enabled
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if !enabled {
		return nil, fmt.Errorf("%w: %s", ErrFunctionDisabled, name)
	}
	return fn, nil
}

// Invoke dispatches a call to the function named by expr.Name.
//
// Example:
//
//	v, err := reg.Invoke(ctx, evalCtx, ast.NewFunctionCall("TOINTEGERORNULL"),
//		[]value.Value{value.NewString("12")})
//	// v == INTEGER 12
func (r *Registry) Invoke(ctx context.Context, evalCtx *EvaluationContext, expr *ast.FunctionCall, args []value.Value) (value.Value, error) {
	if expr == nil {
		return value.NewNull(), fmt.Errorf("%w: missing call expression", ErrUnknownFunction)
	}
	fn, err := r.Lookup(expr.Name)
	if err != nil {
		return value.NewNull(), err
	}
	return fn.Call(ctx, evalCtx, expr, args)
}
