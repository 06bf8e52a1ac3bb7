// Package tools is the registry of capability backends exposed to the
// language capability as named, schema-typed operations.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caresbot/caresbot/internal/core"
)

// Param describes one argument of a tool.
type Param struct {
	Type        string // "string", "integer", "number", "boolean", "array"
	Description string
	Required    bool
	Enum        []string
	Items       string // element type when Type is "array"
}

// Request carries a validated invocation to a handler. CustomerID is the
// session's bound identity, supplied by the orchestrator. Handlers must use
// it for scoping and never any identity found in Args.
type Request struct {
	Args       map[string]interface{}
	CustomerID string
}

// Result is a backend response. Normalized is the natural-language-safe text
// handed back to the model; Raw is kept only for the tool trace, it never
// reaches the caller of Invoke's consumer.
type Result struct {
	Normalized string
	Raw        string
}

// Handler executes a tool against its backend.
type Handler func(ctx context.Context, req Request) (Result, error)

// Descriptor is one registered tool: unique name, argument schema,
// capability class, and the invocation function.
type Descriptor struct {
	Name        string
	Description string
	Capability  string // core.CapStructuredQuery, core.CapSemanticRetrieval, ...
	Params      map[string]Param
	ReadOnly    bool // read-only calls may retry once on backend unavailability
	Handler     Handler
}

// Registry maps tool names to descriptors. It is populated at startup and
// read-only afterward, so lookups need no locking.
type Registry struct {
	descriptors map[string]*Descriptor
	order       []string
	timeout     time.Duration
	logger      *log.Logger
	sealed      bool
}

// NewRegistry creates a registry whose invocations are bounded by timeout.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
		timeout:     timeout,
		logger:      log.New(log.Writer(), "[TOOLS] ", log.LstdFlags),
	}
}

// Register adds a descriptor. Fails with ErrDuplicateTool if the name is
// taken. Must happen before Seal.
func (r *Registry) Register(d *Descriptor) error {
	if r.sealed {
		return fmt.Errorf("registry sealed; cannot register %q", d.Name)
	}
	if d.Name == "" || d.Handler == nil {
		return fmt.Errorf("descriptor needs a name and a handler")
	}
	if _, exists := r.descriptors[d.Name]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateTool, d.Name)
	}
	r.descriptors[d.Name] = d
	r.order = append(r.order, d.Name)
	r.logger.Printf("registered tool %q (%s)", d.Name, d.Capability)
	return nil
}

// Seal freezes the registry. Startup calls it once wiring is done.
func (r *Registry) Seal() { r.sealed = true }

// Resolve returns the descriptor for name.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownTool, name)
	}
	return d, nil
}

// Definitions renders the registry as model-facing tool definitions, in
// registration order.
func (r *Registry) Definitions() []core.ToolDefinition {
	defs := make([]core.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		d := r.descriptors[name]
		defs = append(defs, core.ToolDefinition{
			Type: "function",
			Function: core.FunctionSpec{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  schemaFor(d.Params),
			},
		})
	}
	return defs
}

// Invoke validates argsJSON against the descriptor, then runs the handler
// under the registry timeout. Structured-query handlers perform the policy
// validation step before touching their backend; identity scoping comes from
// customerID, never from the arguments. Read-only tools retry once with
// backoff when the backend is unavailable.
func (r *Registry) Invoke(ctx context.Context, name, argsJSON, customerID string) (Result, error) {
	d, err := r.Resolve(name)
	if err != nil {
		return Result{}, err
	}
	args, err := validateArgs(d, argsJSON)
	if err != nil {
		return Result{}, err
	}
	req := Request{Args: args, CustomerID: customerID}

	res, err := r.invokeOnce(ctx, d, req)
	if err != nil && d.ReadOnly && errors.Is(err, core.ErrBackendUnavailable) {
		r.logger.Printf("tool %q backend unavailable, retrying once", name)
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("%w: %s", core.ErrToolTimeout, name)
		case <-time.After(500 * time.Millisecond):
		}
		res, err = r.invokeOnce(ctx, d, req)
	}
	return res, err
}

func (r *Registry) invokeOnce(ctx context.Context, d *Descriptor, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := d.Handler(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
			return Result{}, fmt.Errorf("%w: %s", core.ErrToolTimeout, d.Name)
		}
		return Result{}, err
	}
	return res, nil
}

// schemaFor renders params as a JSON Schema object for the model.
func schemaFor(params map[string]Param) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	var required []string
	for name, p := range params {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Type == "array" {
			item := p.Items
			if item == "" {
				item = "string"
			}
			prop["items"] = map[string]interface{}{"type": item}
		}
		properties[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
