package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/hirepipe/interviewflow/backend/converter"
	"github.com/hirepipe/interviewflow/backend/payload"
	"github.com/hirepipe/interviewflow/workflow"
)

// WorkflowFunc is the payload-level shape every registered workflow is
// adapted to. Conversion to and from typed inputs happens in the generic
// registration adapters.
type WorkflowFunc func(ctx *workflow.Context, c converter.Converter, input payload.Payload) (payload.Payload, error)

// ActivityFunc is the payload-level shape every registered activity is
// adapted to.
type ActivityFunc func(ctx context.Context, c converter.Converter, input payload.Payload) (payload.Payload, error)

type Registry struct {
	mu sync.Mutex

	workflows  map[string]WorkflowFunc
	activities map[string]ActivityFunc
}

// New creates a new registry instance.
func New() *Registry {
	return &Registry{
		workflows:  make(map[string]WorkflowFunc),
		activities: make(map[string]ActivityFunc),
	}
}

func (r *Registry) addWorkflow(name string, fn WorkflowFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workflows[name]; ok {
		return fmt.Errorf("workflow %q already registered", name)
	}

	r.workflows[name] = fn

	return nil
}

func (r *Registry) addActivity(name string, fn ActivityFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.activities[name]; ok {
		return fmt.Errorf("activity %q already registered", name)
	}

	r.activities[name] = fn

	return nil
}

func (r *Registry) GetWorkflow(name string) (WorkflowFunc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.workflows[name]
	if !ok {
		return nil, fmt.Errorf("workflow %q not registered", name)
	}

	return fn, nil
}

func (r *Registry) GetActivity(name string) (ActivityFunc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.activities[name]
	if !ok {
		return nil, fmt.Errorf("activity %q not registered", name)
	}

	return fn, nil
}

// RegisterWorkflow registers a typed workflow function under the given name.
func RegisterWorkflow[TInput, TResult any](r *Registry, name string, fn func(ctx *workflow.Context, input TInput) (TResult, error)) error {
	return r.addWorkflow(name, func(ctx *workflow.Context, c converter.Converter, input payload.Payload) (payload.Payload, error) {
		var in TInput
		if len(input) > 0 {
			if err := c.From(input, &in); err != nil {
				return nil, fmt.Errorf("converting workflow input: %w", err)
			}
		}

		result, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}

		out, err := c.To(result)
		if err != nil {
			return nil, fmt.Errorf("converting workflow result: %w", err)
		}

		return out, nil
	})
}

// RegisterActivity registers a typed activity function under the given name.
func RegisterActivity[TInput, TResult any](r *Registry, name string, fn func(ctx context.Context, input TInput) (TResult, error)) error {
	return r.addActivity(name, func(ctx context.Context, c converter.Converter, input payload.Payload) (payload.Payload, error) {
		var in TInput
		if len(input) > 0 {
			if err := c.From(input, &in); err != nil {
				return nil, fmt.Errorf("converting activity input: %w", err)
			}
		}

		result, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}

		out, err := c.To(result)
		if err != nil {
			return nil, fmt.Errorf("converting activity result: %w", err)
		}

		return out, nil
	})
}
