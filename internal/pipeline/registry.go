package pipeline

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Processor is anything that can be registered with the scheduler. A
// processor implements StageProcessor, ItemProcessor, or both.
type Processor interface {
	Name() string
}

// StageProcessor is invoked once per stage in registration order.
type StageProcessor interface {
	Processor
	Process(ctx context.Context, b *Build, stage Stage) error
}

// ItemProcessor is offered items during the Process stage.
type ItemProcessor interface {
	Processor
	TryProcessItem(ctx context.Context, b *Build, item *content.Item, sub SubStage) (Result, error)
}

// Registry is the explicit, host-built list of processors. Registration order
// is execution order.
type Registry struct {
	procs []Processor
	names map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register appends p. Names must be unique and p must implement at least one
// of StageProcessor or ItemProcessor.
func (r *Registry) Register(p Processor) error {
	if p == nil || p.Name() == "" {
		return errors.ConfigError("processor must have a name").Build()
	}
	if _, dup := r.names[p.Name()]; dup {
		return errors.ConfigError("duplicate processor").WithContext("processor", p.Name()).Build()
	}
	_, isStage := p.(StageProcessor)
	_, isItem := p.(ItemProcessor)
	if !isStage && !isItem {
		return errors.ConfigError("processor implements neither stage nor item processing").
			WithContext("processor", p.Name()).Build()
	}
	r.names[p.Name()] = struct{}{}
	r.procs = append(r.procs, p)
	return nil
}

// MustRegister registers every processor and panics on error. It is meant for
// static registries assembled at startup.
func (r *Registry) MustRegister(ps ...Processor) *Registry {
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Names lists processor names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.procs))
	for i, p := range r.procs {
		out[i] = p.Name()
	}
	return out
}

// Stage returns the stage processors in registration order.
func (r *Registry) Stage() []StageProcessor {
	var out []StageProcessor
	for _, p := range r.procs {
		if sp, ok := p.(StageProcessor); ok {
			out = append(out, sp)
		}
	}
	return out
}

// Items returns the item processors in registration order.
func (r *Registry) Items() []ItemProcessor {
	var out []ItemProcessor
	for _, p := range r.procs {
		if ip, ok := p.(ItemProcessor); ok {
			out = append(out, ip)
		}
	}
	return out
}
