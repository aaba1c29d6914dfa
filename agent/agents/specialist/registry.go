package specialist

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	toolx "github.com/tanpawarit/transcript-notes/agent/tool"
)

type registryImpl struct {
	stages map[contractx.StageName]contractx.Stage
}

func (r *registryImpl) Stage(name contractx.StageName) (contractx.Stage, bool) {
	s, ok := r.stages[name]
	return s, ok
}

type RegistryOption func(*registryImpl)

// WithStage registers s under its own name, replacing any default.
func WithStage(s contractx.Stage) RegistryOption {
	return func(r *registryImpl) {
		if s != nil {
			r.stages[s.Name()] = s
		}
	}
}

func WithoutStage(name contractx.StageName) RegistryOption {
	return func(r *registryImpl) {
		delete(r.stages, name)
	}
}

// NewRegistry wires the six default stages over tk.
func NewRegistry(tk *toolx.Toolkit, cfg Config, opts ...RegistryOption) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tk == nil {
		return nil, fmt.Errorf("%w: toolkit is required", contractx.ErrValidation)
	}

	lex := tk.Lexicon()
	r := &registryImpl{stages: make(map[contractx.StageName]contractx.Stage, 6)}
	for _, s := range []contractx.Stage{
		NewRouter(toolx.NewExecutor(tk), cfg),
		NewSummary(),
		NewKeyPoints(lex.KeyPointKeywords, cfg),
		NewActionItems(lex.ActionItemVerbs, cfg),
		NewEvaluator(cfg),
		NewRefiner(cfg),
	} {
		r.stages[s.Name()] = s
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

func checkRequest(req contractx.StageRequest) error {
	if req.Memory == nil {
		return fmt.Errorf("%w: stage request has no memory", contractx.ErrInvalidContext)
	}
	if req.Context == nil {
		return fmt.Errorf("%w: stage request has no working context", contractx.ErrInvalidContext)
	}
	return nil
}

func audit(ctx context.Context, req contractx.StageRequest, eventType string, payload map[string]any) {
	// Persistence faults are already logged by memory; the cache is authoritative.
	_ = req.Memory.AddEvent(ctx, req.SessionID, eventType, payload)
}
