package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	nodex "github.com/tanpawarit/transcript-notes/agent/nodes/orchestrator"
)

type node struct {
	name string
	run  func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error)
}

type pipeline struct {
	nodes    []node
	finalize func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error)
}

// pipeline wires the run: route, plan, execute the plan, finalize.
func (o *Orchestrator) pipeline() pipeline {
	return pipeline{
		nodes: []node{
			{name: "route", run: func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
				return nodex.RunStage(ctx, in, contractx.StageRouter, o.stages, o.memory)
			}},
			{name: "build_plan", run: func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
				return nodex.BuildPlan(ctx, in, o.memory)
			}},
			{name: "execute_plan", run: o.executePlan},
		},
		finalize: func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Finalize(ctx, in, o.memory)
		},
	}
}

func (p pipeline) invoke(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
	var err error
	for _, n := range p.nodes {
		if in, err = n.run(ctx, in); err != nil {
			return nodex.GraphOutput{}, fmt.Errorf("node %s: %w", n.name, err)
		}
	}
	out, err := p.finalize(ctx, in)
	if err != nil {
		return nodex.GraphOutput{}, fmt.Errorf("node finalize: %w", err)
	}
	return out, nil
}

// executePlan runs every step after the router, which has already executed.
func (o *Orchestrator) executePlan(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
	logger := zerolog.Ctx(ctx)
	for i, name := range in.Plan {
		if i == 0 && name == contractx.StageRouter {
			continue
		}
		var err error
		if in, err = nodex.RunStage(ctx, in, name, o.stages, o.memory); err != nil {
			return nil, err
		}
		logger.Debug().Str("stage", string(name)).Int("step", i).Interface("meta", in.Meta[name]).Msg("stage done")
	}
	return in, nil
}
