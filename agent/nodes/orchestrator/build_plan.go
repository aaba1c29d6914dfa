package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
)

// BuildPlan fixes the stage order for the run once the router has produced
// plan hints, and records it as a plan_created event.
func BuildPlan(ctx context.Context, in *GraphState, memory contractx.Memory) (*GraphState, error) {
	if in == nil || in.Working == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	var hints contractx.PlanHints
	if in.Working.PlanHints != nil {
		hints = *in.Working.PlanHints
	}
	in.Plan = PlanFor(in.Flags, hints)

	memory.AddEvent(ctx, in.SessionID, "plan_created", map[string]any{
		"plan":   in.Plan.Strings(),
		"run_id": in.RunID,
	})
	return in, nil
}

// PlanFor starts with the router, adds each specialist the caller or the hints
// asked for, and ends with evaluator, refiner, evaluator.
func PlanFor(flags Flags, hints contractx.PlanHints) contractx.Plan {
	plan := contractx.Plan{contractx.StageRouter}
	if flags.Summary || hints.PreferSummary {
		plan = append(plan, contractx.StageSummary)
	}
	if flags.KeyPoints || hints.PreferKeyPoints {
		plan = append(plan, contractx.StageKeyPoints)
	}
	if flags.ActionItems || hints.PreferActionItems {
		plan = append(plan, contractx.StageActionItems)
	}
	return append(plan, contractx.StageEvaluator, contractx.StageRefiner, contractx.StageEvaluator)
}
