package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
)

// Finalize assembles the run result from the working context, per-stage meta
// and a snapshot of the session memory. The result is degraded only when a
// persistence fault happened during this run.
func Finalize(ctx context.Context, in *GraphState, memory contractx.Memory) (GraphOutput, error) {
	if in == nil || in.Working == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	wc := in.Working
	out := GraphOutput{
		SessionID:   in.SessionID,
		RunID:       in.RunID,
		Plan:        in.Plan.Strings(),
		Summary:     wc.Summary,
		KeyPoints:   nonNil(wc.KeyPoints),
		ActionItems: nonNil(wc.ActionItems),
		Evaluation:  wc.Evaluation,
		AgentMeta:   in.Meta,
		Memory:      memory.Snapshot(ctx, in.SessionID),
		Degraded:    memory.Status(in.SessionID).Faults > in.FaultsBefore,
	}
	return out, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
