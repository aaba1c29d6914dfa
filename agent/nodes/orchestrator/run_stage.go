package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
)

const skipReasonNoIssues = "no_issues"

// RunStage executes one plan step and folds its result into the working
// context. The refiner is skipped when the latest evaluation is clean.
func RunStage(
	ctx context.Context,
	in *GraphState,
	name contractx.StageName,
	stages contractx.Registry,
	memory contractx.Memory,
) (*GraphState, error) {
	if in == nil || in.Working == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if name == contractx.StageRefiner && !in.Working.Evaluation.HasIssues() {
		in.Meta[name] = map[string]any{"skipped": true, "reason": skipReasonNoIssues}
		return in, nil
	}

	stage, ok := stages.Stage(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownStage, name)
	}

	res, err := stage.Run(ctx, contractx.StageRequest{
		SessionID:  in.SessionID,
		Transcript: in.Transcript,
		Memory:     memory,
		Context:    in.Working,
	})
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", name, err)
	}

	if err := ApplyStageResult(in.Working, name, res.Output); err != nil {
		return nil, err
	}
	in.Meta[name] = res.Meta
	return in, nil
}
