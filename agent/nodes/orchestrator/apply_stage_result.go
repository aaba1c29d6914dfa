package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
)

// ApplyStageResult writes the fields a stage owns into wc. An output whose
// shape does not belong to the named stage is a wiring defect.
func ApplyStageResult(wc *contractx.WorkingContext, name contractx.StageName, output any) error {
	if wc == nil {
		return fmt.Errorf("%w: working context is nil", contractx.ErrInvalidContext)
	}

	switch name {
	case contractx.StageRouter:
		out, ok := output.(contractx.RouterOutput)
		if !ok {
			return mismatch(name, output)
		}
		wc.Classification = &out.Classification
		wc.Entities = &out.Entities
		wc.ActionVerbs = &out.ActionVerbs
		wc.PlanHints = &out.PlanHints

	case contractx.StageSummary:
		out, ok := output.(contractx.SummaryOutput)
		if !ok {
			return mismatch(name, output)
		}
		wc.Summary = &out.Summary

	case contractx.StageKeyPoints:
		out, ok := output.(contractx.ListOutput)
		if !ok {
			return mismatch(name, output)
		}
		wc.KeyPoints = out.Items

	case contractx.StageActionItems:
		out, ok := output.(contractx.ListOutput)
		if !ok {
			return mismatch(name, output)
		}
		wc.ActionItems = out.Items

	case contractx.StageEvaluator:
		out, ok := output.(contractx.Evaluation)
		if !ok {
			return mismatch(name, output)
		}
		wc.Evaluation = &out

	case contractx.StageRefiner:
		out, ok := output.(contractx.RefinerOutput)
		if !ok {
			return mismatch(name, output)
		}
		if out.Summary != nil {
			wc.Summary = out.Summary
		}
		wc.KeyPoints = out.KeyPoints
		wc.ActionItems = out.ActionItems

	default:
		return fmt.Errorf("%w: %q", contractx.ErrUnknownStage, name)
	}
	return nil
}

func mismatch(name contractx.StageName, output any) error {
	return fmt.Errorf("%w: stage %s returned %T", contractx.ErrInvalidContext, name, output)
}
