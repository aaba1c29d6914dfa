package specialist

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	toolx "github.com/tanpawarit/transcript-notes/agent/tool"
)

type routerImpl struct {
	exec toolx.Executor
	cfg  Config
}

// NewRouter returns the stage that runs every text tool once and derives plan
// hints from the results. It does not run any specialist itself.
func NewRouter(exec toolx.Executor, cfg Config) contractx.Stage {
	return &routerImpl{exec: exec, cfg: cfg}
}

func (r *routerImpl) Name() contractx.StageName {
	return contractx.StageRouter
}

func (r *routerImpl) Run(ctx context.Context, req contractx.StageRequest) (contractx.StageResult, error) {
	if err := checkRequest(req); err != nil {
		return contractx.StageResult{}, err
	}

	var (
		classification contractx.Classification
		entities       contractx.EntityList
		verbs          contractx.ActionVerbs
	)
	if err := r.invoke(ctx, req, toolx.ToolClassifyTranscript, 0, &classification); err != nil {
		return contractx.StageResult{}, err
	}
	if err := r.invoke(ctx, req, toolx.ToolExtractEntities, r.cfg.MaxEntities, &entities); err != nil {
		return contractx.StageResult{}, err
	}
	if err := r.invoke(ctx, req, toolx.ToolExtractActionVerbs, r.cfg.MaxActionVerbs, &verbs); err != nil {
		return contractx.StageResult{}, err
	}

	hints := DeriveHints(classification, verbs)

	req.Memory.Put(ctx, req.SessionID, contractx.KeyClassification, classification)
	req.Memory.Put(ctx, req.SessionID, contractx.KeyEntities, entities)
	req.Memory.Put(ctx, req.SessionID, contractx.KeyActionVerbs, verbs)
	req.Memory.Put(ctx, req.SessionID, contractx.KeyPlanHints, hints)

	return contractx.StageResult{
		Output: contractx.RouterOutput{
			Classification: classification,
			Entities:       entities,
			ActionVerbs:    verbs,
			PlanHints:      hints,
		},
		Meta: map[string]any{"label": classification.Label},
	}, nil
}

// DeriveHints suggests which specialists a run should include.
func DeriveHints(c contractx.Classification, verbs contractx.ActionVerbs) contractx.PlanHints {
	return contractx.PlanHints{
		Label:             c.Label,
		PreferSummary:     true,
		PreferKeyPoints:   c.Label == "lecture" || c.Label == "meeting",
		PreferActionItems: c.Label == "meeting" || c.Label == "interview" || len(verbs.Verbs) >= 2,
	}
}

func (r *routerImpl) invoke(ctx context.Context, req contractx.StageRequest, tool string, maxItems int, dst any) error {
	args := map[string]any{"transcript": req.Transcript}
	if maxItems > 0 {
		args["max_items"] = maxItems
	}

	res, err := r.exec(ctx, tool, args)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", contractx.ErrToolFailed, tool, err)
	}
	if res.Error != "" {
		return fmt.Errorf("%w: %s: %s", contractx.ErrToolFailed, tool, res.Error)
	}

	audit(ctx, req, "tool_call", map[string]any{"tool": res.Tool, "result": res.Result})

	switch out := dst.(type) {
	case *contractx.Classification:
		v, ok := res.Result.(contractx.Classification)
		if !ok {
			return unexpectedResult(tool, res.Result)
		}
		*out = v
	case *contractx.EntityList:
		v, ok := res.Result.(contractx.EntityList)
		if !ok {
			return unexpectedResult(tool, res.Result)
		}
		*out = v
	case *contractx.ActionVerbs:
		v, ok := res.Result.(contractx.ActionVerbs)
		if !ok {
			return unexpectedResult(tool, res.Result)
		}
		*out = v
	default:
		return fmt.Errorf("%w: unsupported tool destination %T", contractx.ErrInvalidContext, dst)
	}
	return nil
}

func unexpectedResult(tool string, got any) error {
	return fmt.Errorf("%w: %s returned %T", contractx.ErrInvalidContext, tool, got)
}
