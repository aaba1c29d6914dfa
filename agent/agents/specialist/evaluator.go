package specialist

import (
	"context"
	"strings"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
)

type evaluatorImpl struct {
	cfg Config
}

// NewEvaluator checks the working context only. It never reads memory.
func NewEvaluator(cfg Config) contractx.Stage {
	return &evaluatorImpl{cfg: cfg}
}

func (e *evaluatorImpl) Name() contractx.StageName {
	return contractx.StageEvaluator
}

func (e *evaluatorImpl) Run(ctx context.Context, req contractx.StageRequest) (contractx.StageResult, error) {
	if err := checkRequest(req); err != nil {
		return contractx.StageResult{}, err
	}

	eval := Evaluate(req.Context, e.cfg.MaxEvaluatedItems)
	audit(ctx, req, "evaluation_done", map[string]any{"issues": eval.Issues})

	return contractx.StageResult{
		Output: eval,
		Meta:   map[string]any{"issues_count": len(eval.Issues)},
	}, nil
}

// Evaluate reports issues in a fixed order: summary, key points, action items.
func Evaluate(wc *contractx.WorkingContext, maxItems int) contractx.Evaluation {
	issues := []contractx.Issue{}
	if wc.Summary != nil && strings.TrimSpace(*wc.Summary) == "" {
		issues = append(issues, contractx.Issue{Type: contractx.IssueEmptySummary})
	}
	if n := len(wc.KeyPoints); n > maxItems {
		issues = append(issues, contractx.Issue{Type: contractx.IssueTooManyKeyPoints, Count: n})
	}
	if n := len(wc.ActionItems); n > maxItems {
		issues = append(issues, contractx.Issue{Type: contractx.IssueTooManyActionItems, Count: n})
	}
	return contractx.Evaluation{Issues: issues}
}
