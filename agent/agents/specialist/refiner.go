package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	toolx "github.com/tanpawarit/transcript-notes/agent/tool"
)

const (
	CorrectionFilledSummary   = "refiner_filled_summary"
	CorrectionTrimKeyPoints   = "refiner_trim_key_points"
	CorrectionTrimActionItems = "refiner_trim_action_items"
	CorrectionEntityContext   = "refiner_entity_context_added"
)

type refinerImpl struct {
	cfg Config
}

// NewRefiner applies one fix per recognized issue from the latest evaluation,
// then anchors the summary to the leading entities held in memory.
func NewRefiner(cfg Config) contractx.Stage {
	return &refinerImpl{cfg: cfg}
}

func (r *refinerImpl) Name() contractx.StageName {
	return contractx.StageRefiner
}

func (r *refinerImpl) Run(ctx context.Context, req contractx.StageRequest) (contractx.StageResult, error) {
	if err := checkRequest(req); err != nil {
		return contractx.StageResult{}, err
	}

	wc := req.Context
	out := contractx.RefinerOutput{
		KeyPoints:   cloneItems(wc.KeyPoints),
		ActionItems: cloneItems(wc.ActionItems),
		Applied:     []contractx.Correction{},
	}
	if wc.Summary != nil {
		s := strings.TrimSpace(*wc.Summary)
		out.Summary = &s
	}

	var issues []contractx.Issue
	if wc.Evaluation != nil {
		issues = wc.Evaluation.Issues
	}
	for _, issue := range issues {
		switch issue.Type {
		case contractx.IssueEmptySummary:
			s := fillSummary(req.Transcript)
			out.Summary = &s
			out.Applied = append(out.Applied, contractx.Correction{Type: CorrectionFilledSummary})
		case contractx.IssueTooManyKeyPoints:
			out.KeyPoints = truncate(out.KeyPoints, r.cfg.RefineTrimTo)
			out.Applied = append(out.Applied, contractx.Correction{Type: CorrectionTrimKeyPoints, To: r.cfg.RefineTrimTo})
		case contractx.IssueTooManyActionItems:
			out.ActionItems = truncate(out.ActionItems, r.cfg.RefineTrimTo)
			out.Applied = append(out.Applied, contractx.Correction{Type: CorrectionTrimActionItems, To: r.cfg.RefineTrimTo})
		}
	}

	top := r.topEntities(ctx, req)
	if out.Summary != nil && *out.Summary != "" && len(top) > 0 && !mentionsAny(*out.Summary, top) {
		s := fmt.Sprintf("%s (Context: %s.)", *out.Summary, strings.Join(top, ", "))
		out.Summary = &s
		out.Applied = append(out.Applied, contractx.Correction{Type: CorrectionEntityContext, Entities: top})
	}

	audit(ctx, req, "refiner_applied", map[string]any{"applied": out.Applied})

	return contractx.StageResult{
		Output: out,
		Meta: map[string]any{
			"applied":       out.Applied,
			"entities_used": top,
		},
	}, nil
}

// topEntities reads entities from memory. A value that no longer decodes is
// treated as absent.
func (r *refinerImpl) topEntities(ctx context.Context, req contractx.StageRequest) []string {
	var list contractx.EntityList
	found, err := req.Memory.Decode(ctx, req.SessionID, contractx.KeyEntities, &list)
	if err != nil {
		log.Warn().Err(err).Str("session_id", req.SessionID).Msg("refiner: ignoring undecodable entities")
		return []string{}
	}
	if !found {
		return []string{}
	}
	return list.Top(r.cfg.ContextEntities)
}

// fillSummary rebuilds a summary from the first two sentences, or the whole
// trimmed transcript when it has none.
func fillSummary(transcript string) string {
	sentences := toolx.SplitSentences(transcript)
	if len(sentences) == 0 {
		return strings.TrimSpace(transcript)
	}
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	return strings.Join(sentences, " ")
}

func mentionsAny(s string, entities []string) bool {
	for _, e := range entities {
		if strings.Contains(s, e) {
			return true
		}
	}
	return false
}

func truncate(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func cloneItems(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}
