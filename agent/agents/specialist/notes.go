package specialist

import (
	"context"
	"strings"
	"unicode/utf8"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	toolx "github.com/tanpawarit/transcript-notes/agent/tool"
)

/* ------------------------------- Summary ------------------------------- */

type summaryImpl struct{}

func NewSummary() contractx.Stage {
	return summaryImpl{}
}

func (summaryImpl) Name() contractx.StageName {
	return contractx.StageSummary
}

func (summaryImpl) Run(ctx context.Context, req contractx.StageRequest) (contractx.StageResult, error) {
	if err := checkRequest(req); err != nil {
		return contractx.StageResult{}, err
	}

	summary, used := Summarize(req.Transcript)
	audit(ctx, req, "summary_generated", map[string]any{"length": utf8.RuneCountInString(summary)})

	return contractx.StageResult{
		Output: contractx.SummaryOutput{Summary: summary},
		Meta:   map[string]any{"sentences_used": used},
	}, nil
}

// Summarize keeps short transcripts whole and otherwise takes the first three
// sentences. It also reports how many sentences went in.
func Summarize(transcript string) (string, int) {
	sentences := toolx.SplitSentences(transcript)
	if len(sentences) <= 2 {
		return strings.TrimSpace(transcript), len(sentences)
	}
	return strings.Join(sentences[:3], " "), 3
}

/* --------------------------- Key points / actions --------------------------- */

type listImpl struct {
	name     contractx.StageName
	event    string
	keywords []string
	cfg      Config
}

// NewKeyPoints selects sentences mentioning any of keywords.
func NewKeyPoints(keywords []string, cfg Config) contractx.Stage {
	return &listImpl{
		name:     contractx.StageKeyPoints,
		event:    "key_points_generated",
		keywords: keywords,
		cfg:      cfg,
	}
}

// NewActionItems selects sentences mentioning any of verbs.
func NewActionItems(verbs []string, cfg Config) contractx.Stage {
	return &listImpl{
		name:     contractx.StageActionItems,
		event:    "action_items_generated",
		keywords: verbs,
		cfg:      cfg,
	}
}

func (l *listImpl) Name() contractx.StageName {
	return l.name
}

func (l *listImpl) Run(ctx context.Context, req contractx.StageRequest) (contractx.StageResult, error) {
	if err := checkRequest(req); err != nil {
		return contractx.StageResult{}, err
	}

	items, candidates := SelectSentences(req.Transcript, l.keywords, l.cfg.MinItemLength, l.cfg.MaxListItems)
	audit(ctx, req, l.event, map[string]any{"count": len(items)})

	return contractx.StageResult{
		Output: contractx.ListOutput{Items: items},
		Meta:   map[string]any{"candidates": candidates},
	}, nil
}

// SelectSentences returns, in transcript order, the capitalized sentences that
// contain one of keywords and are longer than minLen runes, capped at limit.
// candidates is the number of sentences considered.
func SelectSentences(transcript string, keywords []string, minLen, limit int) (items []string, candidates int) {
	items = []string{}
	sentences := toolx.SplitSentences(transcript)
	for _, sentence := range sentences {
		if !containsAny(strings.ToLower(sentence), keywords) {
			continue
		}
		item := toolx.Capitalize(sentence)
		if utf8.RuneCountInString(item) <= minLen || len(items) >= limit {
			continue
		}
		items = append(items, item)
	}
	return items, len(sentences)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
