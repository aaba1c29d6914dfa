// Package postprocess tidies raw transcription text before it reaches the notes
// pipeline. Every step is deterministic and reports what it changed.
package postprocess

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

const (
	StepCleanup          = "cleanup"
	StepTermConsistency  = "term_consistency"
	StepConfidenceFilter = "confidence_filter"
	StepSpeakerTurn      = "speaker_turn"

	// LowConfidenceThreshold is an average log-probability; lower is worse.
	LowConfidenceThreshold = -1.5
	lowConfidenceTag       = "[low confidence]"
)

type Correction struct {
	Type       string   `json:"type" yaml:"type"`
	From       string   `json:"from,omitempty" yaml:"from,omitempty"`
	To         string   `json:"to,omitempty" yaml:"to,omitempty"`
	Speaker    string   `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

type Input struct {
	Text string
	// Confidence is nil when the transcriber did not report one.
	Confidence   *float64
	Speaker      string
	Replacements map[string]string
}

type Result struct {
	Text        string       `json:"text" yaml:"text"`
	Corrections []Correction `json:"corrections" yaml:"corrections"`
}

// Step is one link of the chain.
type Step interface {
	Name() string
	Apply(text string, in Input) Result
}

type Chain struct {
	steps []Step
}

// NewChain returns cleanup, term consistency, confidence filter and speaker
// turn, in that order, unless steps are given.
func NewChain(steps ...Step) *Chain {
	if len(steps) == 0 {
		steps = []Step{Cleanup{}, TermConsistency{}, ConfidenceFilter{}, SpeakerTurn{}}
	}
	return &Chain{steps: steps}
}

func (c *Chain) Run(in Input) Result {
	out := Result{Text: in.Text, Corrections: []Correction{}}
	for _, step := range c.steps {
		r := step.Apply(out.Text, in)
		out.Text = r.Text
		out.Corrections = append(out.Corrections, r.Corrections...)
	}
	return out
}

/* ------------------------------- Cleanup ------------------------------- */

var (
	reWhitespace       = regexp.MustCompile(`\s+`)
	reSpaceBeforePunct = regexp.MustCompile(`\s+([,.!?;:])`)
	rePunctNoSpace     = regexp.MustCompile(`([,.!?;:])(\S)`)
)

type Cleanup struct{}

func (Cleanup) Name() string { return StepCleanup }

func (Cleanup) Apply(text string, _ Input) Result {
	var corrections []Correction
	rewrite := func(next, kind string) {
		if next != text {
			corrections = append(corrections, Correction{Type: kind})
		}
		text = next
	}

	rewrite(strings.TrimSpace(reWhitespace.ReplaceAllString(text, " ")), "cleanup_whitespace")
	rewrite(reSpaceBeforePunct.ReplaceAllString(text, "$1"), "cleanup_punctuation_spacing")
	rewrite(rePunctNoSpace.ReplaceAllString(text, "$1 $2"), "cleanup_punctuation_after")
	return Result{Text: text, Corrections: corrections}
}

/* --------------------------- Term consistency --------------------------- */

// TermConsistency applies learned replacements in lexical order of the source
// term so the result does not depend on map iteration.
type TermConsistency struct{}

func (TermConsistency) Name() string { return StepTermConsistency }

func (TermConsistency) Apply(text string, in Input) Result {
	var corrections []Correction
	for _, src := range slices.Sorted(maps.Keys(in.Replacements)) {
		dst := in.Replacements[src]
		if src == "" || dst == "" || src == dst || !strings.Contains(text, src) {
			continue
		}
		text = strings.ReplaceAll(text, src, dst)
		corrections = append(corrections, Correction{Type: "term_consistency_replacement", From: src, To: dst})
	}
	return Result{Text: text, Corrections: corrections}
}

/* --------------------------- Confidence filter --------------------------- */

type ConfidenceFilter struct{}

func (ConfidenceFilter) Name() string { return StepConfidenceFilter }

func (ConfidenceFilter) Apply(text string, in Input) Result {
	if in.Confidence == nil || *in.Confidence >= LowConfidenceThreshold {
		return Result{Text: text}
	}
	conf := *in.Confidence
	if text == "" {
		text = lowConfidenceTag
	} else {
		text = fmt.Sprintf("%s %s", lowConfidenceTag, text)
	}
	return Result{
		Text:        text,
		Corrections: []Correction{{Type: "low_confidence_flag", Confidence: &conf}},
	}
}

/* ------------------------------ Speaker turn ------------------------------ */

var reSpeakerLabel = regexp.MustCompile(`^Speaker\s*\d+\s*:`)

type SpeakerTurn struct{}

func (SpeakerTurn) Name() string { return StepSpeakerTurn }

func (SpeakerTurn) Apply(text string, in Input) Result {
	if in.Speaker == "" || text == "" || reSpeakerLabel.MatchString(text) {
		return Result{Text: text}
	}
	return Result{
		Text:        in.Speaker + ": " + text,
		Corrections: []Correction{{Type: "speaker_prefix_added", Speaker: in.Speaker}},
	}
}
