package tool

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	lexiconx "github.com/tanpawarit/transcript-notes/agent/lexicon"
)

// Capitalized tokens of at least three characters.
var entityPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9'-]{2,}\b`)

// ClassifyTranscript scores each category by how many of its keywords occur in
// the transcript. The strictly highest score wins; ties go to the earlier
// category and an all-zero score yields the generic label.
func (t *Toolkit) ClassifyTranscript(transcript string) contractx.ToolResult {
	text := strings.ToLower(transcript)

	scores := make(map[string]int, len(t.lex.Categories))
	label, best := lexiconx.GenericLabel, 0
	for _, c := range t.lex.Categories {
		score := 0
		for _, kw := range c.Keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		scores[c.Name] = score
		if score > best {
			label, best = c.Name, score
		}
	}

	return contractx.ToolResult{
		Tool:   ToolClassifyTranscript,
		Result: contractx.Classification{Label: label, Scores: scores},
		Meta:   map[string]any{"length_chars": utf8.RuneCountInString(transcript)},
	}
}

// ExtractEntities returns the most frequent capitalized tokens, count
// descending with first-seen order kept among equal counts.
func (t *Toolkit) ExtractEntities(transcript string, maxItems int) contractx.ToolResult {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	candidates := entityPattern.FindAllString(transcript, -1)
	counts := make(map[string]int, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, seen := counts[c]; !seen {
			order = append(order, c)
		}
		counts[c]++
	}

	entities := make([]contractx.Entity, 0, len(order))
	for _, text := range order {
		entities = append(entities, contractx.Entity{Text: text, Count: counts[text]})
	}
	sortEntities(entities)
	if len(entities) > maxItems {
		entities = entities[:maxItems]
	}

	return contractx.ToolResult{
		Tool:   ToolExtractEntities,
		Result: contractx.EntityList{Entities: entities},
		Meta:   map[string]any{"candidates": len(candidates)},
	}
}

// ExtractActionVerbs reports which action phrases occur, in table order.
func (t *Toolkit) ExtractActionVerbs(transcript string, maxItems int) contractx.ToolResult {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	text := strings.ToLower(transcript)
	hits := make([]string, 0, len(t.lex.ActionPhrases))
	for _, phrase := range t.lex.ActionPhrases {
		if strings.Contains(text, phrase) {
			hits = append(hits, phrase)
		}
	}
	unique := len(hits)
	if len(hits) > maxItems {
		hits = hits[:maxItems]
	}

	return contractx.ToolResult{
		Tool:   ToolExtractActionVerbs,
		Result: contractx.ActionVerbs{Verbs: hits},
		Meta:   map[string]any{"unique_hits": unique},
	}
}

func sortEntities(entities []contractx.Entity) {
	slices.SortStableFunc(entities, func(a, b contractx.Entity) int {
		return cmp.Compare(b.Count, a.Count)
	})
}
