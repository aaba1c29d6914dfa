package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed template/lexicon.yaml
var defaultRaw []byte

const GenericLabel = "generic"

// Category is one classification label and the phrases that signal it.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Lexicon holds the ordered keyword tables used by the text tools and stages.
// Categories are in priority order; the first category wins a tie.
type Lexicon struct {
	Categories       []Category `yaml:"categories"`
	ActionPhrases    []string   `yaml:"action_phrases"`
	KeyPointKeywords []string   `yaml:"key_point_keywords"`
	ActionItemVerbs  []string   `yaml:"action_item_verbs"`
}

var (
	defaultOnce sync.Once
	defaultLex  Lexicon
	defaultErr  error
)

// Default returns the embedded lexicon. It panics if the embedded document is
// invalid, which can only happen at build time.
func Default() Lexicon {
	defaultOnce.Do(func() {
		defaultLex, defaultErr = Parse(defaultRaw)
	})
	if defaultErr != nil {
		panic(fmt.Errorf("embedded lexicon: %w", defaultErr))
	}
	return defaultLex.clone()
}

// Parse decodes a lexicon document and validates it.
func Parse(raw []byte) (Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(raw, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}
	lex.normalize()
	if err := lex.Validate(); err != nil {
		return Lexicon{}, err
	}
	return lex, nil
}

func (l Lexicon) Validate() error {
	if len(l.Categories) == 0 {
		return errors.New("lexicon has no categories")
	}
	seen := make(map[string]struct{}, len(l.Categories))
	for _, c := range l.Categories {
		if c.Name == "" {
			return errors.New("lexicon category without name")
		}
		if c.Name == GenericLabel {
			return fmt.Errorf("lexicon category %q is reserved", GenericLabel)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate lexicon category %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// CategoryNames lists category names in priority order.
func (l Lexicon) CategoryNames() []string {
	names := make([]string, 0, len(l.Categories))
	for _, c := range l.Categories {
		names = append(names, c.Name)
	}
	return names
}

// Phrases are matched against lower-cased text, so store them lower-cased.
func (l *Lexicon) normalize() {
	for i := range l.Categories {
		l.Categories[i].Name = strings.TrimSpace(l.Categories[i].Name)
		l.Categories[i].Keywords = lowerAll(l.Categories[i].Keywords)
	}
	l.ActionPhrases = lowerAll(l.ActionPhrases)
	l.KeyPointKeywords = lowerAll(l.KeyPointKeywords)
	l.ActionItemVerbs = lowerAll(l.ActionItemVerbs)
}

func (l Lexicon) clone() Lexicon {
	out := Lexicon{
		Categories:       make([]Category, len(l.Categories)),
		ActionPhrases:    append([]string(nil), l.ActionPhrases...),
		KeyPointKeywords: append([]string(nil), l.KeyPointKeywords...),
		ActionItemVerbs:  append([]string(nil), l.ActionItemVerbs...),
	}
	for i, c := range l.Categories {
		out.Categories[i] = Category{Name: c.Name, Keywords: append([]string(nil), c.Keywords...)}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
