package specialist

import (
	"fmt"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
)

// Config holds the limits shared by the stages. Loaded with the NOTES prefix.
type Config struct {
	MaxListItems      int `split_words:"true" default:"5"`
	MinItemLength     int `split_words:"true" default:"10"`
	MaxEvaluatedItems int `split_words:"true" default:"7"`
	RefineTrimTo      int `split_words:"true" default:"5"`
	MaxEntities       int `split_words:"true" default:"25"`
	MaxActionVerbs    int `split_words:"true" default:"25"`
	ContextEntities   int `split_words:"true" default:"3"`
}

func DefaultConfig() Config {
	return Config{
		MaxListItems:      5,
		MinItemLength:     10,
		MaxEvaluatedItems: 7,
		RefineTrimTo:      5,
		MaxEntities:       25,
		MaxActionVerbs:    25,
		ContextEntities:   3,
	}
}

func (c Config) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"max_list_items", c.MaxListItems},
		{"max_evaluated_items", c.MaxEvaluatedItems},
		{"refine_trim_to", c.RefineTrimTo},
		{"max_entities", c.MaxEntities},
		{"max_action_verbs", c.MaxActionVerbs},
		{"context_entities", c.ContextEntities},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %d", contractx.ErrValidation, p.name, p.value)
		}
	}
	if c.MinItemLength < 0 {
		return fmt.Errorf("%w: min_item_length must be >= 0", contractx.ErrValidation)
	}
	if c.RefineTrimTo > c.MaxEvaluatedItems {
		return fmt.Errorf("%w: refine_trim_to (%d) must not exceed max_evaluated_items (%d)",
			contractx.ErrValidation, c.RefineTrimTo, c.MaxEvaluatedItems)
	}
	return nil
}
