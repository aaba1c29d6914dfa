package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPreservesTableOrder(t *testing.T) {
	t.Parallel()

	lex := Default()
	assert.Equal(t, []string{"meeting", "lecture", "interview"}, lex.CategoryNames())
	assert.Equal(t, []string{
		"should", "must", "need to", "have to", "will",
		"plan to", "decide", "schedule", "follow up", "email",
	}, lex.ActionPhrases)
	assert.Len(t, lex.KeyPointKeywords, 11)
	assert.Len(t, lex.ActionItemVerbs, 12)
	assert.Contains(t, lex.Categories[0].Keywords, "follow up")
}

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	t.Parallel()

	a := Default()
	a.Categories[0].Name = "changed"
	a.ActionPhrases[0] = "changed"

	b := Default()
	assert.Equal(t, "meeting", b.Categories[0].Name)
	assert.Equal(t, "should", b.ActionPhrases[0])
}

func TestParseNormalizesAndValidates(t *testing.T) {
	t.Parallel()

	lex, err := Parse([]byte(`
categories:
  - name: standup
    keywords: ["  Blockers ", "YESTERDAY"]
action_phrases: ["Will", ""]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"blockers", "yesterday"}, lex.Categories[0].Keywords)
	assert.Equal(t, []string{"will"}, lex.ActionPhrases)

	_, err = Parse([]byte("categories: []\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("categories:\n  - name: generic\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("categories:\n  - name: a\n  - name: a\n"))
	assert.Error(t, err)
}
