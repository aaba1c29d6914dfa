package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
)

func TestExecutorDispatchesByName(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(DefaultToolkit())
	args := map[string]any{"transcript": "Next steps: Alice will email Bob about the agenda."}

	for _, name := range Names {
		out, err := executor(context.Background(), name, args)
		require.NoError(t, err)
		assert.Equal(t, name, out.Tool)
		assert.Empty(t, out.Error)
		assert.NotNil(t, out.Result)
	}
}

func TestExecutorEntitiesRespectsMaxItems(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(DefaultToolkit())
	out, err := executor(context.Background(), ToolExtractEntities, map[string]any{
		"transcript": "Alice met Bob and Carol in Berlin.",
		"max_items":  float64(2),
	})
	require.NoError(t, err)
	list, ok := out.Result.(contractx.EntityList)
	require.True(t, ok, "unexpected result type: %T", out.Result)
	assert.Len(t, list.Entities, 2)
}

func TestExecutorValidatesTranscript(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(DefaultToolkit())

	out, err := executor(context.Background(), ToolClassifyTranscript, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "transcript is required", out.Error)

	out, err = executor(context.Background(), ToolClassifyTranscript, map[string]any{"transcript": 12})
	require.NoError(t, err)
	assert.Equal(t, "transcript must be a string", out.Error)

	// The empty string is a valid transcript.
	out, err = executor(context.Background(), ToolClassifyTranscript, map[string]any{"transcript": ""})
	require.NoError(t, err)
	assert.Empty(t, out.Error)
}

func TestDefaultExecutorUnavailableMessage(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(DefaultToolkit())
	out, err := executor(context.Background(), "translate_transcript", map[string]any{"transcript": "x"})
	require.NoError(t, err)
	assert.Equal(t, "translate_transcript", out.Tool)
	assert.NotEmpty(t, out.Error)
}
