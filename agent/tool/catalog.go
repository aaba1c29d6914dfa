package tool

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	lexiconx "github.com/tanpawarit/transcript-notes/agent/lexicon"
)

const (
	ToolClassifyTranscript = "classify_transcript"
	ToolExtractEntities    = "extract_entities"
	ToolExtractActionVerbs = "extract_action_verbs"

	DefaultMaxItems = 25
)

// Names lists the catalog in invocation order.
var Names = []string{ToolClassifyTranscript, ToolExtractEntities, ToolExtractActionVerbs}

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// Toolkit holds the stateless text tools bound to one lexicon.
type Toolkit struct {
	lex lexiconx.Lexicon
}

func NewToolkit(lex lexiconx.Lexicon) *Toolkit {
	return &Toolkit{lex: lex}
}

// DefaultToolkit uses the embedded lexicon.
func DefaultToolkit() *Toolkit {
	return NewToolkit(lexiconx.Default())
}

func (t *Toolkit) Lexicon() lexiconx.Lexicon {
	return t.lex
}

// NewExecutor dispatches by tool name. Bad arguments and unknown tools come back
// as a ToolResult with Error set rather than as a Go error.
func NewExecutor(tk *Toolkit) Executor {
	fallback := DefaultExecutor()
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		switch tool {
		case ToolClassifyTranscript, ToolExtractEntities, ToolExtractActionVerbs:
		default:
			return fallback(ctx, tool, args)
		}

		transcript, errMsg := transcriptArg(args)
		if errMsg != "" {
			return contractx.ToolResult{Tool: tool, Error: errMsg}, nil
		}

		switch tool {
		case ToolClassifyTranscript:
			return tk.ClassifyTranscript(transcript), nil
		case ToolExtractEntities:
			return tk.ExtractEntities(transcript, intArg(args, "max_items")), nil
		default:
			return tk.ExtractActionVerbs(transcript, intArg(args, "max_items")), nil
		}
	}
}

func DefaultExecutor() Executor {
	return func(ctx context.Context, tool string, _ map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("tool=%s is unavailable", tool),
		}, nil
	}
}

func transcriptArg(args map[string]any) (string, string) {
	raw, ok := args["transcript"]
	if !ok || raw == nil {
		return "", "transcript is required"
	}
	transcript, ok := raw.(string)
	if !ok {
		return "", "transcript must be a string"
	}
	return transcript, ""
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
