package orchestratornode

import (
	"strings"
	"time"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	memoryx "github.com/tanpawarit/transcript-notes/agent/memory"
)

var ErrInvalidSession = memoryx.ErrInvalidSession

type GraphInput = contractx.RunRequest

type GraphOutput = contractx.RunResult

// Flags are the caller's feature requests for one run.
type Flags struct {
	Summary     bool
	KeyPoints   bool
	ActionItems bool
}

type GraphState struct {
	SessionID  string
	RunID      string
	Transcript string
	Flags      Flags
	StartedAt  time.Time

	// FaultsBefore is the session's persistence fault count when the run
	// started, so only this run's faults mark the result degraded.
	FaultsBefore int

	Plan    contractx.Plan
	Working *contractx.WorkingContext
	Meta    map[contractx.StageName]map[string]any
}

// ValidateRequest rejects a blank session id. The id is otherwise opaque and
// kept as given. An empty transcript is a valid input and simply yields empty
// notes.
func ValidateRequest(in GraphInput, runID string, nowFn func() time.Time) (*GraphState, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, ErrInvalidSession
	}

	return &GraphState{
		SessionID:  in.SessionID,
		RunID:      runID,
		Transcript: in.Transcript,
		Flags: Flags{
			Summary:     in.IncludeSummary,
			KeyPoints:   in.IncludeKeyPoints,
			ActionItems: in.IncludeActionItems,
		},
		StartedAt: nowFn().UTC(),
		Working:   &contractx.WorkingContext{},
		Meta:      make(map[contractx.StageName]map[string]any),
	}, nil
}
