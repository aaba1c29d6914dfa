package orchestratornode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	memoryx "github.com/tanpawarit/transcript-notes/agent/memory"
)

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

type stubStage struct {
	name  contractx.StageName
	out   any
	meta  map[string]any
	err   error
	calls int
}

func (s *stubStage) Name() contractx.StageName { return s.name }

func (s *stubStage) Run(ctx context.Context, req contractx.StageRequest) (contractx.StageResult, error) {
	s.calls++
	if s.err != nil {
		return contractx.StageResult{}, s.err
	}
	return contractx.StageResult{Output: s.out, Meta: s.meta}, nil
}

type stubRegistry map[contractx.StageName]contractx.Stage

func (r stubRegistry) Stage(name contractx.StageName) (contractx.Stage, bool) {
	s, ok := r[name]
	return s, ok
}

func newState(t *testing.T) *GraphState {
	t.Helper()
	st, err := ValidateRequest(GraphInput{SessionID: "s1", Transcript: "hello"}, "run-1", fixedNow)
	require.NoError(t, err)
	return st
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	_, err := ValidateRequest(GraphInput{SessionID: "  "}, "run-1", fixedNow)
	require.ErrorIs(t, err, ErrInvalidSession)
	require.ErrorIs(t, err, memoryx.ErrInvalidSession)

	st, err := ValidateRequest(GraphInput{
		SessionID:        "s1",
		Transcript:       "",
		IncludeKeyPoints: true,
	}, "run-1", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "s1", st.SessionID)
	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, Flags{KeyPoints: true}, st.Flags)
	assert.Equal(t, fixedNow(), st.StartedAt)
	assert.NotNil(t, st.Working)
	assert.NotNil(t, st.Meta)
}

func TestValidateRequestKeepsSessionIDVerbatim(t *testing.T) {
	t.Parallel()

	st, err := ValidateRequest(GraphInput{SessionID: " s1 "}, "run-1", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, " s1 ", st.SessionID)
}

func TestPlanFor(t *testing.T) {
	t.Parallel()

	suffix := []contractx.StageName{contractx.StageEvaluator, contractx.StageRefiner, contractx.StageEvaluator}
	with := func(middle ...contractx.StageName) contractx.Plan {
		p := contractx.Plan{contractx.StageRouter}
		p = append(p, middle...)
		return append(p, suffix...)
	}

	tests := []struct {
		name  string
		flags Flags
		hints contractx.PlanHints
		want  contractx.Plan
	}{
		{name: "nothing requested", want: with()},
		{
			name:  "hints only",
			hints: contractx.PlanHints{PreferSummary: true, PreferActionItems: true},
			want:  with(contractx.StageSummary, contractx.StageActionItems),
		},
		{
			name:  "flags add to hints",
			flags: Flags{KeyPoints: true},
			hints: contractx.PlanHints{PreferSummary: true},
			want:  with(contractx.StageSummary, contractx.StageKeyPoints),
		},
		{
			name:  "fixed order regardless of source",
			flags: Flags{ActionItems: true, Summary: true},
			hints: contractx.PlanHints{PreferKeyPoints: true},
			want:  with(contractx.StageSummary, contractx.StageKeyPoints, contractx.StageActionItems),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PlanFor(tt.flags, tt.hints))
		})
	}
}

func TestBuildPlanRecordsEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := memoryx.NewSessionMemory(nil)
	st := newState(t)
	st.Working.PlanHints = &contractx.PlanHints{PreferSummary: true}

	st, err := BuildPlan(ctx, st, mem)
	require.NoError(t, err)

	events := mem.Events(ctx, "s1")
	require.Len(t, events, 1)
	assert.Equal(t, "plan_created", events[0].Type)
	assert.Equal(t, []string{"router", "summary", "evaluator", "refiner", "evaluator"}, events[0].Payload["plan"])
	assert.Equal(t, st.Plan.Strings(), events[0].Payload["plan"])
}

func TestRunStageSkipsRefinerWithoutIssues(t *testing.T) {
	t.Parallel()

	refiner := &stubStage{name: contractx.StageRefiner, out: contractx.RefinerOutput{}}
	reg := stubRegistry{contractx.StageRefiner: refiner}
	st := newState(t)
	st.Working.Evaluation = &contractx.Evaluation{Issues: []contractx.Issue{}}

	st, err := RunStage(context.Background(), st, contractx.StageRefiner, reg, memoryx.NewSessionMemory(nil))
	require.NoError(t, err)
	assert.Zero(t, refiner.calls)
	assert.Equal(t, map[string]any{"skipped": true, "reason": "no_issues"}, st.Meta[contractx.StageRefiner])
}

func TestRunStageAppliesRefinerOutput(t *testing.T) {
	t.Parallel()

	fixed := "Fixed."
	refiner := &stubStage{
		name: contractx.StageRefiner,
		out: contractx.RefinerOutput{
			Summary:     &fixed,
			KeyPoints:   []string{"one"},
			ActionItems: []string{},
		},
		meta: map[string]any{"applied": 1},
	}
	st := newState(t)
	blank := ""
	st.Working.Summary = &blank
	st.Working.KeyPoints = []string{"one", "two"}
	st.Working.Evaluation = &contractx.Evaluation{Issues: []contractx.Issue{{Type: contractx.IssueEmptySummary}}}

	st, err := RunStage(context.Background(), st, contractx.StageRefiner,
		stubRegistry{contractx.StageRefiner: refiner}, memoryx.NewSessionMemory(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, refiner.calls)
	assert.Equal(t, "Fixed.", *st.Working.Summary)
	assert.Equal(t, []string{"one"}, st.Working.KeyPoints)
	assert.Equal(t, map[string]any{"applied": 1}, st.Meta[contractx.StageRefiner])
}

func TestRunStageUnknownStage(t *testing.T) {
	t.Parallel()

	_, err := RunStage(context.Background(), newState(t), contractx.StageSummary, stubRegistry{}, memoryx.NewSessionMemory(nil))
	require.ErrorIs(t, err, contractx.ErrUnknownStage)
}

func TestRunStagePropagatesStageError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	reg := stubRegistry{contractx.StageSummary: &stubStage{name: contractx.StageSummary, err: boom}}
	_, err := RunStage(context.Background(), newState(t), contractx.StageSummary, reg, memoryx.NewSessionMemory(nil))
	require.ErrorIs(t, err, boom)
}

func TestApplyStageResult(t *testing.T) {
	t.Parallel()

	wc := &contractx.WorkingContext{}

	require.NoError(t, ApplyStageResult(wc, contractx.StageRouter, contractx.RouterOutput{
		Classification: contractx.Classification{Label: "meeting"},
		PlanHints:      contractx.PlanHints{Label: "meeting", PreferSummary: true},
	}))
	assert.Equal(t, "meeting", wc.Classification.Label)
	assert.True(t, wc.PlanHints.PreferSummary)

	require.NoError(t, ApplyStageResult(wc, contractx.StageSummary, contractx.SummaryOutput{Summary: "s"}))
	assert.Equal(t, "s", *wc.Summary)

	require.NoError(t, ApplyStageResult(wc, contractx.StageKeyPoints, contractx.ListOutput{Items: []string{"k"}}))
	require.NoError(t, ApplyStageResult(wc, contractx.StageActionItems, contractx.ListOutput{Items: []string{"a"}}))
	assert.Equal(t, []string{"k"}, wc.KeyPoints)
	assert.Equal(t, []string{"a"}, wc.ActionItems)

	require.NoError(t, ApplyStageResult(wc, contractx.StageEvaluator, contractx.Evaluation{Issues: []contractx.Issue{}}))
	assert.False(t, wc.Evaluation.HasIssues())

	// A refiner without a summary leaves the existing one in place.
	require.NoError(t, ApplyStageResult(wc, contractx.StageRefiner, contractx.RefinerOutput{KeyPoints: []string{}}))
	assert.Equal(t, "s", *wc.Summary)
	assert.Empty(t, wc.KeyPoints)

	err := ApplyStageResult(wc, contractx.StageSummary, contractx.ListOutput{})
	assert.ErrorIs(t, err, contractx.ErrInvalidContext)

	err = ApplyStageResult(wc, contractx.StageName("translator"), nil)
	assert.ErrorIs(t, err, contractx.ErrUnknownStage)
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := memoryx.NewSessionMemory(nil)
	mem.Put(ctx, "s1", "k", "v")

	st := newState(t)
	st.Plan = PlanFor(Flags{}, contractx.PlanHints{})
	st.Meta[contractx.StageRouter] = map[string]any{"label": "generic"}

	out, err := Finalize(ctx, st, mem)
	require.NoError(t, err)
	assert.Equal(t, "s1", out.SessionID)
	assert.Equal(t, "run-1", out.RunID)
	assert.Nil(t, out.Summary)
	assert.NotNil(t, out.KeyPoints)
	assert.NotNil(t, out.ActionItems)
	assert.Equal(t, "v", out.Memory.KV["k"])
	assert.False(t, out.Degraded)
	assert.Equal(t, []string{"router", "evaluator", "refiner", "evaluator"}, out.Plan)
}

type brokenStore struct {
	memoryx.NopStore
}

func (brokenStore) PutKV(context.Context, string, string, any) error {
	return errors.New("disk full")
}

func TestFinalizeReportsOnlyThisRunsFaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := memoryx.NewSessionMemory(brokenStore{})
	require.True(t, mem.Put(ctx, "s1", "k", "v").Degraded)

	st := newState(t)
	st.FaultsBefore = mem.Status("s1").Faults
	out, err := Finalize(ctx, st, mem)
	require.NoError(t, err)
	assert.False(t, out.Degraded)

	mem.Put(ctx, "s1", "k", "w")
	out, err = Finalize(ctx, st, mem)
	require.NoError(t, err)
	assert.True(t, out.Degraded)
}
