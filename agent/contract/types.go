package contract

import (
	memoryx "github.com/tanpawarit/transcript-notes/agent/memory"
)

type StageName string

const (
	StageRouter      StageName = "router"
	StageSummary     StageName = "summary"
	StageKeyPoints   StageName = "key_points"
	StageActionItems StageName = "action_items"
	StageEvaluator   StageName = "evaluator"
	StageRefiner     StageName = "refiner"
)

// Plan is the ordered list of stages for one run.
type Plan []StageName

func (p Plan) Strings() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = string(s)
	}
	return out
}

// Memory keys written by the router.
const (
	KeyClassification = "classification"
	KeyEntities       = "entities"
	KeyActionVerbs    = "action_verbs"
	KeyPlanHints      = "plan_hints"
)

/* ------------------------------- Tools -------------------------------- */

type ToolResult struct {
	Tool   string         `json:"tool"`
	Result any            `json:"result,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type Classification struct {
	Label  string         `json:"label" yaml:"label"`
	Scores map[string]int `json:"scores" yaml:"scores"`
}

type Entity struct {
	Text  string `json:"text" yaml:"text"`
	Count int    `json:"count" yaml:"count"`
}

type EntityList struct {
	Entities []Entity `json:"entities" yaml:"entities"`
}

// Top returns the text of up to n leading entities, skipping blanks.
func (l EntityList) Top(n int) []string {
	out := make([]string, 0, n)
	for _, e := range l.Entities {
		if len(out) == n {
			break
		}
		if e.Text != "" {
			out = append(out, e.Text)
		}
	}
	return out
}

type ActionVerbs struct {
	Verbs []string `json:"verbs" yaml:"verbs"`
}

/* ------------------------------- Stages ------------------------------- */

type PlanHints struct {
	Label             string `json:"label" yaml:"label"`
	PreferSummary     bool   `json:"prefer_summary" yaml:"prefer_summary"`
	PreferKeyPoints   bool   `json:"prefer_key_points" yaml:"prefer_key_points"`
	PreferActionItems bool   `json:"prefer_action_items" yaml:"prefer_action_items"`
}

type RouterOutput struct {
	Classification Classification `json:"classification" yaml:"classification"`
	Entities       EntityList     `json:"entities" yaml:"entities"`
	ActionVerbs    ActionVerbs    `json:"action_verbs" yaml:"action_verbs"`
	PlanHints      PlanHints      `json:"plan_hints" yaml:"plan_hints"`
}

type SummaryOutput struct {
	Summary string `json:"summary" yaml:"summary"`
}

// ListOutput is produced by the key point and action item stages.
type ListOutput struct {
	Items []string `json:"items" yaml:"items"`
}

type IssueType string

const (
	IssueEmptySummary       IssueType = "empty_summary"
	IssueTooManyKeyPoints   IssueType = "too_many_key_points"
	IssueTooManyActionItems IssueType = "too_many_action_items"
)

type Issue struct {
	Type  IssueType `json:"type" yaml:"type"`
	Count int       `json:"count,omitempty" yaml:"count,omitempty"`
}

type Evaluation struct {
	Issues []Issue `json:"issues" yaml:"issues"`
}

func (e *Evaluation) HasIssues() bool {
	return e != nil && len(e.Issues) > 0
}

type Correction struct {
	Type     string   `json:"type" yaml:"type"`
	To       int      `json:"to,omitempty" yaml:"to,omitempty"`
	Entities []string `json:"entities,omitempty" yaml:"entities,omitempty"`
}

// RefinerOutput carries the corrected notes. A nil Summary means the run had
// no summary and the refiner did not create one.
type RefinerOutput struct {
	Summary     *string      `json:"summary,omitempty" yaml:"summary,omitempty"`
	KeyPoints   []string     `json:"key_points" yaml:"key_points"`
	ActionItems []string     `json:"action_items" yaml:"action_items"`
	Applied     []Correction `json:"applied" yaml:"applied"`
}

// SkippedOutput stands in for a stage that the orchestrator did not invoke.
type SkippedOutput struct {
	Skipped bool   `json:"skipped" yaml:"skipped"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// WorkingContext threads stage outputs through one run. Notes fields are set by
// the specialists and replaced wholesale only by the refiner.
type WorkingContext struct {
	Summary     *string
	KeyPoints   []string
	ActionItems []string

	Classification *Classification
	Entities       *EntityList
	ActionVerbs    *ActionVerbs
	PlanHints      *PlanHints

	Evaluation *Evaluation
}

type StageRequest struct {
	SessionID  string
	Transcript string
	Memory     Memory
	Context    *WorkingContext
}

type StageResult struct {
	Output any
	Meta   map[string]any
}

/* ----------------------------- Run boundary ---------------------------- */

type RunRequest struct {
	SessionID          string `json:"session_id"`
	Transcript         string `json:"transcript"`
	IncludeSummary     bool   `json:"include_summary"`
	IncludeKeyPoints   bool   `json:"include_key_points"`
	IncludeActionItems bool   `json:"include_action_items"`
}

type RunResult struct {
	SessionID   string                       `json:"session_id" yaml:"session_id"`
	RunID       string                       `json:"run_id" yaml:"run_id"`
	Plan        []string                     `json:"plan" yaml:"plan"`
	Summary     *string                      `json:"summary" yaml:"summary"`
	KeyPoints   []string                     `json:"key_points" yaml:"key_points"`
	ActionItems []string                     `json:"action_items" yaml:"action_items"`
	Evaluation  *Evaluation                  `json:"evaluation" yaml:"evaluation"`
	AgentMeta   map[StageName]map[string]any `json:"agent_meta" yaml:"agent_meta"`
	Memory      memoryx.Snapshot             `json:"memory" yaml:"memory"`
	Degraded    bool                         `json:"memory_degraded" yaml:"memory_degraded"`
}
