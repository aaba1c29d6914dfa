package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const meetingTranscript = "The meeting covered important decisions. We must finish the report by Friday. Remember to follow up with the client."

// withStore points the memory store at a fresh SQLite file and returns its path.
func withStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.db")
	t.Setenv("AGENT_MEMORY_DRIVER", "sqlite")
	t.Setenv("AGENT_MEMORY_DSN", "file:"+path)
	return path
}

func executeCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunPrintsNotesAsJSON(t *testing.T) {
	withStore(t)

	stdout, _, err := executeCLI(t, meetingTranscript, "run", "--session", "cli-1")
	require.NoError(t, err)

	var out struct {
		SessionID   string   `json:"session_id"`
		RunID       string   `json:"run_id"`
		Plan        []string `json:"plan"`
		Summary     *string  `json:"summary"`
		KeyPoints   []string `json:"key_points"`
		ActionItems []string `json:"action_items"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "cli-1", out.SessionID)
	assert.NotEmpty(t, out.RunID)
	require.NotNil(t, out.Summary)
	assert.Equal(t, meetingTranscript, *out.Summary)
	assert.Contains(t, out.ActionItems, "We must finish the report by Friday.")
	assert.Contains(t, out.Plan, "key_points")
}

func TestRunRequiresSession(t *testing.T) {
	withStore(t)

	_, _, err := executeCLI(t, "hi", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "session" not set`)
}

func TestRunReadsFileAndPrintsYAML(t *testing.T) {
	withStore(t)

	path := filepath.Join(t.TempDir(), "lecture.txt")
	require.NoError(t, os.WriteFile(path, []byte("Today we will cover chapter two. Note the key formula."), 0o644))

	stdout, _, err := executeCLI(t, "", "run", "--session", "cli-2", "--file", path, "--output", "yaml")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "cli-2", out["session_id"])
	assert.Equal(t, []any{"Note the key formula."}, out["key_points"])
}

func TestRejectsUnknownOutputFormat(t *testing.T) {
	withStore(t)

	_, _, err := executeCLI(t, "", "run", "--session", "x", "--text", "hi", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestSnapshotReadsPersistedSession(t *testing.T) {
	withStore(t)

	_, _, err := executeCLI(t, "", "run", "--session", "persisted", "--text", meetingTranscript)
	require.NoError(t, err)

	// A second invocation starts with an empty cache and hydrates from SQLite.
	stdout, _, err := executeCLI(t, "", "snapshot", "persisted")
	require.NoError(t, err)

	var snap struct {
		KV     map[string]any `json:"kv"`
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &snap))
	assert.Contains(t, snap.KV, "classification")
	require.NotEmpty(t, snap.Events)
	assert.Equal(t, "tool_call", snap.Events[0].Type)
	assert.Equal(t, "evaluation_done", snap.Events[len(snap.Events)-1].Type)
}

func TestCleanCommand(t *testing.T) {
	t.Setenv("AGENT_MEMORY_DRIVER", "none")

	stdout, _, err := executeCLI(t, "  k8s rollout ,done  ",
		"clean", "--speaker", "Alice", "--replace", "k8s=Kubernetes", "--confidence=-2")
	require.NoError(t, err)

	var out struct {
		Text        string `json:"text"`
		Corrections []struct {
			Type string `json:"type"`
		} `json:"corrections"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "Alice: [low confidence] Kubernetes rollout, done", out.Text)
	assert.Len(t, out.Corrections, 6)
}

func TestRunWithCleanFeedsCleanedText(t *testing.T) {
	t.Setenv("AGENT_MEMORY_DRIVER", "none")

	stdout, _, err := executeCLI(t, "", "run", "--session", "c1", "--clean", "--summary",
		"--text", "hello   there ,friend")
	require.NoError(t, err)

	var out struct {
		Summary string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "hello there, friend", out.Summary)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]outputFormat{"": formatJSON, "JSON": formatJSON, "yml": formatYAML, " yaml ": formatYAML} {
		got, err := parseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := parseFormat("toml")
	assert.Error(t, err)
}
