package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	"github.com/tanpawarit/transcript-notes/agent/postprocess"
)

type transcriptSource struct {
	file string
	text string
}

func (s *transcriptSource) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "file", "f", "-", "transcript file, - for stdin")
	cmd.Flags().StringVar(&s.text, "text", "", "transcript text, overrides --file")
}

func (s *transcriptSource) read(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("text") {
		return s.text, nil
	}
	if s.file == "" || s.file == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read transcript from stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(s.file)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(raw), nil
}

type cleanFlags struct {
	speaker      string
	confidence   float64
	replacements map[string]string
}

func (c *cleanFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.speaker, "speaker", "", "speaker label to prefix unless the text is already labeled")
	cmd.Flags().Float64Var(&c.confidence, "confidence", 0, "transcriber average log-probability")
	cmd.Flags().StringToStringVar(&c.replacements, "replace", nil, "learned term replacements, from=to")
}

func (c *cleanFlags) input(cmd *cobra.Command, text string) postprocess.Input {
	in := postprocess.Input{
		Text:         text,
		Speaker:      c.speaker,
		Replacements: c.replacements,
	}
	if cmd.Flags().Changed("confidence") {
		conf := c.confidence
		in.Confidence = &conf
	}
	return in
}

func newRunCmd(a *app, format func() outputFormat) *cobra.Command {
	var (
		src         transcriptSource
		cleaning    cleanFlags
		sessionID   string
		summary     bool
		keyPoints   bool
		actionItems bool
		clean       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate notes for a transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			transcript, err := src.read(cmd)
			if err != nil {
				return err
			}

			if clean {
				cleaned := a.chain.Run(cleaning.input(cmd, transcript))
				log.Info().Str("session_id", sessionID).Int("corrections", len(cleaned.Corrections)).Msg("transcript cleaned")
				transcript = cleaned.Text
			}

			out, err := a.orchestrator.Run(cmd.Context(), contractx.RunRequest{
				SessionID:          sessionID,
				Transcript:         transcript,
				IncludeSummary:     summary,
				IncludeKeyPoints:   keyPoints,
				IncludeActionItems: actionItems,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format(), out)
		},
	}

	src.bind(cmd)
	cleaning.bind(cmd)
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id")
	cmd.Flags().BoolVar(&summary, "summary", false, "always include a summary")
	cmd.Flags().BoolVar(&keyPoints, "key-points", false, "always include key points")
	cmd.Flags().BoolVar(&actionItems, "action-items", false, "always include action items")
	cmd.Flags().BoolVar(&clean, "clean", false, "run the cleanup chain before analysis")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func newSnapshotCmd(a *app, format func() outputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <session-id>",
		Short: "Print the stored memory of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]
			snap := a.memory.Snapshot(cmd.Context(), sessionID)
			if st := a.memory.Status(sessionID); st.Degraded {
				log.Warn().Err(st.Err).Str("session_id", sessionID).Msg("snapshot served from cache only")
			}
			return render(cmd.OutOrStdout(), format(), snap)
		},
	}
}

func newCleanCmd(a *app, format func() outputFormat) *cobra.Command {
	var (
		src      transcriptSource
		cleaning cleanFlags
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Run only the transcript cleanup chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := src.read(cmd)
			if err != nil {
				return err
			}
			if a.chain == nil {
				return errors.New("cleanup chain is not wired")
			}
			return render(cmd.OutOrStdout(), format(), a.chain.Run(cleaning.input(cmd, text)))
		},
	}

	src.bind(cmd)
	cleaning.bind(cmd)
	return cmd
}
