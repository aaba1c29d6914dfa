package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		format  string
	)
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "notes",
		Short:         "Turn transcripts into summaries, key points and action items",
		Long:          "notes runs a deterministic analysis pipeline over a transcript and keeps a per-session audit trail in the configured memory store.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := parseFormat(format); err != nil {
				return err
			}
			wired, err := wireApp(cmd.Context(), envFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			*a = *wired
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if err := a.close(); err != nil {
				return fmt.Errorf("close memory store: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "settings file exported into the environment (default .env when present)")
	rootCmd.PersistentFlags().StringVarP(&format, "output", "o", string(formatJSON), "output format: json or yaml")

	out := func() outputFormat {
		f, _ := parseFormat(format)
		return f
	}

	rootCmd.AddCommand(
		newRunCmd(a, out),
		newSnapshotCmd(a, out),
		newCleanCmd(a, out),
	)
	return rootCmd
}
