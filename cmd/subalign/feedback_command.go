package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subalign/internal/feedback"
)

func newFeedbackCommand(ctx *commandContext) *cobra.Command {
	feedbackCmd := &cobra.Command{
		Use:   "feedback",
		Short: "Inspect reviewer feedback",
	}
	feedbackCmd.AddCommand(newFeedbackListCommand(ctx))
	return feedbackCmd
}

func newFeedbackListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded feedback, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(true)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			sink, err := feedback.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("feedback sink: %w", err)
			}
			defer func() { _ = sink.Close() }()

			lister, ok := sink.(feedback.Lister)
			if !ok {
				return fmt.Errorf("feedback backend %q does not store entries", cfg.Feedback.Backend)
			}
			entries, err := lister.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if entries == nil {
					entries = []feedback.Entry{}
				}
				return encoder.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No feedback recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					shortID(entry.ID),
					entry.CreatedAt.Local().Format(time.DateTime),
					yesNo(entry.WasCorrect),
					entry.SourceText,
					entry.TargetText,
				})
			}
			fmt.Fprintln(out, renderTable(feedbackColumns, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

var feedbackColumns = []column{
	{title: "ID", width: 8},
	{title: "Recorded", width: 19},
	{title: "Correct"},
	{title: "Source"},
	{title: "Target"},
}
