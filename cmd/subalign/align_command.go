package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subalign/internal/align"
	"subalign/internal/config"
	"subalign/internal/embedding"
	"subalign/internal/fileutil"
	"subalign/internal/subtitles"
)

type alignOutput struct {
	Results      []align.PairRecord `json:"results"`
	Summary      align.Summary      `json:"summary"`
	TemporalOnly bool               `json:"temporal_only,omitempty"`
}

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput     bool
		mergedPath     string
		omitMisaligned bool
		provider       string
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:   "align <source.srt> <target.srt>",
		Short: "Align two subtitle files and report per-pair confidence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := ctx.logger(!verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			source, err := readCues(args[0])
			if err != nil {
				return err
			}
			target, err := readCues(args[1])
			if err != nil {
				return err
			}
			if len(source) == 0 {
				return fmt.Errorf("%s contains no valid subtitle cues", args[0])
			}

			prov, err := embedding.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("embedding provider: %w", err)
			}
			defer func() { _ = embedding.Close(prov) }()

			engine := align.NewEngine(prov, align.OptionsFromConfig(cfg), logger)
			result, err := engine.Align(cmd.Context(), source, target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if mergedPath != "" {
				n, err := writeMerged(out, mergedPath, result.Pairs, align.RenderOptions{OmitMisaligned: omitMisaligned})
				if err != nil {
					return err
				}
				if mergedPath != "-" && !jsonOutput {
					fmt.Fprintf(out, "Wrote %d merged subtitle blocks to %s\n", n, mergedPath)
				}
				if mergedPath == "-" {
					return nil
				}
			}
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(alignOutput{
					Results:      align.Records(result.Pairs),
					Summary:      result.Summary,
					TemporalOnly: result.TemporalOnly,
				})
			}
			fmt.Fprintln(out, renderPairs(result.Pairs, shouldColorize(out)))
			fmt.Fprintln(out, renderSummary(result))
			return nil
		},
	}

	ctx.override(func(c *config.Config) {
		if p := strings.TrimSpace(provider); p != "" {
			c.Embedding.Provider = p
		}
	})

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON records")
	cmd.Flags().StringVarP(&mergedPath, "merged", "o", "", "Write a merged bilingual SRT to this path (- for stdout)")
	cmd.Flags().BoolVar(&omitMisaligned, "omit-misaligned", false, "Leave MISALIGNED pairs out of the merged SRT")
	cmd.Flags().StringVar(&provider, "provider", "", "Override embedding.provider (openai, onnx, lexical)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")
	return cmd
}

func readCues(path string) ([]subtitles.Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return subtitles.ParseSRT(data), nil
}

func writeMerged(stdout io.Writer, path string, pairs []align.AlignedPair, opts align.RenderOptions) (int, error) {
	if path == "-" {
		return align.RenderMerged(stdout, pairs, opts)
	}
	var n int
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		var renderErr error
		n, renderErr = align.RenderMerged(w, pairs, opts)
		return renderErr
	})
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}

func renderPairs(pairs []align.AlignedPair, colorize bool) string {
	cols := []column{
		{title: "#", right: true},
		{title: "Start", width: 12},
		{title: "Source"},
		{title: "Target"},
		{title: "Confidence", right: true},
		{title: "Status"},
	}
	rows := make([][]string, 0, len(pairs))
	for _, pair := range pairs {
		target := pair.TargetText
		if pair.Shared {
			target += " (shared)"
		}
		rows = append(rows, []string{
			strconv.Itoa(pair.Sequence),
			subtitles.FormatTimestamp(pair.SourceStart),
			pair.SourceText,
			target,
			strconv.FormatFloat(pair.Confidence, 'f', 3, 64),
			renderStatus(pair.Status, colorize),
		})
	}
	return renderTable(cols, rows)
}

func renderSummary(result *align.Result) string {
	s := result.Summary
	line := fmt.Sprintf("%d source cues, %d target cues: %d aligned, %d review, %d misaligned, %d target cues unused",
		s.TotalSource, s.TotalTarget, s.AlignedCount, s.ReviewCount, s.MisalignedCount, s.UnmatchedTargets)
	if result.TemporalOnly {
		line += " (timing only; embeddings unavailable)"
	}
	return line
}
