package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mp3tag/internal/metadata"
	"mp3tag/internal/pipeline"
	"mp3tag/internal/progress"
	"mp3tag/internal/provider"
	"mp3tag/internal/scanner"
)

var errQuit = errors.New("quit")

func newFetchCommand(a *app) *cobra.Command {
	var (
		sources   []string
		auto      bool
		rename    bool
		all       bool
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "fetch PATH",
		Short: "Look up untagged files in the music catalogs and write their tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("source") {
				cfg.Sources = sources
			}
			if cmd.Flags().Changed("rename") {
				cfg.Rename = rename
			}
			if cmd.Flags().Changed("threshold") {
				cfg.ConfidenceThreshold = threshold
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			ctx := a.sh.Context()
			files, err := scanner.ScanPath(args[0])
			if err != nil {
				return err
			}

			p, err := provider.New(ctx, cfg, a.log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := pipeline.Options{
				Auto:          auto,
				Threshold:     cfg.ConfidenceThreshold,
				Rename:        cfg.Rename,
				IncludeTagged: all,
			}

			var bar *progress.Bar
			hooks := pipeline.Hooks{
				OnFilesFound: func(total int) {
					if auto && !cfg.Verbose && total > 0 {
						bar = progress.New(out, "Tagging", total)
						a.log.SetProgressBar(true)
					}
				},
				OnProgress: func() {
					if bar != nil {
						bar.Increment()
					}
				},
			}

			var choose pipeline.Chooser
			if !auto {
				choose = newPromptChooser(bufio.NewScanner(a.in), out)
			}

			stats, err := pipeline.Run(ctx, files, p, choose, a.log, opts, hooks)
			if bar != nil {
				bar.Finish()
				a.log.SetProgressBar(false)
			}

			printStats(out, stats)
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVarP(&sources, "source", "s", nil, "catalogs to search, in order (spotify, melon)")
	fl.BoolVarP(&auto, "auto", "a", false, "accept the best match without asking when it scores above the threshold")
	fl.BoolVarP(&rename, "rename", "r", false, "rename files to \"Artist - Title.mp3\" after tagging")
	fl.BoolVar(&all, "all", false, "also look up files that already have tags")
	fl.Float64Var(&threshold, "threshold", metadata.DefaultConfidenceThreshold, "minimum match score for --auto (0.0-1.0)")
	return cmd
}

// newPromptChooser asks on out which result to apply and reads the answer
// from in.
func newPromptChooser(in *bufio.Scanner, out io.Writer) pipeline.Chooser {
	return func(ctx context.Context, file metadata.AudioFile, query string, results []metadata.TrackInfo, best int) (int, error) {
		fmt.Fprintf(out, "\n%s %s\n", colorInfo.Sprint("File:"), file.Filename())
		fmt.Fprintf(out, "%s %q\n", colorInfo.Sprint("Query:"), query)
		for i, r := range results {
			marker := "  "
			if i == best {
				marker = colorSuccess.Sprint("* ")
			}
			fmt.Fprintf(out, "%s%2d. %s%s (%s)\n", marker, i+1, r.Summary(), yearSuffix(r), r.Source)
		}

		for {
			if err := ctx.Err(); err != nil {
				return pipeline.Skip, err
			}
			fmt.Fprint(out, colorPrompt.Sprintf("Select [1-%d, Enter = %d, s = skip, q = quit]: ", len(results), best+1))
			if !in.Scan() {
				if err := in.Err(); err != nil {
					return pipeline.Skip, err
				}
				return pipeline.Skip, errQuit
			}

			choice, err := parseChoice(in.Text(), len(results), best)
			if err == nil || errors.Is(err, errQuit) {
				return choice, err
			}
			fmt.Fprintln(out, colorWarning.Sprint(err))
		}
	}
}

// parseChoice turns an answer into a result index. Numbers are 1-based.
func parseChoice(answer string, n, best int) (int, error) {
	answer = strings.ToLower(strings.TrimSpace(answer))
	switch answer {
	case "":
		return best, nil
	case "s", "skip":
		return pipeline.Skip, nil
	case "q", "quit":
		return pipeline.Skip, errQuit
	}
	i, err := strconv.Atoi(answer)
	if err != nil || i < 1 || i > n {
		return pipeline.Skip, fmt.Errorf("enter a number between 1 and %d", n)
	}
	return i - 1, nil
}

func yearSuffix(t metadata.TrackInfo) string {
	if t.Year == nil {
		return ""
	}
	return fmt.Sprintf(" %d", *t.Year)
}

func printStats(out io.Writer, s pipeline.Stats) {
	fmt.Fprintln(out)
	colorInfo.Fprintf(out, "Summary: %d files\n", s.Total)
	if s.Applied > 0 {
		colorSuccess.Fprintf(out, "  tagged:  %d\n", s.Applied)
	}
	if s.Renamed > 0 {
		colorSuccess.Fprintf(out, "  renamed: %d\n", s.Renamed)
	}
	if s.Skipped > 0 {
		colorWarning.Fprintf(out, "  skipped: %d\n", s.Skipped)
	}
	if s.Failed > 0 {
		colorError.Fprintf(out, "  failed:  %d\n", s.Failed)
	}
}
