package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mp3tag/internal/renamer"
	"mp3tag/internal/scanner"
)

func newRenameCommand(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "rename PATH",
		Short: "Rename tagged files to \"Artist - Title.mp3\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := scanner.ScanPath(args[0])
			if err != nil {
				return err
			}

			var renamed, skipped, failed int
			for _, f := range files {
				if f.Tags == nil {
					a.log.Debug("%s: no tags, skipping", f.Filename())
					skipped++
					continue
				}
				name, ok := renamer.BuildFilename(*f.Tags)
				if !ok {
					a.log.Info("%s: artist or title missing, skipping", f.Filename())
					skipped++
					continue
				}
				if name == f.Filename() {
					continue
				}

				if dryRun {
					a.log.Info("%s -> %s", f.Filename(), name)
					renamed++
					continue
				}
				newPath, err := renamer.Rename(f.Path, *f.Tags)
				switch {
				case errors.Is(err, renamer.ErrTargetExists):
					a.log.Warn("%s: %v", f.Filename(), err)
					failed++
				case err != nil:
					a.log.Error("%s: %v", f.Filename(), err)
					failed++
				case newPath != f.Path:
					a.log.Info("%s -> %s", f.Filename(), name)
					renamed++
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, colorInfo.Sprintf("%d renamed, %d skipped, %d failed", renamed, skipped, failed))
			if failed > 0 && renamed == 0 {
				return fmt.Errorf("%d files could not be renamed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "only show what would be renamed")
	return cmd
}
