package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mp3tag/internal/metadata"
	"mp3tag/internal/scanner"
)

func newScanCommand(a *app) *cobra.Command {
	var untaggedOnly bool

	cmd := &cobra.Command{
		Use:   "scan PATH",
		Short: "List MP3 files and their current tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := scanner.ScanPath(args[0])
			if err != nil {
				return err
			}

			// Colour is applied to whole lines after alignment, since
			// tabwriter counts escape sequences as cell width.
			var table bytes.Buffer
			tw := tabwriter.NewWriter(&table, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tTAGS\tARTIST\tTITLE\tALBUM\tTRACK\tYEAR")

			var (
				styles   []*color.Color
				untagged int
			)
			for _, f := range files {
				if !f.HasTags {
					untagged++
				} else if untaggedOnly {
					continue
				}
				row, style := scanRow(args[0], f)
				fmt.Fprintln(tw, row)
				styles = append(styles, style)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			lines := strings.Split(strings.TrimSuffix(table.String(), "\n"), "\n")
			fmt.Fprintln(out, lines[0])
			for i, line := range lines[1:] {
				if styles[i] == nil {
					fmt.Fprintln(out, line)
					continue
				}
				styles[i].Fprintln(out, line)
			}

			for _, f := range files {
				if f.TagErr != nil {
					a.log.Warn("%s: %v", f.Filename(), f.TagErr)
				}
			}
			fmt.Fprintf(out, "\n%s\n", colorInfo.Sprintf("%d files, %d untagged", len(files), untagged))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&untaggedOnly, "untagged", "u", false, "only list files without usable tags")
	return cmd
}

// scanRow formats one table row and picks the colour of its line.
func scanRow(root string, f metadata.AudioFile) (string, *color.Color) {
	name := f.Path
	if rel, err := filepath.Rel(root, f.Path); err == nil && rel != "." {
		name = rel
	} else {
		name = f.Filename()
	}

	switch {
	case f.TagErr != nil:
		return name + "\tmalformed\t-\t-\t-\t-\t-", colorError
	case !f.HasTags || f.Tags == nil:
		return name + "\tno\t-\t-\t-\t-\t-", colorWarning
	}
	t := f.Tags
	return name + "\tyes\t" +
		t.DisplayArtist() + "\t" + t.DisplayTitle() + "\t" + t.DisplayAlbum() + "\t" +
		optionalInt(t.TrackNumber) + "\t" + optionalInt(t.Year), nil
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
