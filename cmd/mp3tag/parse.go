package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mp3tag/internal/metadata"
)

func newParseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse NAME...",
		Short: "Show the artist, title and search query guessed from file names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tARTIST\tTITLE\tQUERY\tCLEANED")
			for _, name := range args {
				info := metadata.ParseFilename(name)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					name,
					info.DisplayArtist(),
					info.DisplayTitle(),
					metadata.BuildSearchQuery(info),
					metadata.CleanQuery(info),
				)
			}
			return tw.Flush()
		},
	}
}
