package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mp3tag/internal/metadata"
	"mp3tag/internal/renamer"
	"mp3tag/internal/scanner"
)

type editFlags struct {
	title, artist, album, albumArtist, genre string
	track, year                              int
	albumArt                                 string
	rename                                   bool
}

func newEditCommand(a *app) *cobra.Command {
	var f editFlags

	cmd := &cobra.Command{
		Use:   "edit FILE",
		Short: "Set tags by hand",
		Long: "Set tags by hand. Only the given fields change; every other field\n" +
			"keeps its current value.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manual, err := f.record(cmd)
			if err != nil {
				return err
			}
			if f.albumArt == "" && !anyFieldChanged(cmd) {
				return errors.New("nothing to change, pass at least one field flag")
			}

			file, err := scanner.LoadFile(args[0])
			if err != nil {
				return err
			}

			merged := metadata.Merge(file.Tags, manual)
			if err := metadata.WriteTags(file.Path, merged); err != nil {
				return err
			}
			a.log.Info("%s: %s", file.Filename(), colorSuccess.Sprint("saved ", merged.Summary()))

			rename := a.cfg.Rename
			if cmd.Flags().Changed("rename") {
				rename = f.rename
			}
			if rename {
				newPath, err := renamer.Rename(file.Path, merged)
				if err != nil {
					return err
				}
				if newPath != file.Path {
					a.log.Info("Renamed to %s", newPath)
				}
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.title, "title", "", "track title")
	fl.StringVar(&f.artist, "artist", "", "track artist")
	fl.StringVar(&f.album, "album", "", "album title")
	fl.StringVar(&f.albumArtist, "album-artist", "", "album artist")
	fl.StringVar(&f.genre, "genre", "", "genre")
	fl.IntVar(&f.track, "track", 0, "track number")
	fl.IntVar(&f.year, "year", 0, "release year")
	fl.StringVar(&f.albumArt, "album-art", "", "image file to embed as the front cover")
	fl.BoolVar(&f.rename, "rename", false, "rename the file to \"Artist - Title.mp3\" afterwards")
	return cmd
}

var editFieldFlags = []string{"title", "artist", "album", "album-artist", "genre", "track", "year"}

func anyFieldChanged(cmd *cobra.Command) bool {
	for _, name := range editFieldFlags {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// record builds the manual record from the flags that were set. Unset flags
// stay absent so Merge keeps the current values.
func (f editFlags) record(cmd *cobra.Command) (metadata.TrackInfo, error) {
	changed := cmd.Flags().Changed
	info := metadata.TrackInfo{Source: metadata.SourceManual}

	strs := []struct {
		flag  string
		value string
		dst   **string
	}{
		{"title", f.title, &info.Title},
		{"artist", f.artist, &info.Artist},
		{"album", f.album, &info.Album},
		{"album-artist", f.albumArtist, &info.AlbumArtist},
		{"genre", f.genre, &info.Genre},
	}
	for _, s := range strs {
		if changed(s.flag) {
			*s.dst = metadata.String(s.value)
		}
	}

	if changed("track") {
		if f.track < 0 {
			return info, fmt.Errorf("invalid track number %d", f.track)
		}
		info.TrackNumber = metadata.Int(f.track)
	}
	if changed("year") {
		info.Year = metadata.Int(f.year)
	}

	if f.albumArt != "" {
		data, err := os.ReadFile(f.albumArt)
		if err != nil {
			return info, fmt.Errorf("failed to read album art: %w", err)
		}
		info.AlbumArt = data
	}
	return info, nil
}
