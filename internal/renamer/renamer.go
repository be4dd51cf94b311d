// Package renamer gives tagged files canonical "Artist - Title.mp3" names.
package renamer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"mp3tag/internal/metadata"
)

var (
	ErrTargetExists     = errors.New("target file already exists")
	ErrIncompleteRecord = errors.New("artist and title are required to rename")
)

// Sanitize replaces characters the current platform does not allow in file
// names with '_'.
func Sanitize(s string) string {
	return sanitize(s, runtime.GOOS)
}

func sanitize(s, goos string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == 0 {
			return '_'
		}
		switch goos {
		case "windows":
			if strings.ContainsRune(`\:*?"<>|`, r) || r < 0x20 || r == 0x7F {
				return '_'
			}
		case "darwin":
			if r == ':' {
				return '_'
			}
		}
		return r
	}, s)
}

// BuildFilename returns "Artist - Title.mp3" for info. It reports false when
// artist or title is missing or blank.
func BuildFilename(info metadata.TrackInfo) (string, bool) {
	return buildFilename(info, runtime.GOOS)
}

func buildFilename(info metadata.TrackInfo, goos string) (string, bool) {
	if info.Artist == nil || info.Title == nil {
		return "", false
	}
	artist := strings.TrimSpace(*info.Artist)
	title := strings.TrimSpace(*info.Title)
	if artist == "" || title == "" {
		return "", false
	}
	return sanitize(artist, goos) + " - " + sanitize(title, goos) + metadata.Extension, true
}

// Rename moves oldPath to its canonical name in the same directory and
// returns the new path. An existing file at the target is never overwritten.
func Rename(oldPath string, info metadata.TrackInfo) (string, error) {
	name, ok := BuildFilename(info)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrIncompleteRecord, oldPath)
	}

	current := filepath.Base(oldPath)
	if current == name {
		return oldPath, nil
	}

	target := filepath.Join(filepath.Dir(oldPath), name)
	if existing, err := os.Lstat(target); err == nil {
		// A case-only rename on a case-insensitive file system resolves to the same file.
		if !strings.EqualFold(current, name) {
			return "", fmt.Errorf("%w: %s", ErrTargetExists, target)
		}
		src, srcErr := os.Lstat(oldPath)
		if srcErr != nil || !os.SameFile(src, existing) {
			return "", fmt.Errorf("%w: %s", ErrTargetExists, target)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to check %s: %w", target, err)
	}

	if err := os.Rename(oldPath, target); err != nil {
		return "", fmt.Errorf("failed to rename %s to %s: %w", oldPath, target, err)
	}
	return target, nil
}
