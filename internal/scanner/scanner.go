// Package scanner finds MP3 files on disk and loads their embedded tags.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"mp3tag/internal/metadata"
)

var (
	ErrNotFound             = errors.New("path not found")
	ErrNotDirectory         = errors.New("not a directory")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
)

// ScanPath scans path as a directory, or loads it as a single file.
func ScanPath(path string) ([]metadata.AudioFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return ScanDirectory(path)
	}
	file, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []metadata.AudioFile{file}, nil
}

// ScanDirectory recursively finds all MP3 files under dir, sorted by path.
// Files whose tags cannot be parsed are returned as untagged, with the
// parse error in TagErr.
func ScanDirectory(dir string) ([]metadata.AudioFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	var files []metadata.AudioFile
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable sub-trees are skipped
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() || !metadata.HasExtension(path) {
			return nil
		}
		tags, err := metadata.ReadTags(path)
		file := newAudioFile(path, tags)
		if err != nil {
			file.TagErr = err
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", dir, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// LoadFile loads a single MP3 file. Unlike ScanDirectory, a malformed tag is
// returned as an error.
func LoadFile(path string) (metadata.AudioFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return metadata.AudioFile{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return metadata.AudioFile{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() || !metadata.HasExtension(path) {
		return metadata.AudioFile{}, fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
	}

	tags, err := metadata.ReadTags(path)
	if err != nil {
		return metadata.AudioFile{}, err
	}
	return newAudioFile(path, tags), nil
}

func newAudioFile(path string, tags *metadata.TrackInfo) metadata.AudioFile {
	return metadata.AudioFile{
		Path:    path,
		Tags:    tags,
		HasTags: tags != nil,
	}
}
