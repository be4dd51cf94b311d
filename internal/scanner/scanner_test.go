package scanner

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mp3tag/internal/metadata"
)

var silence = bytes.Repeat(append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 413)...), 2)

func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeTagged(t *testing.T, path string, info metadata.TrackInfo) string {
	t.Helper()
	writeFile(t, path, silence)
	require.NoError(t, metadata.WriteTags(path, info))
	return path
}

func malformed() []byte {
	return append([]byte("ID3\x02\x00\x00\x00\x00\x00\x10"), make([]byte, 64)...)
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	tagged := writeTagged(t, filepath.Join(root, "b", "IU - Blueming.mp3"),
		metadata.TrackInfo{Title: metadata.String("Blueming"), Artist: metadata.String("IU"), Source: metadata.SourceManual})
	untagged := writeFile(t, filepath.Join(root, "a.MP3"), silence)
	broken := writeFile(t, filepath.Join(root, "c", "d", "broken.mp3"), malformed())
	writeFile(t, filepath.Join(root, "cover.jpg"), []byte{0xFF, 0xD8})
	writeFile(t, filepath.Join(root, "notes.mp3.txt"), []byte("x"))

	files, err := ScanDirectory(root)
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, untagged, files[0].Path)
	assert.False(t, files[0].HasTags)
	assert.Nil(t, files[0].Tags)

	assert.Equal(t, tagged, files[1].Path)
	assert.True(t, files[1].HasTags)
	require.NotNil(t, files[1].Tags)
	assert.Equal(t, "Blueming", *files[1].Tags.Title)
	assert.Equal(t, metadata.SourceEmbedded, files[1].Tags.Source)

	assert.Equal(t, broken, files[2].Path)
	assert.False(t, files[2].HasTags)
	assert.ErrorIs(t, files[2].TagErr, metadata.ErrMalformedTag)
	assert.NoError(t, files[0].TagErr)
	assert.NoError(t, files[1].TagErr)
}

func TestScanDirectoryEmpty(t *testing.T) {
	files, err := ScanDirectory(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScanDirectoryErrors(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, filepath.Join(root, "a.mp3"), silence)

	_, err := ScanDirectory(file)
	assert.True(t, errors.Is(err, ErrNotDirectory), "got %v", err)

	_, err = ScanDirectory(filepath.Join(root, "missing"))
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	tagged := writeTagged(t, filepath.Join(root, "x.mp3"),
		metadata.TrackInfo{Album: metadata.String("Love poem"), Source: metadata.SourceManual})

	f, err := LoadFile(tagged)
	require.NoError(t, err)
	assert.True(t, f.HasTags)
	assert.Equal(t, "Love poem", *f.Tags.Album)

	_, err = LoadFile(filepath.Join(root, "missing.mp3"))
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = LoadFile(writeFile(t, filepath.Join(root, "song.flac"), silence))
	assert.True(t, errors.Is(err, ErrUnsupportedExtension), "got %v", err)

	_, err = LoadFile(writeFile(t, filepath.Join(root, "broken.mp3"), malformed()))
	assert.True(t, errors.Is(err, metadata.ErrMalformedTag), "got %v", err)
}

func TestScanPath(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, filepath.Join(root, "sub", "a.mp3"), silence)

	files, err := ScanPath(file)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file, files[0].Path)

	files, err = ScanPath(root)
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = ScanPath(filepath.Join(root, "nope"))
	assert.True(t, errors.Is(err, ErrNotFound))
}
