package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// ErrMalformedTag is returned when a file carries an ID3 header that cannot be parsed.
var ErrMalformedTag = errors.New("malformed id3 tag")

const (
	frameTitle       = "TIT2"
	frameArtist      = "TPE1"
	frameAlbum       = "TALB"
	frameAlbumArtist = "TPE2"
	frameTrack       = "TRCK"
	frameGenre       = "TCON"
	frameYearV3      = "TYER"
	frameYearV4      = "TDRC"
	framePicture     = "APIC"
)

// id3HeaderSize is the length of an ID3v2 header and of its optional footer.
const id3HeaderSize = 10

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47}

// ReadTags reads the embedded ID3 tag of an MP3 file. It returns nil and no
// error when the file has no tag, or when title, artist and album are all
// empty. Only the first embedded picture is loaded.
func ReadTags(path string) (*TrackInfo, error) {
	tag, err := openTag(path)
	if err != nil {
		return nil, err
	}
	defer tag.Close()

	if !tag.HasFrames() {
		return nil, nil
	}

	info := TrackInfo{
		Title:       textFrame(tag, frameTitle),
		Artist:      textFrame(tag, frameArtist),
		Album:       textFrame(tag, frameAlbum),
		AlbumArtist: textFrame(tag, frameAlbumArtist),
		Source:      SourceEmbedded,
	}
	if !info.HasUsableTags() {
		return nil, nil
	}

	if trck := textFrame(tag, frameTrack); trck != nil {
		info.TrackNumber = parseLeadingInt(*trck, "/")
	}
	year := textFrame(tag, frameYearV4)
	if year == nil {
		year = textFrame(tag, frameYearV3)
	}
	if year != nil {
		info.Year = ParseYear(*year)
	}
	if genre := textFrame(tag, frameGenre); genre != nil {
		if g := parseGenre(*genre); g != "" {
			info.Genre = String(g)
		}
	}

	for _, f := range tag.GetFrames(framePicture) {
		if pic, ok := f.(id3v2.PictureFrame); ok {
			info.AlbumArt = pic.Picture
			break
		}
	}

	return &info, nil
}

// WriteTags writes every field present in info to the file's ID3 tag,
// creating the tag if the file has none. Absent fields keep their current
// value. When info carries album art, all existing pictures are replaced by a
// single front cover. The tag is always saved as ID3v2.4. A tag that cannot
// be parsed is discarded and replaced by a new one.
func WriteTags(path string, info TrackInfo) error {
	tag, err := openTag(path)
	if errors.Is(err, ErrMalformedTag) {
		if err = stripTag(path); err == nil {
			tag, err = openTag(path)
		}
	}
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	setText(tag, frameTitle, info.Title)
	setText(tag, frameArtist, info.Artist)
	setText(tag, frameAlbum, info.Album)
	setText(tag, frameAlbumArtist, info.AlbumArtist)
	setText(tag, frameGenre, info.Genre)
	if info.TrackNumber != nil {
		tag.AddTextFrame(frameTrack, id3v2.EncodingUTF8, strconv.Itoa(*info.TrackNumber))
	}
	if info.Year != nil {
		tag.DeleteFrames(frameYearV3)
		tag.AddTextFrame(frameYearV4, id3v2.EncodingUTF8, strconv.Itoa(*info.Year))
	}

	if info.AlbumArt != nil {
		tag.DeleteFrames(framePicture)
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    DetectMIMEType(info.AlbumArt),
			PictureType: id3v2.PTFrontCover,
			Picture:     info.AlbumArt,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to write tags to %s: %w", path, err)
	}
	return nil
}

// DetectMIMEType sniffs an image: PNG data is image/png, anything else is
// assumed to be image/jpeg.
func DetectMIMEType(data []byte) string {
	if bytes.HasPrefix(data, pngMagic) {
		return "image/png"
	}
	return "image/jpeg"
}

func openTag(path string) (*id3v2.Tag, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		return nil, fmt.Errorf("%w in %s: %v", ErrMalformedTag, path, err)
	}
	return tag, nil
}

// stripTag removes the leading ID3v2 container of path, whatever its version.
func stripTag(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) < id3HeaderSize || !bytes.HasPrefix(data, []byte("ID3")) {
		return fmt.Errorf("%w in %s: no id3v2 header", ErrMalformedTag, path)
	}

	// Size bytes are synchsafe: 7 significant bits each.
	size := 0
	for _, b := range data[6:10] {
		size = size<<7 | int(b&0x7F)
	}
	size += id3HeaderSize
	if data[5]&0x10 != 0 {
		size += id3HeaderSize
	}
	size = min(size, len(data))

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	// Written next to the original and renamed over it, so a failure leaves path untouched.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mp3tag-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data[size:])
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), info.Mode().Perm())
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	return nil
}

func textFrame(tag *id3v2.Tag, id string) *string {
	text := strings.TrimRight(tag.GetTextFrame(id).Text, "\x00")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &text
}

func setText(tag *id3v2.Tag, id string, value *string) {
	if value == nil {
		return
	}
	tag.AddTextFrame(id, id3v2.EncodingUTF8, *value)
}

func parseLeadingInt(s, sep string) *int {
	head, _, _ := strings.Cut(strings.TrimSpace(s), sep)
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

var genreRef = regexp.MustCompile(`^\((\d+)\)`)

// parseGenre resolves ID3v1 style references such as "(17)" or "(17)Rock".
func parseGenre(raw string) string {
	raw = strings.TrimSpace(raw)
	m := genreRef.FindStringSubmatch(raw)
	if m == nil {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n < len(id3v1Genres) {
			return id3v1Genres[n]
		}
		return raw
	}
	if rest := strings.TrimSpace(raw[len(m[0]):]); rest != "" {
		return rest
	}
	if n, _ := strconv.Atoi(m[1]); n < len(id3v1Genres) {
		return id3v1Genres[n]
	}
	return raw
}

var id3v1Genres = []string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge", "Hip-Hop",
	"Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B", "Rap",
	"Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska", "Death Metal", "Pranks",
	"Soundtrack", "Euro-Techno", "Ambient", "Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance",
	"Classical", "Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel", "Noise",
	"AlternRock", "Bass", "Soul", "Punk", "Space", "Meditative", "Instrumental Pop", "Instrumental Rock",
	"Ethnic", "Gothic", "Darkwave", "Techno-Industrial", "Electronic", "Pop-Folk", "Eurodance", "Dream",
	"Southern Rock", "Comedy", "Cult", "Gangsta", "Top 40", "Christian Rap", "Pop/Funk", "Jungle",
	"Native American", "Cabaret", "New Wave", "Psychadelic", "Rave", "Showtunes", "Trailer", "Lo-Fi",
	"Tribal", "Acid Punk", "Acid Jazz", "Polka", "Retro", "Musical", "Rock & Roll", "Hard Rock",
}
