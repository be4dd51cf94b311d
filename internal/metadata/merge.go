package metadata

// Merge reconciles incoming metadata with what is already known about a file.
// Each field of incoming wins when present, otherwise the existing value is
// kept. The provenance always comes from incoming. Neither argument is
// modified.
func Merge(existing *TrackInfo, incoming TrackInfo) TrackInfo {
	if existing == nil {
		return incoming.Clone()
	}
	old := existing.Clone()
	merged := incoming.Clone()

	merged.Title = pick(merged.Title, old.Title)
	merged.Artist = pick(merged.Artist, old.Artist)
	merged.Album = pick(merged.Album, old.Album)
	merged.AlbumArtist = pick(merged.AlbumArtist, old.AlbumArtist)
	merged.TrackNumber = pick(merged.TrackNumber, old.TrackNumber)
	merged.Year = pick(merged.Year, old.Year)
	merged.Genre = pick(merged.Genre, old.Genre)
	if merged.AlbumArt == nil {
		merged.AlbumArt = old.AlbumArt
	}
	if merged.AlbumArtURL == "" {
		merged.AlbumArtURL = old.AlbumArtURL
	}
	return merged
}

func pick[T any](incoming, existing *T) *T {
	if incoming != nil {
		return incoming
	}
	return existing
}
