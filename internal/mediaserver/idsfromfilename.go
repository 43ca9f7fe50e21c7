package mediaserver

import (
	"path"
	"regexp"
	"strings"

	"github.com/kshepherd/vibin-go/internal/model"
)

// potentialIdPattern matches Asset's id shape: a letter, an optional
// hyphen, then one or more alphanumeric characters ("d-12345",
// "co12A345").
var potentialIdPattern = regexp.MustCompile(`(?i)[a-z]-?[a-z0-9]+`)

// IdsFromFilename extracts candidate album/artist/track ids embedded in
// a waveform or lyrics cache filename's stem, classifying each token
// against the cached album/artist/track id sets. When only a track id
// is found, the track's own album id backfills AlbumId.
func (a *AssetAdapter) IdsFromFilename(stem string) FilenameIds {
	stem = strings.TrimSuffix(path.Base(stem), path.Ext(stem))
	tokens := potentialIdPattern.FindAllString(stem, -1)

	a.mu.RLock()
	albums := a.albums
	artists := a.artists
	tracks := a.tracks
	a.mu.RUnlock()

	var result FilenameIds
	for _, token := range tokens {
		if albums != nil {
			if _, ok := albums[model.MediaId(token)]; ok {
				result.AlbumId = model.MediaId(token)
				continue
			}
		}
		if artists != nil {
			if _, ok := artists[model.MediaId(token)]; ok {
				result.ArtistId = model.MediaId(token)
				continue
			}
		}
		if tracks != nil {
			if _, ok := tracks[model.MediaId(token)]; ok {
				result.TrackId = model.MediaId(token)
			}
		}
	}

	if result.AlbumId == "" && result.TrackId != "" && tracks != nil {
		if track, ok := tracks[result.TrackId]; ok {
			result.AlbumId = track.AlbumId
		}
	}

	return result
}
