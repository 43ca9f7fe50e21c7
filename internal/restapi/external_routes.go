package restapi

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kshepherd/vibin-go/internal/api"
	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/external"
	"github.com/kshepherd/vibin-go/internal/model"
)

// fetchDiscogsAndGeniusLinks queries both external link providers
// independently (rather than through a single LinksProvider loop) so
// each provider's own best single result can be cached separately —
// LinksRepository's schema (one discogsURL/geniusURL pair per
// artist+album key) matches exactly that shape. Per spec.md §7,
// external-service failures degrade to empty and are logged, never
// failing the request.
func (d *Dependencies) fetchDiscogsAndGeniusLinks(r *http.Request, artist, album, track string, linkType external.LinkType) (discogsURL, geniusURL string, links []model.ExternalLink) {
	if d.Discogs != nil {
		discogsLinks, err := d.Discogs.Links(r.Context(), artist, album, track, linkType)
		if err != nil {
			d.logger().Printf("RESTAPI: discogs links lookup failed: %v", err)
		} else {
			links = append(links, discogsLinks...)
			if len(discogsLinks) > 0 {
				discogsURL = discogsLinks[0].URL
			}
		}
	}
	if d.Genius != nil {
		geniusLinks, err := d.Genius.Links(r.Context(), artist, album, track, linkType)
		if err != nil {
			d.logger().Printf("RESTAPI: genius links lookup failed: %v", err)
		} else {
			links = append(links, geniusLinks...)
			if len(geniusLinks) > 0 {
				geniusURL = geniusLinks[0].URL
			}
		}
	}
	return discogsURL, geniusURL, links
}

// resolveLinksCached serves /albums/{id}/links: artist+album is exactly
// LinksRepository's cache key. There is no artist links route.
func (d *Dependencies) resolveLinksCached(r *http.Request, artist, album string, linkType external.LinkType) ([]model.ExternalLink, error) {
	if cached, err := d.Links.Get(artist, album); err != nil {
		d.logger().Printf("RESTAPI: links cache read failed: %v", err)
	} else if cached != nil {
		var links []model.ExternalLink
		if cached.DiscogsURL != "" {
			links = append(links, model.ExternalLink{Type: "Artist", Name: "Discogs", URL: cached.DiscogsURL})
		}
		if cached.GeniusURL != "" {
			links = append(links, model.ExternalLink{Type: "Artist", Name: "Genius", URL: cached.GeniusURL})
		}
		return links, nil
	}

	discogsURL, geniusURL, links := d.fetchDiscogsAndGeniusLinks(r, artist, album, "", linkType)
	if err := d.Links.Put(artist, album, discogsURL, geniusURL); err != nil {
		d.logger().Printf("RESTAPI: links cache write failed: %v", err)
	}
	return links, nil
}

func (d *Dependencies) albumLinks(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	id := chi.URLParam(r, "id")
	album, err := d.findAlbum(r, id)
	if err != nil {
		return err
	}
	if album == nil {
		return apperrors.NewNotFoundResource("album", id)
	}

	linkType := external.LinkType(r.URL.Query().Get("all_types"))
	if linkType == "" {
		linkType = external.LinkTypeAlbum
	} else {
		linkType = external.LinkTypeAll
	}

	links, err := d.resolveLinksCached(r, album.Artist, album.Title, linkType)
	if err != nil {
		return err
	}
	api.WriteList(w, links, len(links))
	return nil
}

// trackLinks resolves a single track's artist/album/track links directly
// against the providers, uncached — LinksRepository's key shape
// (artist+album) doesn't carry a track column, so a per-track cache
// would need a schema change not worth making for this lower-traffic
// lookup; /albums/{id}/links (the common case) is cached.
func (d *Dependencies) trackLinks(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	id := chi.URLParam(r, "id")
	track, err := d.MediaServer.Metadata(r.Context(), id)
	if err != nil {
		return err
	}

	linkType := external.LinkType(r.URL.Query().Get("all_types"))
	if linkType == "" {
		linkType = external.LinkTypeTrack
	} else {
		linkType = external.LinkTypeAll
	}

	_, _, links := d.fetchDiscogsAndGeniusLinks(r, track.Artist, "", track.Title, linkType)
	api.WriteList(w, links, len(links))
	return nil
}

func (d *Dependencies) tracksLinksByName(w http.ResponseWriter, r *http.Request) error {
	artist := r.URL.Query().Get("artist")
	album := r.URL.Query().Get("album")
	title := r.URL.Query().Get("title")

	linkType := external.LinkType(r.URL.Query().Get("all_types"))
	if linkType == "" {
		linkType = external.LinkTypeTrack
	} else {
		linkType = external.LinkTypeAll
	}

	_, _, links := d.fetchDiscogsAndGeniusLinks(r, artist, album, title, linkType)
	api.WriteList(w, links, len(links))
	return nil
}

// resolveLyricsCached serves both /tracks/{id}/lyrics and
// /tracks/lyrics: LyricsRepository's key is exactly artist+title.
// updateCache forces a live re-fetch, bypassing (but still refreshing)
// the cache, matching tracks.py's update_cache query param.
func (d *Dependencies) resolveLyricsCached(r *http.Request, artist, title string, updateCache bool) ([]model.LyricsChunk, error) {
	if d.Genius == nil {
		return nil, nil
	}

	if !updateCache {
		if cached, err := d.Lyrics.Get(artist, title); err != nil {
			d.logger().Printf("RESTAPI: lyrics cache read failed: %v", err)
		} else if cached != nil {
			if cached.Lyrics == nil {
				return nil, nil
			}
			var chunks []model.LyricsChunk
			if err := json.Unmarshal([]byte(*cached.Lyrics), &chunks); err == nil {
				return chunks, nil
			}
		}
	}

	chunks, err := d.Genius.Lyrics(r.Context(), artist, title)
	if err != nil {
		d.logger().Printf("RESTAPI: genius lyrics lookup failed: %v", err)
		chunks = nil
	}

	encoded, err := json.Marshal(chunks)
	if err != nil {
		d.logger().Printf("RESTAPI: lyrics cache encode failed: %v", err)
	} else {
		text := string(encoded)
		if err := d.Lyrics.Put(artist, title, &text); err != nil {
			d.logger().Printf("RESTAPI: lyrics cache write failed: %v", err)
		}
	}

	return chunks, nil
}

func (d *Dependencies) trackLyrics(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	id := chi.URLParam(r, "id")
	track, err := d.MediaServer.Metadata(r.Context(), id)
	if err != nil {
		return err
	}

	chunks, err := d.resolveLyricsCached(r, track.Artist, track.Title, queryBool(r, "update_cache", false))
	if err != nil {
		return err
	}
	api.WriteResource(w, map[string]any{"lyrics": chunks})
	return nil
}

func (d *Dependencies) tracksLyricsByName(w http.ResponseWriter, r *http.Request) error {
	artist := r.URL.Query().Get("artist")
	title := r.URL.Query().Get("title")
	if title == "" {
		return apperrors.NewInputError("missing title", nil)
	}

	chunks, err := d.resolveLyricsCached(r, artist, title, queryBool(r, "update_cache", false))
	if err != nil {
		return err
	}
	api.WriteResource(w, map[string]any{"lyrics": chunks})
	return nil
}

func (d *Dependencies) waveformDependency() error {
	if d.Waveform == nil {
		return apperrors.NewMissingDependencyError("audiowaveform")
	}
	return nil
}

func (d *Dependencies) trackWaveformPNG(w http.ResponseWriter, r *http.Request) error {
	return d.writeWaveform(w, r, external.WaveformPNG, "image/png")
}

// trackWaveform content-negotiates on Accept, matching tracks.py's
// waveform endpoint: application/octet-stream -> .dat, image/png ->
// .png, anything else (including the default) -> .json.
func (d *Dependencies) trackWaveform(w http.ResponseWriter, r *http.Request) error {
	switch r.Header.Get("Accept") {
	case "application/octet-stream":
		return d.writeWaveform(w, r, external.WaveformDat, "application/octet-stream")
	case "image/png":
		return d.writeWaveform(w, r, external.WaveformPNG, "image/png")
	default:
		return d.writeWaveform(w, r, external.WaveformJSON, "application/json")
	}
}

func (d *Dependencies) writeWaveform(w http.ResponseWriter, r *http.Request, format external.WaveformFormat, contentType string) error {
	if err := d.waveformDependency(); err != nil {
		return err
	}
	id := chi.URLParam(r, "id")
	width := queryInt(r, "width", 800)
	height := queryInt(r, "height", 250)

	data, err := d.Waveform.Waveform(r.Context(), id, format, width, height)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return nil
}

type waveformJSON struct {
	Data []float64 `json:"data"`
}

// trackRMS computes RMS, peak and rms-to-peak ratio from the JSON
// waveform's sample data — waveform_manager.py computes this in the
// same handler rather than inside its waveform generator, since it's a
// property of the samples, not of rendering them.
func (d *Dependencies) trackRMS(w http.ResponseWriter, r *http.Request) error {
	if err := d.waveformDependency(); err != nil {
		return err
	}
	id := chi.URLParam(r, "id")

	raw, err := d.Waveform.Waveform(r.Context(), id, external.WaveformJSON, 0, 0)
	if err != nil {
		return err
	}

	var parsed waveformJSON
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return apperrors.NewInternal("invalid waveform data: " + err.Error())
	}
	if len(parsed.Data) == 0 {
		api.WriteResource(w, map[string]any{"rms": 0, "peak": 0, "rmsToPeakRatio": 0})
		return nil
	}

	var sumSquares, peak float64
	for _, sample := range parsed.Data {
		abs := math.Abs(sample)
		sumSquares += sample * sample
		if abs > peak {
			peak = abs
		}
	}
	rms := math.Sqrt(sumSquares / float64(len(parsed.Data)))
	ratio := 0.0
	if peak > 0 {
		ratio = rms / peak
	}

	api.WriteResource(w, map[string]any{"rms": rms, "peak": peak, "rmsToPeakRatio": ratio})
	return nil
}
