package mediaserver

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/upnp/soap"
)

// browseResponseFor builds a SOAP BrowseResponse envelope wrapping an
// escaped DIDL-Lite fragment, the shape a ContentDirectory's Browse
// action actually returns.
func browseResponseFor(didlFragment string) string {
	escaped := html.EscapeString(didlFragment)
	return fmt.Sprintf(`<s:Envelope><s:Body><u:BrowseResponse><Result>%s</Result><NumberReturned>1</NumberReturned><TotalMatches>1</TotalMatches></u:BrowseResponse></s:Body></s:Envelope>`, escaped)
}

// rootServer serves a three-level tree: root -> "All Albums" container ->
// one album container -> one track item, and also answers a direct
// BrowseMetadata lookup for the track/album id.
func rootServerHandler(w http.ResponseWriter, r *http.Request) {
	body := make([]byte, r.ContentLength)
	r.Body.Read(body)
	req := string(body)

	w.Header().Set("Content-Type", "text/xml")

	switch {
	case strings.Contains(req, "<ObjectID>0</ObjectID>") && strings.Contains(req, "BrowseDirectChildren"):
		w.Write([]byte(browseResponseFor(
			`<DIDL-Lite><container id="all-albums" parentID="0"><title>All Albums</title><class>object.container</class></container></DIDL-Lite>`,
		)))
	case strings.Contains(req, "<ObjectID>all-albums</ObjectID>") && strings.Contains(req, "BrowseDirectChildren"):
		w.Write([]byte(browseResponseFor(
			`<DIDL-Lite><container id="album-1" parentID="all-albums"><title>Album One</title><creator>Artist One</creator><date>2020-01-01</date><genre>Rock</genre><class>object.container.album.musicAlbum</class></container></DIDL-Lite>`,
		)))
	case strings.Contains(req, "<ObjectID>album-1</ObjectID>") && strings.Contains(req, "BrowseDirectChildren"):
		w.Write([]byte(browseResponseFor(
			`<DIDL-Lite><item id="track-1" parentID="album-1"><title>Track One</title><artist>Artist One</artist><class>object.item.audioItem.musicTrack</class><res protocolInfo="http-get:*:audio/flac:*">http://example/track-1.flac</res></item></DIDL-Lite>`,
		)))
	case strings.Contains(req, "<ObjectID>track-1</ObjectID>") && strings.Contains(req, "BrowseMetadata"):
		w.Write([]byte(browseResponseFor(
			`<DIDL-Lite><item id="track-1" parentID="album-1"><title>Track One</title><artist>Artist One</artist><class>object.item.audioItem.musicTrack</class><res protocolInfo="http-get:*:audio/flac:*">http://example/track-1.flac</res></item></DIDL-Lite>`,
		)))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newRootServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(rootServerHandler))
}

func newTestAdapter(t *testing.T, serverURL string) *AssetAdapter {
	t.Helper()
	return NewAssetAdapter("asset-test", "uuid:asset-test-udn", serverURL, soap.NewClient(2*time.Second), RootPaths{
		AllAlbums:  "All Albums",
		NewAlbums:  "All Albums",
		AllArtists: "All Albums",
	})
}

func TestAlbumsNavigatesAndCaches(t *testing.T) {
	server := newRootServer(t)
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	albums, err := a.Albums(context.Background())
	require.NoError(t, err)
	require.Len(t, albums, 1)
	require.Equal(t, "Album One", albums[0].Title)
	require.Equal(t, "Artist One", albums[0].Artist)

	// Second call must hit the cache, not the server.
	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request on cached Albums() call")
	})
	albumsAgain, err := a.Albums(context.Background())
	require.NoError(t, err)
	require.Equal(t, albums, albumsAgain)
}

func TestChildrenSplitsFoldersAndTracks(t *testing.T) {
	server := newRootServer(t)
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	folders, tracks, err := a.Children(context.Background(), "album-1")
	require.NoError(t, err)
	require.Empty(t, folders)
	require.Len(t, tracks, 1)
	require.Equal(t, "Track One", tracks[0].Title)
	require.Equal(t, "Artist One", tracks[0].Artist)
}

func TestMetadataCachesResultUntilTTLExpiry(t *testing.T) {
	server := newRootServer(t)
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	track, err := a.Metadata(context.Background(), "track-1")
	require.NoError(t, err)
	require.Equal(t, "Track One", track.Title)

	cached, ok := a.metadataCache.get("track-1")
	require.True(t, ok)
	require.Equal(t, track, cached)
}

func TestDIDLForTrackBuildsPlayableItem(t *testing.T) {
	server := newRootServer(t)
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	didlXML, resourceURI, err := a.DIDLForTrack(context.Background(), "track-1")
	require.NoError(t, err)
	require.Contains(t, didlXML, "Track One")
	require.Equal(t, "http://example/track-1.flac", resourceURI)
}

func TestClearCachesForcesReload(t *testing.T) {
	server := newRootServer(t)
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	_, err := a.Albums(context.Background())
	require.NoError(t, err)

	a.ClearCaches()

	requestSeen := false
	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestSeen = true
		rootServerHandler(w, r)
	})
	_, err = a.Albums(context.Background())
	require.NoError(t, err)
	require.True(t, requestSeen, "ClearCaches should force a fresh Browse on next Albums() call")
}
