package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestGeniusClient(t *testing.T, searchHandler http.HandlerFunc) (*GeniusClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(searchHandler)
	t.Cleanup(server.Close)

	client := NewGeniusClient("test-token")
	require.NotNil(t, client)
	client.searchURL = server.URL
	return client, server
}

func TestNewGeniusClientReturnsNilWithoutToken(t *testing.T) {
	require.Nil(t, NewGeniusClient(""))
}

func TestGeniusLinksResolvesTrack(t *testing.T) {
	client, _ := newTestGeniusClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"response":{"hits":[{"result":{"url":"` + "http://example.invalid/lyrics" + `","title":"Karma Police","primary_artist":{"name":"Radiohead"}}}]}}`))
	})

	links, err := client.Links(context.Background(), "Radiohead", "", "Karma Police", LinkTypeTrack)
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, "Track", links[0].Type)
	require.Equal(t, "http://example.invalid/lyrics", links[0].URL)
}

func TestGeniusLinksNoHitsReturnsEmpty(t *testing.T) {
	client, _ := newTestGeniusClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"hits":[]}}`))
	})

	links, err := client.Links(context.Background(), "Unknown", "", "", LinkTypeArtist)
	require.NoError(t, err)
	require.Empty(t, links)
}

func TestGeniusLyricsScrapesAndChunks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="Lyrics__Container-abc">[Verse 1]
Line one
Line two</div></body></html>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"hits":[{"result":{"url":"` + server.URL + `/page","title":"Karma Police","primary_artist":{"name":"Radiohead"}}}]}}`))
	})

	client := NewGeniusClient("test-token")
	require.NotNil(t, client)
	client.searchURL = server.URL + "/search"

	chunks, err := client.Lyrics(context.Background(), "Radiohead", "Karma Police")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.NotNil(t, chunks[0].Header)
	require.Equal(t, "Verse 1", *chunks[0].Header)
	require.Equal(t, []string{"Line one", "Line two"}, chunks[0].Body)
}

func TestChunkLyricsDirectly(t *testing.T) {
	direct := chunkLyrics("[Verse 1]\nLine one\nLine two\n\nLine three")
	require.Len(t, direct, 2)
	require.NotNil(t, direct[0].Header)
	require.Equal(t, "Verse 1", *direct[0].Header)
	require.Equal(t, []string{"Line one", "Line two"}, direct[0].Body)
	require.Nil(t, direct[1].Header)
	require.Equal(t, []string{"Line three"}, direct[1].Body)
}

func TestChunkLyricsStripsYouMightAlsoLike(t *testing.T) {
	chunks := chunkLyrics("You might also like\n\n[Chorus]\nHey hey")
	require.Len(t, chunks, 1)
	require.Equal(t, "Chorus", *chunks[0].Header)
	require.Equal(t, []string{"Hey hey"}, chunks[0].Body)
}

func TestQueryForWithAndWithoutArtist(t *testing.T) {
	require.Equal(t, "Radiohead Karma Police", queryFor("Radiohead", "Karma Police"))
	require.Equal(t, "Karma Police", queryFor("", "Karma Police"))
}
