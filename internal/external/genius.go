package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kshepherd/vibin-go/internal/model"
)

const geniusSearchURL = "https://api.genius.com/search"

// GeniusClient resolves artist/album/track links and scrapes lyrics off
// Genius's own lyrics pages. Grounded on external_services/genius.py's
// Genius class; the original used the lyricsgenius PyPI package (a
// thin search-API wrapper plus an HTML scraper for the lyrics page
// itself, since Genius has no public lyrics API) — genius.go
// reimplements both halves directly: api.genius.com/search for the
// former, goquery for the latter (the example pack's own HTML-scraping
// library, per jatassi-SlipStream's go.mod).
type GeniusClient struct {
	httpClient *http.Client
	token      string
	searchURL  string // overridden in tests
}

// NewGeniusClient builds a client, or nil if token is empty.
func NewGeniusClient(token string) *GeniusClient {
	if token == "" {
		return nil
	}
	return &GeniusClient{httpClient: &http.Client{Timeout: 10 * time.Second}, token: token, searchURL: geniusSearchURL}
}

func (c *GeniusClient) Name() string { return "Genius" }

type geniusSearchHit struct {
	Result struct {
		URL        string `json:"url"`
		Title      string `json:"title"`
		PrimaryArtist struct {
			Name string `json:"name"`
		} `json:"primary_artist"`
	} `json:"result"`
}

type geniusSearchResponse struct {
	Response struct {
		Hits []geniusSearchHit `json:"hits"`
	} `json:"response"`
}

func (c *GeniusClient) Links(ctx context.Context, artist, album, track string, linkType LinkType) ([]model.ExternalLink, error) {
	var links []model.ExternalLink

	if artist != "" && wantsType(linkType, LinkTypeArtist) {
		hit, err := c.search(ctx, artist)
		if err != nil {
			return nil, err
		}
		if hit != nil {
			links = append(links, model.ExternalLink{Type: "Artist", Name: "Artist", URL: hit.Result.URL})
		}
	}

	if album != "" && wantsType(linkType, LinkTypeAlbum) {
		hit, err := c.search(ctx, queryFor(artist, album))
		if err != nil {
			return nil, err
		}
		if hit != nil {
			links = append(links, model.ExternalLink{Type: "Album", Name: "Album", URL: hit.Result.URL})
		}
	}

	if track != "" && wantsType(linkType, LinkTypeTrack) {
		hit, err := c.search(ctx, queryFor(artist, track))
		if err != nil {
			return nil, err
		}
		if hit != nil {
			links = append(links, model.ExternalLink{Type: "Track", Name: "Lyrics", URL: hit.Result.URL})
		}
	}

	return links, nil
}

// Lyrics resolves a track's lyrics page and scrapes it, chunking the
// result into header/body sections the way genius.py's lyrics() munges
// lyricsgenius's single blob of text.
func (c *GeniusClient) Lyrics(ctx context.Context, artist, track string) ([]model.LyricsChunk, error) {
	hit, err := c.search(ctx, queryFor(artist, track))
	if err != nil {
		return nil, err
	}
	if hit == nil {
		return nil, nil
	}

	raw, err := c.scrapeLyrics(ctx, hit.Result.URL)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	return chunkLyrics(raw), nil
}

func (c *GeniusClient) search(ctx context.Context, query string) (*geniusSearchHit, error) {
	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genius search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("genius search returned status %d", resp.StatusCode)
	}

	var parsed geniusSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("genius search returned invalid JSON: %w", err)
	}

	if len(parsed.Response.Hits) == 0 {
		return nil, nil
	}
	return &parsed.Response.Hits[0], nil
}

func (c *GeniusClient) scrapeLyrics(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("genius lyrics page request failed: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("genius lyrics page returned invalid HTML: %w", err)
	}

	var lines []string
	doc.Find(`div[class*="Lyrics__Container"]`).Each(func(_ int, s *goquery.Selection) {
		lines = append(lines, s.Text())
	})

	return strings.Join(lines, "\n\n"), nil
}

var chunkHeaderPattern = regexp.MustCompile(`^\[([^\[\]]+)\]$`)

// chunkLyrics splits a blob of lyrics on blank-line boundaries, treating
// a standalone "[Header]" line as that chunk's header rather than part
// of its body — the Go equivalent of genius.py's regex-based munging.
func chunkLyrics(raw string) []model.LyricsChunk {
	raw = strings.ReplaceAll(raw, "You might also like", "")

	var chunks []model.LyricsChunk
	for _, block := range strings.Split(raw, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		bodyLines := strings.Split(block, "\n")
		if match := chunkHeaderPattern.FindStringSubmatch(strings.TrimSpace(bodyLines[0])); match != nil {
			header := match[1]
			chunks = append(chunks, model.LyricsChunk{Header: &header, Body: bodyLines[1:]})
			continue
		}

		chunks = append(chunks, model.LyricsChunk{Body: bodyLines})
	}

	return chunks
}

func queryFor(artist, subject string) string {
	if artist == "" {
		return subject
	}
	return artist + " " + subject
}
