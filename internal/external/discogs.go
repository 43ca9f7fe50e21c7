package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kshepherd/vibin-go/internal/model"
)

// No Go Discogs client library appears anywhere in the example pack (the
// Python original used the discogs_client PyPI package, which has no Go
// counterpart here); Discogs's search API is a single unauthenticated-
// shape JSON GET, so this wraps it directly with net/http the way the
// teacher's soap.Client wraps its own HTTP calls, rather than pulling in
// an unrelated REST-client library for one endpoint.
const (
	discogsSearchURL = "https://api.discogs.com/database/search"
	discogsPageBase  = "https://www.discogs.com"
)

// DiscogsClient resolves artist and album (master release) pages on
// discogs.com. Grounded on external_services/discogs.py's Discogs class.
type DiscogsClient struct {
	httpClient *http.Client
	userAgent  string
	token      string
	searchURL  string // overridden in tests
	pageBase   string // overridden in tests
}

// NewDiscogsClient builds a client, or returns nil if token is empty —
// callers register it only when non-nil, matching discogs.py's own
// "token: str | None" optionality and spec.md's env-var-gated
// registration.
func NewDiscogsClient(userAgent, token string) *DiscogsClient {
	if token == "" {
		return nil
	}
	return &DiscogsClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  userAgent,
		token:      token,
		searchURL:  discogsSearchURL,
		pageBase:   discogsPageBase,
	}
}

func (c *DiscogsClient) Name() string { return "Discogs" }

type discogsSearchResult struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type discogsSearchResponse struct {
	Results []discogsSearchResult `json:"results"`
}

// Links resolves artist and/or album links. Discogs has no track-level
// page, so a Track-only request always returns nothing.
func (c *DiscogsClient) Links(ctx context.Context, artist, album, track string, linkType LinkType) ([]model.ExternalLink, error) {
	var links []model.ExternalLink

	if artist != "" && wantsType(linkType, LinkTypeArtist) {
		link, err := c.search(ctx, artist, "artist")
		if err != nil {
			return nil, err
		}
		if link != nil {
			links = append(links, model.ExternalLink{Type: "Artist", Name: "Artist", URL: *link})
		}
	}

	if album != "" && wantsType(linkType, LinkTypeAlbum) {
		link, err := c.search(ctx, album, "master")
		if err != nil {
			return nil, err
		}
		if link != nil {
			links = append(links, model.ExternalLink{Type: "Album", Name: "Album", URL: *link})
		}
	}

	return links, nil
}

// search returns the first hit's full discogs.com URL, or nil if there
// were no results (discogs.py's IndexError-swallowing add_link).
func (c *DiscogsClient) search(ctx context.Context, query, resultType string) (*string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", resultType)
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discogs search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discogs search returned status %d", resp.StatusCode)
	}

	var parsed discogsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("discogs search returned invalid JSON: %w", err)
	}

	if len(parsed.Results) == 0 {
		return nil, nil
	}

	full := c.pageBase + parsed.Results[0].URI
	return &full, nil
}
