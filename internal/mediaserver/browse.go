package mediaserver

import (
	"context"
	"strings"

	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/upnp/didl"
	"github.com/kshepherd/vibin-go/internal/upnp/soap"
)

const rootContainerId = "0"

// browseDirectChildren issues a Browse(BrowseDirectChildren) SOAP call
// against parentId and parses the returned DIDL-Lite fragment.
func (a *AssetAdapter) browseDirectChildren(ctx context.Context, parentId string) (*didl.Lite, error) {
	var result *didl.Lite
	err := a.gate.run(ctx, "BrowseDirectChildren("+parentId+")", func(ctx context.Context) error {
		body, err := a.soapClient.ExecuteAction(ctx, a.controlURL, soap.ServiceContentDirectory, "Browse", map[string]string{
			"ObjectID":       parentId,
			"BrowseFlag":     "BrowseDirectChildren",
			"Filter":         "*",
			"StartingIndex":  "0",
			"RequestedCount": "0",
			"SortCriteria":   "",
		})
		if err != nil {
			return apperrors.NewMediaServerError("BrowseDirectChildren failed for "+parentId+": "+err.Error(), nil)
		}

		didlXML, extractErr := extractBrowseResult(body)
		if extractErr != nil {
			return apperrors.NewMediaServerError("could not extract Browse result for "+parentId, map[string]any{"error": extractErr.Error()})
		}

		parsed, parseErr := didl.Parse([]byte(didlXML))
		if parseErr != nil {
			return apperrors.NewMediaServerError("could not parse DIDL-Lite for "+parentId, map[string]any{"error": parseErr.Error()})
		}
		result = parsed
		return nil
	})
	return result, err
}

// browseMetadataLite issues a Browse(BrowseMetadata) SOAP call for a
// single object id. It does no caching; Metadata holds the TTL cache.
func (a *AssetAdapter) browseMetadataLite(ctx context.Context, id string) (*didl.Lite, error) {
	var result *didl.Lite
	err := a.gate.run(ctx, "BrowseMetadata("+id+")", func(ctx context.Context) error {
		body, err := a.soapClient.ExecuteAction(ctx, a.controlURL, soap.ServiceContentDirectory, "Browse", map[string]string{
			"ObjectID":       id,
			"BrowseFlag":     "BrowseMetadata",
			"Filter":         "*",
			"StartingIndex":  "0",
			"RequestedCount": "0",
			"SortCriteria":   "",
		})
		if err != nil {
			return apperrors.NewMediaServerError("BrowseMetadata failed for "+id+": "+err.Error(), nil)
		}

		didlXML, extractErr := extractBrowseResult(body)
		if extractErr != nil {
			return apperrors.NewMediaServerError("could not extract Browse result for "+id, map[string]any{"error": extractErr.Error()})
		}

		parsed, parseErr := didl.Parse([]byte(didlXML))
		if parseErr != nil {
			return apperrors.NewMediaServerError("could not parse DIDL-Lite for "+id, map[string]any{"error": parseErr.Error()})
		}
		result = parsed
		return nil
	})
	return result, err
}

// navigatePath walks a slash-separated hint ("All Music/All Albums") from
// the root container, matching each segment against a child container's
// title, and returns the id of the final container.
func (a *AssetAdapter) navigatePath(ctx context.Context, path string) (string, error) {
	segments := splitPath(path)
	currentId := rootContainerId

	for _, segment := range segments {
		children, err := a.browseDirectChildren(ctx, currentId)
		if err != nil {
			return "", err
		}

		found := false
		for _, container := range children.Containers {
			if strings.EqualFold(container.Title, segment) {
				currentId = container.ID
				found = true
				break
			}
		}
		if !found {
			return "", apperrors.NewNotFoundResource("navigation path segment", segment)
		}
	}

	return currentId, nil
}

func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		trimmed := strings.TrimSpace(s)
		if trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return segments
}

// extractBrowseResult pulls the <Result> element's text (itself an
// escaped DIDL-Lite document) out of a Browse SOAP response body.
func extractBrowseResult(body []byte) (string, error) {
	const openTag = "<Result>"
	const closeTag = "</Result>"

	raw := string(body)
	start := strings.Index(raw, openTag)
	end := strings.Index(raw, closeTag)
	if start == -1 || end == -1 || end < start {
		return "", apperrors.NewMediaServerError("Browse response missing Result element", nil)
	}

	escaped := raw[start+len(openTag) : end]
	return unescapeXMLEntities(escaped), nil
}

func unescapeXMLEntities(s string) string {
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&#34;", `"`,
		"&#39;", "'",
		"&amp;", "&",
	)
	return replacer.Replace(s)
}
