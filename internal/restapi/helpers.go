package restapi

import (
	"net/http"
	"strconv"

	"github.com/kshepherd/vibin-go/internal/apperrors"
)

// queryInt parses a query parameter as an int, returning fallback if
// absent or unparseable — GET-side query params are never required to
// be well-formed on the vibin REST surface; a bad value just falls back.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// queryBool parses a query parameter as a bool, defaulting to fallback.
func queryBool(r *http.Request, name string, fallback bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// requireIntParam parses a required numeric path/query value, returning
// an InputError when it's missing or malformed.
func requireIntParam(name, raw string) (int, error) {
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInputError("invalid "+name, map[string]any{"value": raw})
	}
	return parsed, nil
}
