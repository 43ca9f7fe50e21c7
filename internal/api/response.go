package api

import (
	"encoding/json"
	"net/http"

	"github.com/kshepherd/vibin-go/internal/apperrors"
)

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError converts err into an AppError and writes its Stripe-style
// envelope, tagging the response with the request id when present.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.EnsureAppError(err)
	body := struct {
		Error     apperrors.ErrorBody `json:"error"`
		RequestID string              `json:"request_id,omitempty"`
	}{
		Error:     appErr.ErrorBody(),
		RequestID: GetRequestID(r.Context()),
	}
	WriteJSON(w, appErr.StatusCode, body)
}

// Resource envelopes a single object result, as vibin's REST surface does
// for /transport/state, /albums/{id}, etc.
type Resource struct {
	Data any `json:"data"`
}

// WriteResource writes a single-object 200 response.
func WriteResource(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Resource{Data: data})
}

// List envelopes a collection result with a count, as vibin's REST surface
// does for /albums, /playlists, /favorites, etc.
type List struct {
	Data  any `json:"data"`
	Count int `json:"count"`
}

// WriteList writes a collection response whose Count is the count argument
// the caller supplies; it is not derived from data.
func WriteList(w http.ResponseWriter, data any, count int) {
	WriteJSON(w, http.StatusOK, List{Data: data, Count: count})
}

// Action envelopes the result of a command that doesn't return a resource,
// e.g. a transport control or a queue mutation acknowledgement.
type Action struct {
	Status string `json:"status"`
}

// WriteAction writes a 202-style acknowledgement for an accepted command.
func WriteAction(w http.ResponseWriter, status string) {
	WriteJSON(w, http.StatusAccepted, Action{Status: status})
}

// WriteNoContent writes an empty 204, used by DELETE endpoints.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
