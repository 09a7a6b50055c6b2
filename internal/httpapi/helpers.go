package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/R3E-Network/envsensor-gateway/internal/apierr"
	"github.com/R3E-Network/envsensor-gateway/internal/logging"
)

// maxRequestBodyBytes bounds request bodies read by this server.
const maxRequestBodyBytes = 1 << 20 // 1 MiB

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := mapError(err)
	apierr.Write(w, apiErr, logging.RequestIDFromContext(r.Context()))
}

func writeInternalError(w http.ResponseWriter, r *http.Request) {
	apierr.Write(w, apierr.InternalError(), logging.RequestIDFromContext(r.Context()))
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func queryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// parsePagination reads "limit" and a caller-named cursor query parameter
// (endpoints vary between "cursor" and "pageToken" per spec §6's route
// table). A missing or malformed limit falls back to the endpoint's
// default via the query package's clamp functions.
func parsePagination(r *http.Request, cursorParam string) (limit int, cursor string) {
	if raw := queryParam(r, "limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	cursor = queryParam(r, cursorParam)
	return limit, cursor
}
