package httpapi

import (
	"net/http"

	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

// deviceKeyHeader carries the raw device API key on every data-plane
// request.
const deviceKeyHeader = "X-API-Key"

func (s *Server) authenticateDevice(r *http.Request) (storage.Credential, error) {
	raw := r.Header.Get(deviceKeyHeader)
	return s.credential.Validate(r.Context(), raw)
}

func (s *Server) authenticateAdmin(r *http.Request) error {
	return s.admin.Check(r)
}
