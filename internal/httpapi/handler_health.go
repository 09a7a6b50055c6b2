package httpapi

import (
	"net/http"

	"github.com/R3E-Network/envsensor-gateway/internal/logging"
)

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	RequestID string `json:"request_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}
