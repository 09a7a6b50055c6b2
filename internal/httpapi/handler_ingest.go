package httpapi

import (
	"net/http"

	"github.com/R3E-Network/envsensor-gateway/internal/apierr"
	"github.com/R3E-Network/envsensor-gateway/internal/ingest"
)

type ingestRequest struct {
	Readings []ingest.Reading `json:"readings"`
}

type ingestResponse struct {
	AcknowledgedBatchIDs []string `json:"acknowledged_batch_ids"`
	DuplicateBatchIDs    []string `json:"duplicate_batch_ids"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticateDevice(r); err != nil {
		writeError(w, r, err)
		return
	}

	var req ingestRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, r, apierr.InvalidFormat("malformed request body"))
		return
	}

	if err := ingest.ValidateBatchSize(len(req.Readings)); err != nil {
		writeError(w, r, err)
		return
	}
	for _, reading := range req.Readings {
		if err := ingest.ValidateReading(reading); err != nil {
			writeError(w, r, err)
			return
		}
	}

	result, err := s.ingest.Ingest(r.Context(), req.Readings)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IngestOutcomesTotal.WithLabelValues("error").Inc()
		}
		writeError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.IngestOutcomesTotal.WithLabelValues("new").Add(float64(len(result.AcknowledgedBatchIDs)))
		s.metrics.IngestOutcomesTotal.WithLabelValues("duplicate").Add(float64(len(result.DuplicateBatchIDs)))
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		AcknowledgedBatchIDs: result.AcknowledgedBatchIDs,
		DuplicateBatchIDs:    result.DuplicateBatchIDs,
	})
}
