package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/envsensor-gateway/internal/apierr"
)

type createCredentialRequest struct {
	Description string `json:"description,omitempty"`
}

type createCredentialResponse struct {
	KeyID     string `json:"key_id"`
	APIKey    string `json:"api_key"`
	CreatedAt string `json:"created_at"`
	Message   string `json:"message"`
}

func (s *Server) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticateAdmin(r); err != nil {
		writeError(w, r, err)
		return
	}

	var req createCredentialRequest
	if r.ContentLength != 0 {
		if err := decodeJSONBody(w, r, &req); err != nil {
			writeError(w, r, apierr.InvalidFormat("malformed request body"))
			return
		}
	}

	generated, err := s.credential.Generate(r.Context(), req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, createCredentialResponse{
		KeyID:     generated.KeyID,
		APIKey:    generated.RawKey,
		CreatedAt: generated.CreatedAt,
		Message:   "store this key now; it will not be shown again",
	})
}

type credentialView struct {
	KeyID       string `json:"key_id"`
	CreatedAt   string `json:"created_at"`
	LastUsedAt  string `json:"last_used_at,omitempty"`
	IsActive    bool   `json:"is_active"`
	Description string `json:"description,omitempty"`
}

type listCredentialsResponse struct {
	APIKeys   []credentialView `json:"api_keys"`
	PageToken string           `json:"pageToken,omitempty"`
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticateAdmin(r); err != nil {
		writeError(w, r, err)
		return
	}

	limit, cursor := parsePagination(r, "pageToken")
	page, err := s.query.ListCredentials(r.Context(), limit, cursor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]credentialView, 0, len(page.Items))
	for _, cred := range page.Items {
		views = append(views, credentialView{
			KeyID:       cred.KeyID,
			CreatedAt:   cred.CreatedAt,
			LastUsedAt:  cred.LastUsedAt,
			IsActive:    cred.IsActive,
			Description: cred.Description,
		})
	}

	writeJSON(w, http.StatusOK, listCredentialsResponse{APIKeys: views, PageToken: page.NextCursor})
}

type revokeCredentialResponse struct {
	Message string `json:"message"`
	KeyID   string `json:"key_id"`
}

func (s *Server) handleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticateAdmin(r); err != nil {
		writeError(w, r, err)
		return
	}

	keyID := mux.Vars(r)["key_id"]
	if err := s.credential.Revoke(r.Context(), keyID); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, revokeCredentialResponse{Message: "credential revoked", KeyID: keyID})
}
