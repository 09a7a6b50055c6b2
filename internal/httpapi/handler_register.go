package httpapi

import (
	"net/http"

	"github.com/R3E-Network/envsensor-gateway/internal/apierr"
	"github.com/R3E-Network/envsensor-gateway/internal/registry"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
	"github.com/R3E-Network/envsensor-gateway/internal/validate"
)

type registerRequest struct {
	HardwareID      string               `json:"hardware_id"`
	BootID          string               `json:"boot_id"`
	FirmwareVersion string               `json:"firmware_version"`
	FriendlyName    string               `json:"friendly_name,omitempty"`
	Capabilities    storage.Capabilities `json:"capabilities"`
}

type registerResponse struct {
	Status         string `json:"status"`
	ConfirmationID string `json:"confirmation_id"`
	HardwareID     string `json:"hardware_id"`
	RegisteredAt   string `json:"registered_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticateDevice(r); err != nil {
		writeError(w, r, err)
		return
	}

	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, r, apierr.InvalidFormat("malformed request body"))
		return
	}

	if !validate.IsValidMAC(req.HardwareID) {
		writeError(w, r, apierr.InvalidMAC())
		return
	}
	if !validate.IsValidUUIDv4(req.BootID) {
		writeError(w, r, apierr.InvalidUUID("boot_id"))
		return
	}
	if req.FirmwareVersion == "" {
		writeError(w, r, apierr.MissingField("firmware_version"))
		return
	}

	dev, err := s.registry.Observe(r.Context(), registry.Announcement{
		HardwareID:      req.HardwareID,
		BootID:          req.BootID,
		FirmwareVersion: req.FirmwareVersion,
		FriendlyName:    req.FriendlyName,
		Capabilities:    req.Capabilities,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		Status:         "registered",
		ConfirmationID: dev.ConfirmationID,
		HardwareID:     dev.HardwareID,
		RegisteredAt:   dev.LastSeenAt,
	})
}
