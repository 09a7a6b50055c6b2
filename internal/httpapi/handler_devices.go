package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/envsensor-gateway/internal/apierr"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

type deviceSummary struct {
	HardwareID      string `json:"hardware_id"`
	ConfirmationID  string `json:"confirmation_id"`
	FriendlyName    string `json:"friendly_name,omitempty"`
	FirmwareVersion string `json:"firmware_version"`
	FirstRegisteredAt string `json:"first_registered_at"`
	LastSeenAt      string `json:"last_seen_at"`
	LastBootID      string `json:"last_boot_id"`
}

type deviceDetail struct {
	deviceSummary
	Capabilities storage.Capabilities `json:"capabilities"`
}

func toDeviceSummary(d storage.Device) deviceSummary {
	return deviceSummary{
		HardwareID:        d.HardwareID,
		ConfirmationID:    d.ConfirmationID,
		FriendlyName:      d.FriendlyName,
		FirmwareVersion:   d.FirmwareVersion,
		FirstRegisteredAt: d.FirstRegisteredAt,
		LastSeenAt:        d.LastSeenAt,
		LastBootID:        d.LastBootID,
	}
}

type listDevicesResponse struct {
	Devices    []deviceSummary `json:"devices"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticateAdmin(r); err != nil {
		writeError(w, r, err)
		return
	}

	limit, cursor := parsePagination(r, "cursor")
	page, err := s.query.ListDevices(r.Context(), limit, cursor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	summaries := make([]deviceSummary, 0, len(page.Items))
	for _, d := range page.Items {
		summaries = append(summaries, toDeviceSummary(d))
	}
	writeJSON(w, http.StatusOK, listDevicesResponse{Devices: summaries, NextCursor: page.NextCursor})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticateAdmin(r); err != nil {
		writeError(w, r, err)
		return
	}

	hardwareID := mux.Vars(r)["hardware_id"]
	dev, err := s.query.GetDevice(r.Context(), hardwareID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deviceDetail{
		deviceSummary: toDeviceSummary(dev),
		Capabilities:  dev.Capabilities,
	})
}

type readingView struct {
	HardwareID      string                          `json:"hardware_id"`
	TimestampMs     int64                           `json:"timestamp_ms"`
	BatchID         string                          `json:"batch_id"`
	BootID          string                          `json:"boot_id"`
	FirmwareVersion string                          `json:"firmware_version"`
	FriendlyName    string                          `json:"friendly_name,omitempty"`
	Sensors         map[string]float64              `json:"sensors"`
	SensorStatus    map[string]storage.SensorStatus `json:"sensor_status"`
}

func toReadingView(r storage.Reading) readingView {
	return readingView{
		HardwareID:      r.HardwareID,
		TimestampMs:     r.TimestampMs,
		BatchID:         r.BatchID,
		BootID:          r.BootID,
		FirmwareVersion: r.FirmwareVersion,
		FriendlyName:    r.FriendlyName,
		Sensors:         r.Sensors,
		SensorStatus:    r.SensorStatus,
	}
}

type listReadingsResponse struct {
	Readings   []readingView `json:"readings"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticateAdmin(r); err != nil {
		writeError(w, r, err)
		return
	}

	hardwareID := mux.Vars(r)["hardware_id"]

	fromRaw, toRaw := queryParam(r, "from"), queryParam(r, "to")
	if fromRaw == "" || toRaw == "" {
		writeError(w, r, apierr.MissingField("from/to"))
		return
	}
	from, err := strconv.ParseInt(fromRaw, 10, 64)
	if err != nil {
		writeError(w, r, apierr.InvalidFormat("from must be an integer epoch-ms value"))
		return
	}
	to, err := strconv.ParseInt(toRaw, 10, 64)
	if err != nil {
		writeError(w, r, apierr.InvalidFormat("to must be an integer epoch-ms value"))
		return
	}
	maxTo := s.clock.Now().AddDate(1, 0, 0).UnixMilli()
	if from < 0 || from > to || to > maxTo {
		writeError(w, r, apierr.InvalidFormat("from must be >= 0 and <= to, and to must not exceed one year from now"))
		return
	}

	limit, cursor := parsePagination(r, "cursor")
	page, err := s.query.ListReadings(r.Context(), hardwareID, from, to, limit, cursor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]readingView, 0, len(page.Items))
	for _, reading := range page.Items {
		views = append(views, toReadingView(reading))
	}
	writeJSON(w, http.StatusOK, listReadingsResponse{Readings: views, NextCursor: page.NextCursor})
}

func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticateAdmin(r); err != nil {
		writeError(w, r, err)
		return
	}

	hardwareID := mux.Vars(r)["hardware_id"]
	reading, err := s.query.LatestReading(r.Context(), hardwareID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReadingView(reading))
}
