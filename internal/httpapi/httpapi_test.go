package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/envsensor-gateway/internal/adminauth"
	"github.com/R3E-Network/envsensor-gateway/internal/clock"
	"github.com/R3E-Network/envsensor-gateway/internal/credential"
	"github.com/R3E-Network/envsensor-gateway/internal/idgen"
	"github.com/R3E-Network/envsensor-gateway/internal/ingest"
	"github.com/R3E-Network/envsensor-gateway/internal/logging"
	"github.com/R3E-Network/envsensor-gateway/internal/metrics"
	"github.com/R3E-Network/envsensor-gateway/internal/query"
	"github.com/R3E-Network/envsensor-gateway/internal/registry"
	"github.com/R3E-Network/envsensor-gateway/internal/storage/memstore"
)

const adminToken = "admin-secret"

func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()
	store := memstore.New()
	c := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ids := &idgen.Sequence{IDs: []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
	}}
	log := logging.New("test", "error", "json")
	reg := registry.New(store, c, ids)
	reqIDs := &idgen.Sequence{IDs: []string{"key-0001"}}
	cred := credential.New(store, c, reqIDs, "pepper", log)
	admin := adminauth.New(adminToken)
	ing := ingest.New(store, c, 0)
	qry := query.New(store, store, store)
	reg2 := prometheus.NewRegistry()
	m := metrics.New(reg2)

	s := New(Config{
		Registry:          reg,
		Credential:        cred,
		Admin:             admin,
		Ingest:            ing,
		Query:             qry,
		Clock:             c,
		Logger:            log,
		Metrics:           m,
		CORSAllowedOrigin: "*",
	})
	return s, func() {}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	w := doJSON(t, s.Router(), http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterRequiresDeviceKey(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	w := doJSON(t, s.Router(), http.MethodPost, "/register", registerRequest{
		HardwareID:      "AA:BB:CC:DD:EE:FF",
		BootID:          "33333333-3333-4333-8333-333333333333",
		FirmwareVersion: "1.0.0",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "MISSING_API_KEY", body["error"])
}

func TestFullDeviceLifecycle(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	router := s.Router()

	// Admin provisions a device credential.
	createW := doJSON(t, router, http.MethodPost, "/api-keys", createCredentialRequest{Description: "fleet-1"}, map[string]string{
		"Authorization": "Bearer " + adminToken,
	})
	require.Equal(t, http.StatusOK, createW.Code)
	var created createCredentialResponse
	require.NoError(t, json.Unmarshal(createW.Body.Bytes(), &created))
	require.Len(t, created.APIKey, 64)

	deviceHeaders := map[string]string{"X-API-Key": created.APIKey}

	// Device registers.
	regW := doJSON(t, router, http.MethodPost, "/register", registerRequest{
		HardwareID:      "AA:BB:CC:DD:EE:FF",
		BootID:          "33333333-3333-4333-8333-333333333333",
		FirmwareVersion: "1.0.0",
	}, deviceHeaders)
	require.Equal(t, http.StatusOK, regW.Code)
	var regResp registerResponse
	require.NoError(t, json.Unmarshal(regW.Body.Bytes(), &regResp))
	require.NotEmpty(t, regResp.ConfirmationID)

	// Device ingests a batch.
	ingestW := doJSON(t, router, http.MethodPost, "/data", ingestRequest{
		Readings: []ingest.Reading{{
			HardwareID:  "AA:BB:CC:DD:EE:FF",
			TimestampMs: 1_700_000_000_000,
			BatchID:     "batch-1",
			BootID:      "33333333-3333-4333-8333-333333333333",
			Sensors:     map[string]float64{"bme280": 21.5},
		}},
	}, deviceHeaders)
	require.Equal(t, http.StatusOK, ingestW.Code)
	var ingestResp ingestResponse
	require.NoError(t, json.Unmarshal(ingestW.Body.Bytes(), &ingestResp))
	require.Equal(t, []string{"batch-1"}, ingestResp.AcknowledgedBatchIDs)

	// Replay is a duplicate, still 200.
	replayW := doJSON(t, router, http.MethodPost, "/data", ingestRequest{
		Readings: []ingest.Reading{{
			HardwareID:  "AA:BB:CC:DD:EE:FF",
			TimestampMs: 1_700_000_000_000,
			BatchID:     "batch-1",
			BootID:      "33333333-3333-4333-8333-333333333333",
			Sensors:     map[string]float64{"bme280": 21.5},
		}},
	}, deviceHeaders)
	require.Equal(t, http.StatusOK, replayW.Code)
	var replayResp ingestResponse
	require.NoError(t, json.Unmarshal(replayW.Body.Bytes(), &replayResp))
	require.Equal(t, []string{"batch-1"}, replayResp.DuplicateBatchIDs)

	// Admin reads the device back.
	getW := doJSON(t, router, http.MethodGet, "/devices/AA:BB:CC:DD:EE:FF", nil, map[string]string{
		"Authorization": "Bearer " + adminToken,
	})
	require.Equal(t, http.StatusOK, getW.Code)

	// Admin fetches the latest reading.
	latestW := doJSON(t, router, http.MethodGet, "/devices/AA:BB:CC:DD:EE:FF/latest", nil, map[string]string{
		"Authorization": "Bearer " + adminToken,
	})
	require.Equal(t, http.StatusOK, latestW.Code)
	var reading readingView
	require.NoError(t, json.Unmarshal(latestW.Body.Bytes(), &reading))
	require.Equal(t, "batch-1", reading.BatchID)

	// An unknown device reports DEVICE_NOT_FOUND, not NO_READINGS.
	missingW := doJSON(t, router, http.MethodGet, "/devices/11:22:33:44:55:66/latest", nil, map[string]string{
		"Authorization": "Bearer " + adminToken,
	})
	require.Equal(t, http.StatusNotFound, missingW.Code)
	var missingBody map[string]string
	require.NoError(t, json.Unmarshal(missingW.Body.Bytes(), &missingBody))
	require.Equal(t, "DEVICE_NOT_FOUND", missingBody["error"])
}

func TestBatchSizeExceeded(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	router := s.Router()

	createW := doJSON(t, router, http.MethodPost, "/api-keys", nil, map[string]string{
		"Authorization": "Bearer " + adminToken,
	})
	require.Equal(t, http.StatusOK, createW.Code)
	var created createCredentialResponse
	require.NoError(t, json.Unmarshal(createW.Body.Bytes(), &created))

	readings := make([]ingest.Reading, 101)
	for i := range readings {
		readings[i] = ingest.Reading{HardwareID: "AA:BB:CC:DD:EE:FF", TimestampMs: 1_700_000_000_000, BatchID: "b"}
	}
	w := doJSON(t, router, http.MethodPost, "/data", ingestRequest{Readings: readings}, map[string]string{
		"X-API-Key": created.APIKey,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "BATCH_SIZE_EXCEEDED", body["error"])
}

func TestMissingPepperFailsDeviceRequestsWithInternalError(t *testing.T) {
	store := memstore.New()
	c := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	log := logging.New("test", "error", "json")
	reg := registry.New(store, c, &idgen.Sequence{IDs: []string{"11111111-1111-4111-8111-111111111111"}})
	cred := credential.New(store, c, &idgen.Sequence{IDs: []string{"key-0001"}}, "", log)
	admin := adminauth.New(adminToken)
	ing := ingest.New(store, c, 0)
	qry := query.New(store, store, store)
	m := metrics.New(prometheus.NewRegistry())

	s := New(Config{
		Registry: reg, Credential: cred, Admin: admin, Ingest: ing, Query: qry,
		Clock: c, Logger: log, Metrics: m, CORSAllowedOrigin: "*",
	})

	w := doJSON(t, s.Router(), http.MethodPost, "/register", registerRequest{
		HardwareID:      "AA:BB:CC:DD:EE:FF",
		BootID:          "33333333-3333-4333-8333-333333333333",
		FirmwareVersion: "1.0.0",
	}, map[string]string{"X-API-Key": "whatever"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "INTERNAL_ERROR", body["error"])
}

func TestMissingAdminTokenFailsAdminRequestsWithInternalError(t *testing.T) {
	store := memstore.New()
	c := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	log := logging.New("test", "error", "json")
	reg := registry.New(store, c, &idgen.Sequence{IDs: []string{"11111111-1111-4111-8111-111111111111"}})
	cred := credential.New(store, c, &idgen.Sequence{IDs: []string{"key-0001"}}, "pepper", log)
	admin := adminauth.New("")
	ing := ingest.New(store, c, 0)
	qry := query.New(store, store, store)
	m := metrics.New(prometheus.NewRegistry())

	s := New(Config{
		Registry: reg, Credential: cred, Admin: admin, Ingest: ing, Query: qry,
		Clock: c, Logger: log, Metrics: m, CORSAllowedOrigin: "*",
	})

	w := doJSON(t, s.Router(), http.MethodGet, "/devices", nil, map[string]string{
		"Authorization": "Bearer anything",
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "INTERNAL_ERROR", body["error"])
}

func TestAdminMalformedAuthSchemeIsUnauthorized(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	w := doJSON(t, s.Router(), http.MethodGet, "/devices", nil, map[string]string{
		"Authorization": "Basic " + adminToken,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "UNAUTHORIZED", body["error"])
}

func TestOptionsPreflightShortCircuits(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodOptions, "/devices", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPathPrefixNormalization(t *testing.T) {
	require.Equal(t, "/devices", normalizePath("/api/control/devices"))
	require.Equal(t, "/data", normalizePath("/api/data/data"))
	require.Equal(t, "/", normalizePath("/api/control/"))
	require.Equal(t, "/devices", normalizePath("/devices/"))
}
