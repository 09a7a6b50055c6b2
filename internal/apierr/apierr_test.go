package apierr

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/envsensor-gateway/internal/cursor"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

func TestWriteSerializesKnownError(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, InvalidMAC(), "req-123")

	require.Equal(t, 400, w.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, CodeInvalidMAC, body.Error)
	require.Equal(t, "req-123", body.RequestID)
}

func TestWriteFallsBackOnUnknownError(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, errors.New("some opaque failure"), "req-456")

	require.Equal(t, 500, w.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, CodeInternalError, body.Error)
	require.NotContains(t, body.Message, "opaque")
}

func TestClassifyMapsCrossCuttingSentinels(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, storage.ErrTransient, "")
	require.Equal(t, 500, w.Code)

	w2 := httptest.NewRecorder()
	Write(w2, cursor.ErrInvalidCursor, "")
	require.Equal(t, 400, w2.Code)
}
