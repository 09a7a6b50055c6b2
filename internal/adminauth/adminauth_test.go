package adminauth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/envsensor-gateway/internal/config"
)

func TestCheckMissingHeader(t *testing.T) {
	c := New("secret-token")
	r := httptest.NewRequest(http.MethodGet, "/devices", nil)
	require.ErrorIs(t, c.Check(r), ErrMissingToken)
}

func TestCheckEmptyBearerValue(t *testing.T) {
	c := New("secret-token")
	r := httptest.NewRequest(http.MethodGet, "/devices", nil)
	r.Header.Set("Authorization", "Bearer ")
	require.ErrorIs(t, c.Check(r), ErrInvalidToken)
}

func TestCheckMalformedPrefix(t *testing.T) {
	c := New("secret-token")
	r := httptest.NewRequest(http.MethodGet, "/devices", nil)
	r.Header.Set("Authorization", "Basic secret-token")
	require.ErrorIs(t, c.Check(r), ErrMalformedHeader)
}

func TestCheckUnconfiguredTokenFailsClosed(t *testing.T) {
	c := New("")
	r := httptest.NewRequest(http.MethodGet, "/devices", nil)
	r.Header.Set("Authorization", "Bearer anything")
	require.ErrorIs(t, c.Check(r), config.ErrConfigMissing)
}

func TestCheckWrongToken(t *testing.T) {
	c := New("secret-token")
	r := httptest.NewRequest(http.MethodGet, "/devices", nil)
	r.Header.Set("Authorization", "Bearer wrong-token")
	require.ErrorIs(t, c.Check(r), ErrInvalidToken)
}

func TestCheckCorrectToken(t *testing.T) {
	c := New("secret-token")
	r := httptest.NewRequest(http.MethodGet, "/devices", nil)
	r.Header.Set("Authorization", "Bearer secret-token")
	require.NoError(t, c.Check(r))
}
