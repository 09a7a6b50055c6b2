package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/envsensor-gateway/internal/cursor"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
	"github.com/R3E-Network/envsensor-gateway/internal/storage/memstore"
)

func seedDevice(t *testing.T, store *memstore.Store, hardwareID, lastSeenAt string) {
	t.Helper()
	require.NoError(t, store.PutDeviceIfAbsent(context.Background(), storage.Device{
		HardwareID:        hardwareID,
		ConfirmationID:    "conf-" + hardwareID,
		FirstRegisteredAt: lastSeenAt,
		LastSeenAt:        lastSeenAt,
	}))
}

func TestClampListLimit(t *testing.T) {
	require.Equal(t, DefaultListLimit, ClampListLimit(0))
	require.Equal(t, DefaultListLimit, ClampListLimit(-5))
	require.Equal(t, 30, ClampListLimit(30))
	require.Equal(t, MaxListLimit, ClampListLimit(MaxListLimit+1))
}

func TestClampReadingLimit(t *testing.T) {
	require.Equal(t, DefaultReadingLimit, ClampReadingLimit(0))
	require.Equal(t, 200, ClampReadingLimit(200))
	require.Equal(t, MaxReadingLimit, ClampReadingLimit(MaxReadingLimit+1))
}

func TestGetDeviceNotFound(t *testing.T) {
	store := memstore.New()
	e := New(store, store, store)
	_, err := e.GetDevice(context.Background(), "unknown")
	require.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestListReadingsDeviceNotFoundBeforeNoReadings(t *testing.T) {
	store := memstore.New()
	e := New(store, store, store)

	// Unregistered device: DeviceNotFound, not NoReadings.
	_, err := e.ListReadings(context.Background(), "unknown", 0, 9_999_999_999_999, 10, "")
	require.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = e.LatestReading(context.Background(), "unknown")
	require.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestLatestReadingNoReadingsOnceDeviceExists(t *testing.T) {
	store := memstore.New()
	seedDevice(t, store, "AA:BB:CC:DD:EE:FF", "2026-01-01T00:00:00Z")
	e := New(store, store, store)

	_, err := e.LatestReading(context.Background(), "AA:BB:CC:DD:EE:FF")
	require.ErrorIs(t, err, ErrNoReadings)
}

func TestListDevicesPaginationCursor(t *testing.T) {
	store := memstore.New()
	seedDevice(t, store, "AA:AA:AA:AA:AA:01", "2026-01-01T00:00:03Z")
	seedDevice(t, store, "AA:AA:AA:AA:AA:02", "2026-01-01T00:00:02Z")
	seedDevice(t, store, "AA:AA:AA:AA:AA:03", "2026-01-01T00:00:01Z")
	e := New(store, store, store)

	page, err := e.ListDevices(context.Background(), 2, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	require.Equal(t, "AA:AA:AA:AA:AA:01", page.Items[0].HardwareID)

	page2, err := e.ListDevices(context.Background(), 2, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	require.Empty(t, page2.NextCursor)
	require.Equal(t, "AA:AA:AA:AA:AA:03", page2.Items[0].HardwareID)
}

func TestListReadingsRejectsCursorFromAnotherDevice(t *testing.T) {
	store := memstore.New()
	seedDevice(t, store, "AA:AA:AA:AA:AA:01", "2026-01-01T00:00:00Z")
	seedDevice(t, store, "AA:AA:AA:AA:AA:02", "2026-01-01T00:00:00Z")
	e := New(store, store, store)

	foreignCursor, err := cursor.EncodeReading(cursor.ReadingPayload{
		HardwareID: "AA:AA:AA:AA:AA:02",
		TsBatch:    storage.TsBatchKey(1_700_000_000_000, "batch-1"),
	})
	require.NoError(t, err)

	_, err = e.ListReadings(context.Background(), "AA:AA:AA:AA:AA:01", 0, 9_999_999_999_999, 1, foreignCursor)
	require.ErrorIs(t, err, ErrInvalidCursor)
}
