package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/envsensor-gateway/internal/clock"
	"github.com/R3E-Network/envsensor-gateway/internal/idgen"
	"github.com/R3E-Network/envsensor-gateway/internal/storage/memstore"
)

func TestObserveMintsIdentityOnFirstSighting(t *testing.T) {
	store := memstore.New()
	fixedNow := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ids := &idgen.Sequence{IDs: []string{"aaaaaaaa-0000-4000-8000-000000000001"}}
	r := New(store, clock.Fixed{At: fixedNow}, ids)

	dev, err := r.Observe(context.Background(), Announcement{
		HardwareID:      "AA:BB:CC:DD:EE:FF",
		FriendlyName:    "greenhouse-1",
		FirmwareVersion: "1.0.0",
		BootID:          "boot-1",
	})
	require.NoError(t, err)
	require.Equal(t, "aaaaaaaa-0000-4000-8000-000000000001", dev.ConfirmationID)
	require.Equal(t, fixedNow.UTC().Format(time.RFC3339), dev.FirstRegisteredAt)
	require.Equal(t, dev.FirstRegisteredAt, dev.LastSeenAt)
}

func TestObserveOnKnownDeviceLeavesIdentityUnchanged(t *testing.T) {
	store := memstore.New()
	firstSeen := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	laterSeen := firstSeen.Add(2 * time.Hour)
	ids := &idgen.Sequence{IDs: []string{"aaaaaaaa-0000-4000-8000-000000000001", "bbbbbbbb-0000-4000-8000-000000000002"}}

	r := New(store, clock.Fixed{At: firstSeen}, ids)
	first, err := r.Observe(context.Background(), Announcement{HardwareID: "AA:BB:CC:DD:EE:FF", BootID: "boot-1"})
	require.NoError(t, err)

	r2 := New(store, clock.Fixed{At: laterSeen}, ids)
	second, err := r2.Observe(context.Background(), Announcement{
		HardwareID:      "AA:BB:CC:DD:EE:FF",
		BootID:          "boot-2",
		FirmwareVersion: "2.0.0",
	})
	require.NoError(t, err)

	require.Equal(t, first.ConfirmationID, second.ConfirmationID)
	require.Equal(t, first.FirstRegisteredAt, second.FirstRegisteredAt)
	require.Equal(t, laterSeen.UTC().Format(time.RFC3339), second.LastSeenAt)
	require.Equal(t, "boot-2", second.LastBootID)
	// Firmware/capabilities snapshot on the stored record is not rewritten
	// by a later sighting.
	require.Equal(t, first.FirmwareVersion, second.FirmwareVersion)
}
