// Package registry implements the device registry: first-seen upsert and
// last-seen tracking for environmental sensor nodes.
package registry

import (
	"context"

	"github.com/R3E-Network/envsensor-gateway/internal/clock"
	"github.com/R3E-Network/envsensor-gateway/internal/idgen"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

// Registry manages device identity records.
type Registry struct {
	store storage.DeviceStore
	clock clock.Clock
	ids   idgen.Generator
}

// New constructs a Registry.
func New(store storage.DeviceStore, c clock.Clock, ids idgen.Generator) *Registry {
	return &Registry{store: store, clock: c, ids: ids}
}

// Announcement describes a device's self-reported identity, carried on
// every registration request.
type Announcement struct {
	HardwareID      string
	FriendlyName    string
	FirmwareVersion string
	BootID          string
	Capabilities    storage.Capabilities
}

// Observe ensures a device record exists for the given announcement and
// refreshes its last-seen timestamp and boot id (spec §4.2). A brand-new
// device is inserted with a freshly minted confirmation_id and
// first_registered_at equal to the observation time; an existing device
// only has its activity fields touched, never confirmation_id,
// first_registered_at, or capabilities, so a firmware update cannot
// silently rewrite the original identity.
func (r *Registry) Observe(ctx context.Context, a Announcement) (storage.Device, error) {
	now := clock.NowRFC3339(r.clock)

	dev := storage.Device{
		HardwareID:        a.HardwareID,
		ConfirmationID:    r.ids.NewV4(),
		FriendlyName:      a.FriendlyName,
		FirmwareVersion:   a.FirmwareVersion,
		Capabilities:      a.Capabilities,
		FirstRegisteredAt: now,
		LastSeenAt:        now,
		LastBootID:        a.BootID,
	}

	err := r.store.PutDeviceIfAbsent(ctx, dev)
	switch {
	case err == nil:
		return dev, nil
	case err == storage.ErrPreconditionFailed:
		// last_seen_at is overwritten even when now is older than the stored value.
		if err := r.store.UpdateDeviceSeen(ctx, a.HardwareID, now, a.BootID); err != nil {
			return storage.Device{}, err
		}
		return r.store.GetDevice(ctx, a.HardwareID)
	default:
		return storage.Device{}, err
	}
}

// Get fetches a device by hardware id.
func (r *Registry) Get(ctx context.Context, hardwareID string) (storage.Device, error) {
	return r.store.GetDevice(ctx, hardwareID)
}

// List returns devices ordered by most-recently-seen first.
func (r *Registry) List(ctx context.Context, limit int, after *storage.DeviceKey) ([]storage.Device, *storage.DeviceKey, error) {
	return r.store.ListDevicesByActivity(ctx, limit, after)
}
