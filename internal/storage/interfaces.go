package storage

import "context"

// DeviceKey identifies a device row's position in the by-activity index,
// used as the internal cursor payload for device listing.
type DeviceKey struct {
	HardwareID string
	GSI1SK     string // last_seen_at
}

// ReadingKey identifies a reading row's position within a device's
// partition, used as the internal cursor payload for reading queries.
type ReadingKey struct {
	HardwareID string
	TsBatch    string
}

// CredentialKey identifies a credential row's position in the by-age
// index, used as the internal cursor payload for credential listing.
type CredentialKey struct {
	KeyID  string
	GSI1SK string // created_at
}

// DeviceStore is the Storage Adapter surface the Device Registry and
// device-scoped Query Engine operations depend on.
type DeviceStore interface {
	// GetDevice returns ErrNotFound if hardwareID is unknown.
	GetDevice(ctx context.Context, hardwareID string) (Device, error)
	// PutDeviceIfAbsent creates dev only if no device with this
	// HardwareID exists; returns ErrPreconditionFailed otherwise.
	PutDeviceIfAbsent(ctx context.Context, dev Device) error
	// UpdateDeviceSeen updates last_seen_at/last_boot_id/gsi1sk on an
	// existing device, leaving confirmation_id/first_registered_at/
	// capabilities untouched.
	UpdateDeviceSeen(ctx context.Context, hardwareID, lastSeenAt, lastBootID string) error
	// ListDevicesByActivity returns up to limit devices ordered by
	// last_seen_at descending, resuming after `after` if non-nil.
	ListDevicesByActivity(ctx context.Context, limit int, after *DeviceKey) ([]Device, *DeviceKey, error)
}

// CredentialStore is the Storage Adapter surface the Credential Engine and
// credential Query Engine operations depend on.
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred Credential) error
	// GetCredentialByHash returns ErrNotFound if no credential has this
	// hash.
	GetCredentialByHash(ctx context.Context, hash string) (Credential, error)
	GetCredential(ctx context.Context, keyID string) (Credential, error)
	// UpdateLastUsed sets last_used_at; best-effort, caller may ignore
	// the error for the throttled async path.
	UpdateLastUsed(ctx context.Context, keyID, lastUsedAt string) error
	// Revoke sets is_active=false.
	Revoke(ctx context.Context, keyID string) error
	// ListCredentialsByAge returns up to limit credentials ordered by
	// created_at descending, resuming after `after` if non-nil.
	ListCredentialsByAge(ctx context.Context, limit int, after *CredentialKey) ([]Credential, *CredentialKey, error)
}

// ReadingStore is the Storage Adapter surface the Ingest Engine and
// reading Query Engine operations depend on.
type ReadingStore interface {
	// PutIfNewBatch performs the atomic two-item write from spec §4.3:
	// it writes the witness (keyed by batch.BatchID) only if absent, and
	// the reading alongside it in the same transaction. Returns
	// ErrPreconditionFailed if the witness already exists (DUPLICATE).
	PutIfNewBatch(ctx context.Context, batch ProcessedBatch, reading Reading) error
	// QueryReadings returns up to limit readings for hardwareID with
	// ts_batch in [fromKey, toKey], descending, resuming after `after`.
	QueryReadings(ctx context.Context, hardwareID, fromKey, toKey string, limit int, after *ReadingKey) ([]Reading, *ReadingKey, error)
	// LatestReading returns the single most recent reading for
	// hardwareID, or ErrNotFound if none exist.
	LatestReading(ctx context.Context, hardwareID string) (Reading, error)
}

// Store aggregates the three sub-stores behind one handle.
type Store interface {
	DeviceStore
	CredentialStore
	ReadingStore
	// Close releases underlying resources.
	Close() error
}
