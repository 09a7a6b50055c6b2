// Package query implements the read-side admin operations: cursor-paginated
// device, reading, and credential listings plus point lookups.
package query

import (
	"context"
	"errors"

	"github.com/R3E-Network/envsensor-gateway/internal/cursor"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

// ErrInvalidCursor is returned when a caller-supplied cursor does not
// decode to the shape this endpoint expects.
var ErrInvalidCursor = cursor.ErrInvalidCursor

// ErrDeviceNotFound and ErrNoReadings distinguish the two 404 sub-kinds
// named by spec §4.4/§6: a device that was never registered, versus a
// registered device with an empty reading history.
var (
	ErrDeviceNotFound = errors.New("query: device not found")
	ErrNoReadings     = errors.New("query: device has no readings")
)

// Page size bounds per endpoint (spec §4.4).
const (
	DefaultListLimit    = 50
	MaxListLimit        = 100
	DefaultReadingLimit = 50
	MaxReadingLimit     = 1000
)

func clamp(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}

// ClampListLimit normalizes a page size for device/credential listings.
func ClampListLimit(requested int) int { return clamp(requested, DefaultListLimit, MaxListLimit) }

// ClampReadingLimit normalizes a page size for reading queries.
func ClampReadingLimit(requested int) int { return clamp(requested, DefaultReadingLimit, MaxReadingLimit) }

// Engine answers admin read queries.
type Engine struct {
	devices     storage.DeviceStore
	readings    storage.ReadingStore
	credentials storage.CredentialStore
}

// New constructs a query Engine.
func New(devices storage.DeviceStore, readings storage.ReadingStore, credentials storage.CredentialStore) *Engine {
	return &Engine{devices: devices, readings: readings, credentials: credentials}
}

// Page is a generic paginated result envelope.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// ListDevices returns devices ordered most-recently-seen first.
func (e *Engine) ListDevices(ctx context.Context, limit int, rawCursor string) (Page[storage.Device], error) {
	var after *storage.DeviceKey
	if rawCursor != "" {
		p, err := cursor.DecodeDevice(rawCursor)
		if err != nil {
			return Page[storage.Device]{}, err
		}
		after = &storage.DeviceKey{HardwareID: p.HardwareID, GSI1SK: p.GSI1SK}
	}

	items, next, err := e.devices.ListDevicesByActivity(ctx, ClampListLimit(limit), after)
	if err != nil {
		return Page[storage.Device]{}, err
	}

	page := Page[storage.Device]{Items: items}
	if next != nil {
		token, err := cursor.EncodeDevice(cursor.DevicePayload{HardwareID: next.HardwareID, GSI1SK: next.GSI1SK})
		if err != nil {
			return Page[storage.Device]{}, err
		}
		page.NextCursor = token
	}
	return page, nil
}

// GetDevice fetches a single device by hardware id, translating a missing
// record to ErrDeviceNotFound.
func (e *Engine) GetDevice(ctx context.Context, hardwareID string) (storage.Device, error) {
	dev, err := e.devices.GetDevice(ctx, hardwareID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Device{}, ErrDeviceNotFound
	}
	return dev, err
}

// ListReadings returns readings for a device within [fromMs, toMs],
// newest first. The device-existence check runs first: an unknown device
// is ErrDeviceNotFound even if from/to would otherwise match nothing.
func (e *Engine) ListReadings(ctx context.Context, hardwareID string, fromMs, toMs int64, limit int, rawCursor string) (Page[storage.Reading], error) {
	if _, err := e.GetDevice(ctx, hardwareID); err != nil {
		return Page[storage.Reading]{}, err
	}

	var after *storage.ReadingKey
	if rawCursor != "" {
		p, err := cursor.DecodeReading(rawCursor)
		if err != nil {
			return Page[storage.Reading]{}, err
		}
		if p.HardwareID != hardwareID {
			return Page[storage.Reading]{}, ErrInvalidCursor
		}
		after = &storage.ReadingKey{HardwareID: p.HardwareID, TsBatch: p.TsBatch}
	}

	fromKey := storage.TsBatchKey(fromMs, "")
	toKey := storage.TsBatchKey(toMs, "￿")

	items, next, err := e.readings.QueryReadings(ctx, hardwareID, fromKey, toKey, ClampReadingLimit(limit), after)
	if err != nil {
		return Page[storage.Reading]{}, err
	}

	page := Page[storage.Reading]{Items: items}
	if next != nil {
		token, err := cursor.EncodeReading(cursor.ReadingPayload{HardwareID: next.HardwareID, TsBatch: next.TsBatch})
		if err != nil {
			return Page[storage.Reading]{}, err
		}
		page.NextCursor = token
	}
	return page, nil
}

// LatestReading fetches the most recent reading for a device, checking
// device existence first and distinguishing ErrDeviceNotFound from
// ErrNoReadings.
func (e *Engine) LatestReading(ctx context.Context, hardwareID string) (storage.Reading, error) {
	if _, err := e.GetDevice(ctx, hardwareID); err != nil {
		return storage.Reading{}, err
	}
	reading, err := e.readings.LatestReading(ctx, hardwareID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Reading{}, ErrNoReadings
	}
	return reading, err
}

// ListCredentials returns credentials ordered newest-first.
func (e *Engine) ListCredentials(ctx context.Context, limit int, rawCursor string) (Page[storage.Credential], error) {
	var after *storage.CredentialKey
	if rawCursor != "" {
		p, err := cursor.DecodeCredential(rawCursor)
		if err != nil {
			return Page[storage.Credential]{}, err
		}
		after = &storage.CredentialKey{KeyID: p.KeyID, GSI1SK: p.GSI1SK}
	}

	items, next, err := e.credentials.ListCredentialsByAge(ctx, ClampListLimit(limit), after)
	if err != nil {
		return Page[storage.Credential]{}, err
	}

	page := Page[storage.Credential]{Items: items}
	if next != nil {
		token, err := cursor.EncodeCredential(cursor.CredentialPayload{KeyID: next.KeyID, GSI1SK: next.GSI1SK})
		if err != nil {
			return Page[storage.Credential]{}, err
		}
		page.NextCursor = token
	}
	return page, nil
}
