// Package storage defines the Storage Adapter: domain record shapes, the
// store-error taxonomy, and the interfaces each domain engine depends on.
// Concrete realizations (e.g. boltstore) implement these against a real
// key-value engine; domain packages never see the underlying attribute
// vocabulary.
package storage

import "errors"

// Sentinel store errors. Concrete adapters must classify every failure
// into one of these three kinds.
var (
	// ErrNotFound means the requested item does not exist, distinguished
	// from an empty result set.
	ErrNotFound = errors.New("storage: not found")
	// ErrPreconditionFailed means a conditional write's precondition did
	// not hold (used by the ingest witness check and registry creation).
	ErrPreconditionFailed = errors.New("storage: precondition failed")
	// ErrTransient covers every other store failure; callers surface it
	// as a 5xx with no retry state leaked.
	ErrTransient = errors.New("storage: transient failure")
)

// Device is the persistent device record (spec §3).
type Device struct {
	HardwareID         string
	ConfirmationID     string
	FriendlyName       string
	FirmwareVersion    string
	Capabilities       Capabilities
	FirstRegisteredAt  string // RFC3339 "Z"
	LastSeenAt         string // RFC3339 "Z"
	LastBootID         string
}

// Capabilities is the device capability snapshot.
type Capabilities struct {
	Sensors  []string          `json:"sensors,omitempty"`
	Features map[string]bool   `json:"features,omitempty"`
}

// Credential is the persistent API credential record (spec §3).
type Credential struct {
	KeyID       string
	APIKeyHash  string
	CreatedAt   string // RFC3339 "Z"
	LastUsedAt  string // RFC3339 "Z", empty if never used
	IsActive    bool
	Description string
}

// SensorStatus is a per-sensor classification stored alongside a reading.
type SensorStatus string

const (
	SensorOK         SensorStatus = "ok"
	SensorMissing    SensorStatus = "missing"
	SensorOutOfRange SensorStatus = "out_of_range"
)

// Reading is the persistent sensor reading record (spec §3).
type Reading struct {
	HardwareID      string
	TimestampMs     int64
	BatchID         string
	BootID          string
	FirmwareVersion string
	FriendlyName    string // optional snapshot, may be empty
	Sensors         map[string]float64
	SensorStatus    map[string]SensorStatus // keys: bme280, ds18b20, soil_moisture
	ExpiresAt       int64                   // epoch seconds, 0 means no TTL
}

// TsBatch returns the composite sort key for this reading: "%013d#%s".
func (r Reading) TsBatch() string {
	return tsBatch(r.TimestampMs, r.BatchID)
}

func tsBatch(timestampMs int64, batchID string) string {
	return padTimestamp(timestampMs) + "#" + batchID
}

func padTimestamp(timestampMs int64) string {
	// 13-digit zero-padded decimal, per spec §3. Caller is responsible for
	// rejecting timestamp_ms >= 10^13 before this is used as a sort key.
	const width = 13
	s := itoa(timestampMs)
	if len(s) >= width {
		return s
	}
	pad := make([]byte, width-len(s))
	for i := range pad {
		pad[i] = '0'
	}
	return string(pad) + s
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// TsBatchKey builds the sort key from components without a Reading value,
// used by the query engine to build range bounds.
func TsBatchKey(timestampMs int64, batchID string) string {
	return tsBatch(timestampMs, batchID)
}

// ProcessedBatch is the idempotency witness record (spec §3).
type ProcessedBatch struct {
	BatchID        string
	HardwareID     string
	ReceivedAt     string // RFC3339 "Z"
	ExpirationTime int64  // epoch seconds
}
