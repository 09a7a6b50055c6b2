// Package cursor implements the opaque, endpoint-specific continuation
// tokens used by every paginated endpoint (spec §4.5). A cursor is a
// small JSON record, base64-encoded; decoding tolerates any byte sequence
// and maps malformed input to ErrInvalidCursor, including a well-formed
// cursor from the wrong endpoint.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidCursor is returned for any cursor that cannot be decoded as
// the expected shape, including cursors minted for a different endpoint.
var ErrInvalidCursor = errors.New("cursor: invalid")

// envelope tags the cursor payload with its kind so a cursor from one
// endpoint cannot be silently misapplied to another.
type envelope struct {
	Kind    string          `json:"k"`
	Payload json.RawMessage `json:"p"`
}

const (
	kindDevice     = "device"
	kindReading    = "reading"
	kindCredential = "credential"
)

// DevicePayload is the device-listing cursor shape: {hardware_id, gsi1sk}.
type DevicePayload struct {
	HardwareID string `json:"hardware_id"`
	GSI1SK     string `json:"gsi1sk"`
}

// ReadingPayload is the reading-query cursor shape: {hardware_id, ts_batch}.
type ReadingPayload struct {
	HardwareID string `json:"hardware_id"`
	TsBatch    string `json:"ts_batch"`
}

// CredentialPayload is the credential-listing cursor shape: {key_id, gsi1sk}.
type CredentialPayload struct {
	KeyID  string `json:"key_id"`
	GSI1SK string `json:"gsi1sk"`
}

func encode(kind string, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	env, err := json.Marshal(envelope{Kind: kind, Payload: raw})
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(env), nil
}

func decode(kind string, token string, dst interface{}) error {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return ErrInvalidCursor
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ErrInvalidCursor
	}
	if env.Kind != kind {
		return ErrInvalidCursor
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return ErrInvalidCursor
	}
	return nil
}

// EncodeDevice encodes a device-listing cursor.
func EncodeDevice(p DevicePayload) (string, error) { return encode(kindDevice, p) }

// DecodeDevice decodes a device-listing cursor.
func DecodeDevice(token string) (DevicePayload, error) {
	var p DevicePayload
	err := decode(kindDevice, token, &p)
	return p, err
}

// EncodeReading encodes a reading-query cursor.
func EncodeReading(p ReadingPayload) (string, error) { return encode(kindReading, p) }

// DecodeReading decodes a reading-query cursor.
func DecodeReading(token string) (ReadingPayload, error) {
	var p ReadingPayload
	err := decode(kindReading, token, &p)
	return p, err
}

// EncodeCredential encodes a credential-listing cursor.
func EncodeCredential(p CredentialPayload) (string, error) { return encode(kindCredential, p) }

// DecodeCredential decodes a credential-listing cursor.
func DecodeCredential(token string) (CredentialPayload, error) {
	var p CredentialPayload
	err := decode(kindCredential, token, &p)
	return p, err
}
