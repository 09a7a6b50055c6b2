// Package ingest implements the exactly-once ingest pipeline: request
// validation, sensor range classification, and the atomic two-item write
// that makes batch_id replay a no-op.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/R3E-Network/envsensor-gateway/internal/clock"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
	"github.com/R3E-Network/envsensor-gateway/internal/validate"
)

// MaxBatchSize is the hard cap on readings per POST /data request (spec
// §4.3), enforced after credential validation so an unauthenticated flood
// cannot probe the limit.
const MaxBatchSize = 100

// Validation sentinels named by spec §6/§7. httpapi maps these to the
// matching wire codes.
var (
	ErrBatchTooLarge  = errors.New("ingest: batch exceeds maximum size")
	ErrInvalidMAC     = errors.New("ingest: invalid hardware_id")
	ErrInvalidTS      = errors.New("ingest: timestamp_ms out of range")
	ErrInvalidBatchID = errors.New("ingest: invalid batch_id")
)

// Reading is one entry of the POST /data request body.
type Reading struct {
	HardwareID      string             `json:"hardware_id"`
	TimestampMs     int64              `json:"timestamp_ms"`
	BatchID         string             `json:"batch_id"`
	BootID          string             `json:"boot_id"`
	FirmwareVersion string             `json:"firmware_version"`
	FriendlyName    string             `json:"friendly_name,omitempty"`
	Sensors         map[string]float64 `json:"sensors"`
}

// Result is the outcome of processing one batch.
type Result struct {
	AcknowledgedBatchIDs []string
	DuplicateBatchIDs    []string
}

// Engine performs batch validation and the atomic per-reading write.
type Engine struct {
	readings   storage.ReadingStore
	clock      clock.Clock
	ttlSeconds int64
}

// New constructs an ingest Engine. ttlSeconds configures the optional
// reading-level retention; 0 disables it.
func New(readings storage.ReadingStore, c clock.Clock, ttlSeconds int64) *Engine {
	return &Engine{readings: readings, clock: c, ttlSeconds: ttlSeconds}
}

// ValidateBatchSize enforces the 100-reading cap, checked before any
// per-reading field validation (spec §4.3 precondition 3).
func ValidateBatchSize(n int) error {
	if n > MaxBatchSize {
		return ErrBatchTooLarge
	}
	return nil
}

// ValidateReading checks one reading's structural preconditions (spec
// §4.3 precondition 4), returning the first violation found.
func ValidateReading(r Reading) error {
	if !validate.IsValidMAC(r.HardwareID) {
		return ErrInvalidMAC
	}
	if !validate.IsValidTimestampMs(r.TimestampMs) {
		return ErrInvalidTS
	}
	if !validate.IsValidBatchID(r.BatchID) {
		return ErrInvalidBatchID
	}
	return nil
}

const processedBatchRetentionSeconds = 30 * 86400

// Ingest processes readings in input order, committing each with the
// atomic witness-plus-reading write. A precondition failure on the
// witness is classified DUPLICATE and processing continues; any other
// store failure aborts the remaining readings and is returned to the
// caller, while readings already committed stay durable.
func (e *Engine) Ingest(ctx context.Context, readings []Reading) (Result, error) {
	result := Result{
		AcknowledgedBatchIDs: []string{},
		DuplicateBatchIDs:    []string{},
	}

	for _, r := range readings {
		status := classifySensors(r.Sensors)

		expiresAt := int64(0)
		if e.ttlSeconds > 0 {
			expiresAt = r.TimestampMs/1000 + e.ttlSeconds
		}

		reading := storage.Reading{
			HardwareID:      r.HardwareID,
			TimestampMs:     r.TimestampMs,
			BatchID:         r.BatchID,
			BootID:          r.BootID,
			FirmwareVersion: r.FirmwareVersion,
			FriendlyName:    r.FriendlyName,
			Sensors:         r.Sensors,
			SensorStatus:    status,
			ExpiresAt:       expiresAt,
		}
		batch := storage.ProcessedBatch{
			BatchID:        r.BatchID,
			HardwareID:     r.HardwareID,
			ReceivedAt:     clock.NowRFC3339(e.clock),
			ExpirationTime: clock.NowEpochSeconds(e.clock) + processedBatchRetentionSeconds,
		}

		err := e.readings.PutIfNewBatch(ctx, batch, reading)
		switch {
		case err == nil:
			result.AcknowledgedBatchIDs = append(result.AcknowledgedBatchIDs, r.BatchID)
		case errors.Is(err, storage.ErrPreconditionFailed):
			result.DuplicateBatchIDs = append(result.DuplicateBatchIDs, r.BatchID)
		default:
			return result, fmt.Errorf("ingest: commit batch %q: %w", r.BatchID, err)
		}
	}

	return result, nil
}
