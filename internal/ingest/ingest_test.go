package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/envsensor-gateway/internal/clock"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
	"github.com/R3E-Network/envsensor-gateway/internal/storage/memstore"
)

func TestValidateBatchSize(t *testing.T) {
	require.NoError(t, ValidateBatchSize(MaxBatchSize))
	require.ErrorIs(t, ValidateBatchSize(MaxBatchSize+1), ErrBatchTooLarge)
}

func TestValidateReadingOrder(t *testing.T) {
	bad := Reading{HardwareID: "not-a-mac", TimestampMs: 1, BatchID: "b"}
	require.ErrorIs(t, ValidateReading(bad), ErrInvalidMAC)

	bad2 := Reading{HardwareID: "AA:BB:CC:DD:EE:FF", TimestampMs: 1, BatchID: "b"}
	require.ErrorIs(t, ValidateReading(bad2), ErrInvalidTS)

	bad3 := Reading{HardwareID: "AA:BB:CC:DD:EE:FF", TimestampMs: 1_700_000_000_000, BatchID: ""}
	require.ErrorIs(t, ValidateReading(bad3), ErrInvalidBatchID)

	good := Reading{HardwareID: "AA:BB:CC:DD:EE:FF", TimestampMs: 1_700_000_000_000, BatchID: "batch-1"}
	require.NoError(t, ValidateReading(good))
}

func TestIngestAcknowledgesThenDeduplicatesReplay(t *testing.T) {
	store := memstore.New()
	e := New(store, clock.Fixed{At: time.Now()}, 0)

	readings := []Reading{
		{HardwareID: "AA:BB:CC:DD:EE:FF", TimestampMs: 1_700_000_000_000, BatchID: "batch-1", Sensors: map[string]float64{"bme280": 20}},
	}
	result, err := e.Ingest(context.Background(), readings)
	require.NoError(t, err)
	require.Equal(t, []string{"batch-1"}, result.AcknowledgedBatchIDs)
	require.Empty(t, result.DuplicateBatchIDs)

	// Replay of the same batch_id is a duplicate, not an error.
	result2, err := e.Ingest(context.Background(), readings)
	require.NoError(t, err)
	require.Empty(t, result2.AcknowledgedBatchIDs)
	require.Equal(t, []string{"batch-1"}, result2.DuplicateBatchIDs)
}

func TestIngestSensorStatusClassification(t *testing.T) {
	store := memstore.New()
	e := New(store, clock.Fixed{At: time.Now()}, 0)

	readings := []Reading{{
		HardwareID:  "AA:BB:CC:DD:EE:FF",
		TimestampMs: 1_700_000_000_000,
		BatchID:     "batch-1",
		Sensors: map[string]float64{
			"bme280":        22.5,
			"soil_moisture": 150, // out of range
			"humidity":      55,  // not a sensor_status key
		},
	}}
	_, err := e.Ingest(context.Background(), readings)
	require.NoError(t, err)

	stored, err := store.LatestReading(context.Background(), "AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	require.Equal(t, storage.SensorOK, stored.SensorStatus["bme280"])
	require.Equal(t, storage.SensorMissing, stored.SensorStatus["ds18b20"])
	require.Equal(t, storage.SensorOutOfRange, stored.SensorStatus["soil_moisture"])
	_, hasHumidityStatus := stored.SensorStatus["humidity"]
	require.False(t, hasHumidityStatus)
	require.Equal(t, 55.0, stored.Sensors["humidity"])
}

type erroringStore struct {
	storage.ReadingStore
	failOn int
	calls  int
}

func (s *erroringStore) PutIfNewBatch(ctx context.Context, batch storage.ProcessedBatch, reading storage.Reading) error {
	s.calls++
	if s.calls == s.failOn {
		return storage.ErrTransient
	}
	return s.ReadingStore.PutIfNewBatch(ctx, batch, reading)
}

func TestIngestAbortsRemainingReadingsOnStoreError(t *testing.T) {
	base := memstore.New()
	failing := &erroringStore{ReadingStore: base, failOn: 2}
	e := New(failing, clock.Fixed{At: time.Now()}, 0)

	readings := []Reading{
		{HardwareID: "AA:BB:CC:DD:EE:FF", TimestampMs: 1_700_000_000_000, BatchID: "batch-1"},
		{HardwareID: "AA:BB:CC:DD:EE:FF", TimestampMs: 1_700_000_001_000, BatchID: "batch-2"},
		{HardwareID: "AA:BB:CC:DD:EE:FF", TimestampMs: 1_700_000_002_000, BatchID: "batch-3"},
	}
	result, err := e.Ingest(context.Background(), readings)
	require.Error(t, err)
	require.True(t, errors.Is(err, storage.ErrTransient))
	require.Equal(t, []string{"batch-1"}, result.AcknowledgedBatchIDs)

	_, lookupErr := base.LatestReading(context.Background(), "AA:BB:CC:DD:EE:FF")
	require.NoError(t, lookupErr, "batch-1 must remain durable despite the later abort")
}
