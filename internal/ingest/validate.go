package ingest

import "github.com/R3E-Network/envsensor-gateway/internal/storage"

// sensorRange describes the physically plausible range for one of the
// three fixed sensor_status keys, restored from the original range-check
// logic dropped by the distillation (shared/sensor_validation in the
// source tree).
type sensorRange struct {
	min, max float64
}

// sensorRanges is keyed by the fixed keys of the sensor_status map (spec §3).
// Other entries in the sensors payload (e.g. humidity, pressure) are
// stored but do not participate in sensor_status.
var sensorRanges = map[string]sensorRange{
	"bme280":       {min: -40, max: 85},
	"ds18b20":      {min: -40, max: 85},
	"soil_moisture": {min: 0, max: 100},
}

// classifySensors derives the fixed-key sensor_status map from a raw
// reading payload: a present, in-range sensor is ok; present but
// out-of-range is flagged rather than dropped, so a miscalibrated sensor
// stays visible instead of silently losing its row; absent is missing.
func classifySensors(values map[string]float64) map[string]storage.SensorStatus {
	status := make(map[string]storage.SensorStatus, len(sensorRanges))
	for name, r := range sensorRanges {
		v, present := values[name]
		switch {
		case !present:
			status[name] = storage.SensorMissing
		case v >= r.min && v <= r.max:
			status[name] = storage.SensorOK
		default:
			status[name] = storage.SensorOutOfRange
		}
	}
	return status
}
