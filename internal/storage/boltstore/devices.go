package boltstore

import (
	"context"
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

func activityIndexKey(lastSeenAt, hardwareID string) []byte {
	return []byte(lastSeenAt + "#" + hardwareID)
}

// GetDevice implements storage.DeviceStore.
func (s *Store) GetDevice(ctx context.Context, hardwareID string) (storage.Device, error) {
	if err := ctxDone(ctx); err != nil {
		return storage.Device{}, err
	}
	var dev storage.Device
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketDevices).Get([]byte(hardwareID))
		if raw == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(raw, &dev)
	})
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.Device{}, err
		}
		return storage.Device{}, wrapStoreErr("get device", err)
	}
	return dev, nil
}

// PutDeviceIfAbsent implements storage.DeviceStore.
func (s *Store) PutDeviceIfAbsent(ctx context.Context, dev storage.Device) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		devices := tx.Bucket(bucketDevices)
		if devices.Get([]byte(dev.HardwareID)) != nil {
			return storage.ErrPreconditionFailed
		}
		raw, err := json.Marshal(dev)
		if err != nil {
			return err
		}
		if err := devices.Put([]byte(dev.HardwareID), raw); err != nil {
			return err
		}
		return tx.Bucket(bucketDevicesByActivity).Put(activityIndexKey(dev.LastSeenAt, dev.HardwareID), []byte(dev.HardwareID))
	})
	if err == storage.ErrPreconditionFailed {
		return err
	}
	if err != nil {
		return wrapStoreErr("put device if absent", err)
	}
	return nil
}

// UpdateDeviceSeen implements storage.DeviceStore.
func (s *Store) UpdateDeviceSeen(ctx context.Context, hardwareID, lastSeenAt, lastBootID string) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		devices := tx.Bucket(bucketDevices)
		raw := devices.Get([]byte(hardwareID))
		if raw == nil {
			return storage.ErrNotFound
		}
		var dev storage.Device
		if err := json.Unmarshal(raw, &dev); err != nil {
			return err
		}

		activity := tx.Bucket(bucketDevicesByActivity)
		if err := activity.Delete(activityIndexKey(dev.LastSeenAt, dev.HardwareID)); err != nil {
			return err
		}

		dev.LastSeenAt = lastSeenAt
		dev.LastBootID = lastBootID

		updated, err := json.Marshal(dev)
		if err != nil {
			return err
		}
		if err := devices.Put([]byte(hardwareID), updated); err != nil {
			return err
		}
		return activity.Put(activityIndexKey(lastSeenAt, hardwareID), []byte(hardwareID))
	})
	if err == storage.ErrNotFound {
		return err
	}
	if err != nil {
		return wrapStoreErr("update device seen", err)
	}
	return nil
}

// ListDevicesByActivity implements storage.DeviceStore.
func (s *Store) ListDevicesByActivity(ctx context.Context, limit int, after *storage.DeviceKey) ([]storage.Device, *storage.DeviceKey, error) {
	if err := ctxDone(ctx); err != nil {
		return nil, nil, err
	}

	var (
		devices []storage.Device
		next    *storage.DeviceKey
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		activity := tx.Bucket(bucketDevicesByActivity)
		devBucket := tx.Bucket(bucketDevices)
		c := activity.Cursor()

		var k, v []byte
		if after != nil {
			// Seeking to the boundary key (present or not) and stepping
			// back one yields the largest key strictly less than it,
			// i.e. the first item of the next page in descending order.
			boundary := activityIndexKey(after.GSI1SK, after.HardwareID)
			c.Seek(boundary)
			k, v = c.Prev()
		} else {
			k, v = c.Last()
		}

		for ; k != nil; k, v = c.Prev() {
			raw := devBucket.Get(v)
			if raw == nil {
				continue
			}
			var dev storage.Device
			if err := json.Unmarshal(raw, &dev); err != nil {
				return err
			}
			devices = append(devices, dev)
			if len(devices) == limit {
				if peekK, _ := c.Prev(); peekK != nil {
					next = &storage.DeviceKey{HardwareID: dev.HardwareID, GSI1SK: dev.LastSeenAt}
				}
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrapStoreErr("list devices by activity", err)
	}
	return devices, next, nil
}
