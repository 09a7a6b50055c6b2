package boltstore

import (
	"context"
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

// PutIfNewBatch implements storage.ReadingStore: the atomic two-item write
// from spec §4.3. Both items live in the same bbolt transaction, so a
// precondition failure on the witness rolls back the reading write too.
func (s *Store) PutIfNewBatch(ctx context.Context, batch storage.ProcessedBatch, reading storage.Reading) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		batches := tx.Bucket(bucketProcessedBatches)
		if batches.Get([]byte(batch.BatchID)) != nil {
			return storage.ErrPreconditionFailed
		}

		batchRaw, err := json.Marshal(batch)
		if err != nil {
			return err
		}
		if err := batches.Put([]byte(batch.BatchID), batchRaw); err != nil {
			return err
		}

		readingsRoot := tx.Bucket(bucketReadings)
		deviceBucket, err := readingsRoot.CreateBucketIfNotExists([]byte(reading.HardwareID))
		if err != nil {
			return err
		}
		readingRaw, err := json.Marshal(reading)
		if err != nil {
			return err
		}
		return deviceBucket.Put([]byte(reading.TsBatch()), readingRaw)
	})
	if err == storage.ErrPreconditionFailed {
		return err
	}
	if err != nil {
		return wrapStoreErr("put if new batch", err)
	}
	return nil
}

// QueryReadings implements storage.ReadingStore.
func (s *Store) QueryReadings(ctx context.Context, hardwareID, fromKey, toKey string, limit int, after *storage.ReadingKey) ([]storage.Reading, *storage.ReadingKey, error) {
	if err := ctxDone(ctx); err != nil {
		return nil, nil, err
	}

	var (
		readings []storage.Reading
		next     *storage.ReadingKey
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		deviceBucket := tx.Bucket(bucketReadings).Bucket([]byte(hardwareID))
		if deviceBucket == nil {
			return nil
		}
		c := deviceBucket.Cursor()

		var k, v []byte
		if after != nil {
			c.Seek([]byte(after.TsBatch))
			k, v = c.Prev()
		} else {
			// Position at the last key <= toKey.
			seekK, seekV := c.Seek([]byte(toKey))
			switch {
			case seekK == nil:
				k, v = c.Last()
			case string(seekK) == toKey:
				k, v = seekK, seekV
			default:
				k, v = c.Prev()
			}
		}

		for ; k != nil && string(k) >= fromKey; k, v = c.Prev() {
			if string(k) > toKey {
				continue
			}
			var r storage.Reading
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			readings = append(readings, r)
			if len(readings) == limit {
				if peekK, _ := c.Prev(); peekK != nil && string(peekK) >= fromKey {
					next = &storage.ReadingKey{HardwareID: hardwareID, TsBatch: r.TsBatch()}
				}
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrapStoreErr("query readings", err)
	}
	return readings, next, nil
}

// LatestReading implements storage.ReadingStore.
func (s *Store) LatestReading(ctx context.Context, hardwareID string) (storage.Reading, error) {
	if err := ctxDone(ctx); err != nil {
		return storage.Reading{}, err
	}
	var reading storage.Reading
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		deviceBucket := tx.Bucket(bucketReadings).Bucket([]byte(hardwareID))
		if deviceBucket == nil {
			return nil
		}
		_, v := deviceBucket.Cursor().Last()
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &reading)
	})
	if err != nil {
		return storage.Reading{}, wrapStoreErr("latest reading", err)
	}
	if !found {
		return storage.Reading{}, storage.ErrNotFound
	}
	return reading, nil
}
