// Package boltstore is the concrete realization of the spec's abstract
// key-value store, backed by go.etcd.io/bbolt: an embedded, single-writer,
// ACID engine whose one-transaction-per-Update model maps directly onto
// the spec's "multi-item atomic transaction bounded to a small item
// count" requirement.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

// Bucket names. Secondary indexes are modeled as their own top-level
// buckets mapping an ordering key to the primary key, mirroring the
// spec's "secondary index keyed by declared attributes" contract.
var (
	bucketDevices           = []byte("devices")
	bucketDevicesByActivity = []byte("devices_by_activity")
	bucketCredentials       = []byte("credentials")
	bucketCredentialsByHash = []byte("credentials_by_hash")
	bucketCredentialsByAge  = []byte("credentials_by_age")
	bucketReadings          = []byte("readings") // nested: one sub-bucket per hardware_id
	bucketProcessedBatches  = []byte("processed_batches")
)

// Store is the bbolt-backed implementation of storage.Store.
type Store struct {
	db     *bolt.DB
	reaper *cron.Cron
}

// Open opens (creating if absent) the bbolt database at path and ensures
// all top-level buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{
			bucketDevices, bucketDevicesByActivity,
			bucketCredentials, bucketCredentialsByHash, bucketCredentialsByAge,
			bucketReadings, bucketProcessedBatches,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying bbolt file handle and stops the reaper.
func (s *Store) Close() error {
	if s.reaper != nil {
		s.reaper.Stop()
	}
	return s.db.Close()
}

// StartReaper schedules a periodic sweep of TTL-expired processed-batch
// witnesses and readings, run via robfig/cron since bbolt has no native
// per-item TTL, unlike the key-value store spec.md assumes.
func (s *Store) StartReaper(interval time.Duration) error {
	s.reaper = cron.New()
	spec := fmt.Sprintf("@every %s", interval.String())
	_, err := s.reaper.AddFunc(spec, func() {
		_ = s.reapExpired(time.Now().Unix())
	})
	if err != nil {
		return fmt.Errorf("boltstore: schedule reaper: %w", err)
	}
	s.reaper.Start()
	return nil
}

func (s *Store) reapExpired(nowEpochSeconds int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := reapBucket(tx.Bucket(bucketProcessedBatches), func(raw []byte) (int64, error) {
			var pb storage.ProcessedBatch
			if err := json.Unmarshal(raw, &pb); err != nil {
				return 0, err
			}
			return pb.ExpirationTime, nil
		}, nowEpochSeconds); err != nil {
			return err
		}

		readings := tx.Bucket(bucketReadings)
		return readings.ForEachBucket(func(name []byte) error {
			sub := readings.Bucket(name)
			return reapBucket(sub, func(raw []byte) (int64, error) {
				var r storage.Reading
				if err := json.Unmarshal(raw, &r); err != nil {
					return 0, err
				}
				return r.ExpiresAt, nil
			}, nowEpochSeconds)
		})
	})
}

func reapBucket(b *bolt.Bucket, expiry func([]byte) (int64, error), now int64) error {
	var stale [][]byte
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		exp, err := expiry(v)
		if err != nil {
			continue
		}
		if exp > 0 && exp <= now {
			stale = append(stale, append([]byte(nil), k...))
		}
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// wrapStoreErr classifies a bbolt/internal failure into the storage
// sentinel taxonomy. bbolt itself rarely returns ad-hoc errors outside of
// invariant violations, so everything unrecognized is Transient.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("boltstore: %s: %w", op, errorsJoin(err, storage.ErrTransient))
}

// errorsJoin is a tiny helper equivalent to fmt.Errorf("%w: %w", a, b)
// without requiring Go 1.20 multi-%w support to be assumed by readers;
// preserves Is-matching against both.
func errorsJoin(a, b error) error {
	return &joinedErr{a: a, b: b}
}

type joinedErr struct{ a, b error }

func (j *joinedErr) Error() string { return j.a.Error() }
func (j *joinedErr) Is(target error) bool {
	return target == j.b || target == j.a
}
func (j *joinedErr) Unwrap() []error { return []error{j.a, j.b} }

// ctxDone is a tiny helper used before each bbolt call to honor request
// cancellation; bbolt transactions have no native context support. A done
// context is classified Transient like any other store failure.
func ctxDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return wrapStoreErr("context", ctx.Err())
	default:
		return nil
	}
}
