// Package memstore is an in-memory storage.Store fake used by domain
// package unit tests, so credential/registry/ingest/query logic can be
// exercised without a bbolt file on disk.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

// Store is a goroutine-safe in-memory realization of storage.Store.
type Store struct {
	mu sync.Mutex

	devices     map[string]storage.Device
	credentials map[string]storage.Credential
	byHash      map[string]string // hash -> key_id
	batches     map[string]storage.ProcessedBatch
	readings    map[string][]storage.Reading // hardware_id -> readings
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		devices:     map[string]storage.Device{},
		credentials: map[string]storage.Credential{},
		byHash:      map[string]string{},
		batches:     map[string]storage.ProcessedBatch{},
		readings:    map[string][]storage.Reading{},
	}
}

func (s *Store) Close() error { return nil }

// --- DeviceStore ---

func (s *Store) GetDevice(_ context.Context, hardwareID string) (storage.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[hardwareID]
	if !ok {
		return storage.Device{}, storage.ErrNotFound
	}
	return d, nil
}

func (s *Store) PutDeviceIfAbsent(_ context.Context, dev storage.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[dev.HardwareID]; ok {
		return storage.ErrPreconditionFailed
	}
	s.devices[dev.HardwareID] = dev
	return nil
}

func (s *Store) UpdateDeviceSeen(_ context.Context, hardwareID, lastSeenAt, lastBootID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[hardwareID]
	if !ok {
		return storage.ErrNotFound
	}
	d.LastSeenAt = lastSeenAt
	d.LastBootID = lastBootID
	s.devices[hardwareID] = d
	return nil
}

func (s *Store) ListDevicesByActivity(_ context.Context, limit int, after *storage.DeviceKey) ([]storage.Device, *storage.DeviceKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]storage.Device, 0, len(s.devices))
	for _, d := range s.devices {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].LastSeenAt != all[j].LastSeenAt {
			return all[i].LastSeenAt > all[j].LastSeenAt
		}
		return all[i].HardwareID > all[j].HardwareID
	})

	start := 0
	if after != nil {
		for i, d := range all {
			if d.HardwareID == after.HardwareID && d.LastSeenAt == after.GSI1SK {
				start = i + 1
				break
			}
		}
	}
	remaining := all[start:]
	if len(remaining) > limit {
		page := remaining[:limit]
		next := &storage.DeviceKey{HardwareID: page[len(page)-1].HardwareID, GSI1SK: page[len(page)-1].LastSeenAt}
		return page, next, nil
	}
	return remaining, nil, nil
}

// --- CredentialStore ---

func (s *Store) CreateCredential(_ context.Context, cred storage.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[cred.KeyID] = cred
	s.byHash[cred.APIKeyHash] = cred.KeyID
	return nil
}

func (s *Store) GetCredentialByHash(_ context.Context, hash string) (storage.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keyID, ok := s.byHash[hash]
	if !ok {
		return storage.Credential{}, storage.ErrNotFound
	}
	return s.credentials[keyID], nil
}

func (s *Store) GetCredential(_ context.Context, keyID string) (storage.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[keyID]
	if !ok {
		return storage.Credential{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) UpdateLastUsed(_ context.Context, keyID, lastUsedAt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[keyID]
	if !ok {
		return storage.ErrNotFound
	}
	c.LastUsedAt = lastUsedAt
	s.credentials[keyID] = c
	return nil
}

func (s *Store) Revoke(_ context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[keyID]
	if !ok {
		return storage.ErrNotFound
	}
	c.IsActive = false
	s.credentials[keyID] = c
	return nil
}

func (s *Store) ListCredentialsByAge(_ context.Context, limit int, after *storage.CredentialKey) ([]storage.Credential, *storage.CredentialKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]storage.Credential, 0, len(s.credentials))
	for _, c := range s.credentials {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt > all[j].CreatedAt
		}
		return all[i].KeyID > all[j].KeyID
	})

	start := 0
	if after != nil {
		for i, c := range all {
			if c.KeyID == after.KeyID && c.CreatedAt == after.GSI1SK {
				start = i + 1
				break
			}
		}
	}
	remaining := all[start:]
	if len(remaining) > limit {
		page := remaining[:limit]
		next := &storage.CredentialKey{KeyID: page[len(page)-1].KeyID, GSI1SK: page[len(page)-1].CreatedAt}
		return page, next, nil
	}
	return remaining, nil, nil
}

// --- ReadingStore ---

func (s *Store) PutIfNewBatch(_ context.Context, batch storage.ProcessedBatch, reading storage.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[batch.BatchID]; ok {
		return storage.ErrPreconditionFailed
	}
	s.batches[batch.BatchID] = batch
	s.readings[reading.HardwareID] = append(s.readings[reading.HardwareID], reading)
	return nil
}

func (s *Store) QueryReadings(_ context.Context, hardwareID, fromKey, toKey string, limit int, after *storage.ReadingKey) ([]storage.Reading, *storage.ReadingKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := append([]storage.Reading(nil), s.readings[hardwareID]...)
	sort.Slice(all, func(i, j int) bool { return all[i].TsBatch() > all[j].TsBatch() })

	filtered := make([]storage.Reading, 0, len(all))
	for _, r := range all {
		k := r.TsBatch()
		if k >= fromKey && k <= toKey {
			filtered = append(filtered, r)
		}
	}

	start := 0
	if after != nil {
		for i, r := range filtered {
			if r.TsBatch() == after.TsBatch {
				start = i + 1
				break
			}
		}
	}
	remaining := filtered[start:]
	if len(remaining) > limit {
		page := remaining[:limit]
		next := &storage.ReadingKey{HardwareID: hardwareID, TsBatch: page[len(page)-1].TsBatch()}
		return page, next, nil
	}
	return remaining, nil, nil
}

func (s *Store) LatestReading(_ context.Context, hardwareID string) (storage.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.readings[hardwareID]
	if len(rs) == 0 {
		return storage.Reading{}, storage.ErrNotFound
	}
	latest := rs[0]
	for _, r := range rs[1:] {
		if r.TsBatch() > latest.TsBatch() {
			latest = r
		}
	}
	return latest, nil
}
