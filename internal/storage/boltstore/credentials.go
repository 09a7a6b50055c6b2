package boltstore

import (
	"context"
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

func ageIndexKey(createdAt, keyID string) []byte {
	return []byte(createdAt + "#" + keyID)
}

// CreateCredential implements storage.CredentialStore.
func (s *Store) CreateCredential(ctx context.Context, cred storage.Credential) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		creds := tx.Bucket(bucketCredentials)
		if creds.Get([]byte(cred.KeyID)) != nil {
			return storage.ErrPreconditionFailed
		}
		raw, err := json.Marshal(cred)
		if err != nil {
			return err
		}
		if err := creds.Put([]byte(cred.KeyID), raw); err != nil {
			return err
		}
		if err := tx.Bucket(bucketCredentialsByHash).Put([]byte(cred.APIKeyHash), []byte(cred.KeyID)); err != nil {
			return err
		}
		return tx.Bucket(bucketCredentialsByAge).Put(ageIndexKey(cred.CreatedAt, cred.KeyID), []byte(cred.KeyID))
	})
	if err == storage.ErrPreconditionFailed {
		return err
	}
	if err != nil {
		return wrapStoreErr("create credential", err)
	}
	return nil
}

// GetCredentialByHash implements storage.CredentialStore.
func (s *Store) GetCredentialByHash(ctx context.Context, hash string) (storage.Credential, error) {
	if err := ctxDone(ctx); err != nil {
		return storage.Credential{}, err
	}
	var cred storage.Credential
	err := s.db.View(func(tx *bolt.Tx) error {
		keyID := tx.Bucket(bucketCredentialsByHash).Get([]byte(hash))
		if keyID == nil {
			return storage.ErrNotFound
		}
		raw := tx.Bucket(bucketCredentials).Get(keyID)
		if raw == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(raw, &cred)
	})
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.Credential{}, err
		}
		return storage.Credential{}, wrapStoreErr("get credential by hash", err)
	}
	return cred, nil
}

// GetCredential implements storage.CredentialStore.
func (s *Store) GetCredential(ctx context.Context, keyID string) (storage.Credential, error) {
	if err := ctxDone(ctx); err != nil {
		return storage.Credential{}, err
	}
	var cred storage.Credential
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketCredentials).Get([]byte(keyID))
		if raw == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(raw, &cred)
	})
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.Credential{}, err
		}
		return storage.Credential{}, wrapStoreErr("get credential", err)
	}
	return cred, nil
}

// UpdateLastUsed implements storage.CredentialStore.
func (s *Store) UpdateLastUsed(ctx context.Context, keyID, lastUsedAt string) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		creds := tx.Bucket(bucketCredentials)
		raw := creds.Get([]byte(keyID))
		if raw == nil {
			return storage.ErrNotFound
		}
		var cred storage.Credential
		if err := json.Unmarshal(raw, &cred); err != nil {
			return err
		}
		cred.LastUsedAt = lastUsedAt
		updated, err := json.Marshal(cred)
		if err != nil {
			return err
		}
		return creds.Put([]byte(keyID), updated)
	})
	if err == storage.ErrNotFound {
		return err
	}
	if err != nil {
		return wrapStoreErr("update credential last used", err)
	}
	return nil
}

// Revoke implements storage.CredentialStore.
func (s *Store) Revoke(ctx context.Context, keyID string) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		creds := tx.Bucket(bucketCredentials)
		raw := creds.Get([]byte(keyID))
		if raw == nil {
			return storage.ErrNotFound
		}
		var cred storage.Credential
		if err := json.Unmarshal(raw, &cred); err != nil {
			return err
		}
		cred.IsActive = false
		updated, err := json.Marshal(cred)
		if err != nil {
			return err
		}
		return creds.Put([]byte(keyID), updated)
	})
	if err == storage.ErrNotFound {
		return err
	}
	if err != nil {
		return wrapStoreErr("revoke credential", err)
	}
	return nil
}

// ListCredentialsByAge implements storage.CredentialStore.
func (s *Store) ListCredentialsByAge(ctx context.Context, limit int, after *storage.CredentialKey) ([]storage.Credential, *storage.CredentialKey, error) {
	if err := ctxDone(ctx); err != nil {
		return nil, nil, err
	}

	var (
		creds []storage.Credential
		next  *storage.CredentialKey
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		byAge := tx.Bucket(bucketCredentialsByAge)
		credBucket := tx.Bucket(bucketCredentials)
		c := byAge.Cursor()

		var k, v []byte
		if after != nil {
			boundary := ageIndexKey(after.GSI1SK, after.KeyID)
			c.Seek(boundary)
			k, v = c.Prev()
		} else {
			k, v = c.Last()
		}

		for ; k != nil; k, v = c.Prev() {
			raw := credBucket.Get(v)
			if raw == nil {
				continue
			}
			var cred storage.Credential
			if err := json.Unmarshal(raw, &cred); err != nil {
				return err
			}
			creds = append(creds, cred)
			if len(creds) == limit {
				if peekK, _ := c.Prev(); peekK != nil {
					next = &storage.CredentialKey{KeyID: cred.KeyID, GSI1SK: cred.CreatedAt}
				}
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrapStoreErr("list credentials by age", err)
	}
	return creds, next, nil
}
