// Package credential implements API key generation, peppered hashing, and
// hash-index validation for the data plane, adapted from the teacher's
// Supabase API-key repository methods onto a storage.CredentialStore
// collaborator.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/R3E-Network/envsensor-gateway/internal/clock"
	"github.com/R3E-Network/envsensor-gateway/internal/config"
	"github.com/R3E-Network/envsensor-gateway/internal/idgen"
	"github.com/R3E-Network/envsensor-gateway/internal/logging"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

// Validation outcomes named by spec §4.1.
var (
	ErrMissingKey = errors.New("credential: missing key")
	ErrInvalidKey = errors.New("credential: invalid key")
	ErrKeyRevoked = errors.New("credential: key revoked")
)

// rawKeyBytes is the amount of CSPRNG entropy backing a generated key.
const rawKeyBytes = 32

// lastUsedThrottleSeconds bounds how often a successful validation writes
// back last_used_at.
const lastUsedThrottleSeconds = 300

// Engine generates, hashes, and validates data-plane API keys.
type Engine struct {
	store  storage.CredentialStore
	clock  clock.Clock
	ids    idgen.Generator
	pepper string
	log    *logging.Logger
}

// New constructs a credential Engine. pepper is a server-side secret mixed
// into every hash so a stolen database dump alone cannot be brute forced.
func New(store storage.CredentialStore, c clock.Clock, ids idgen.Generator, pepper string, log *logging.Logger) *Engine {
	return &Engine{store: store, clock: c, ids: ids, pepper: pepper, log: log}
}

// Generated is the result of issuing a new credential: the raw key is
// returned to the caller exactly once and never stored.
type Generated struct {
	KeyID     string
	RawKey    string
	CreatedAt string
}

// Generate creates a new active credential and persists its hash.
func (e *Engine) Generate(ctx context.Context, description string) (Generated, error) {
	raw, err := e.generateRaw()
	if err != nil {
		return Generated{}, err
	}
	hash, err := e.Hash(raw)
	if err != nil {
		return Generated{}, err
	}
	keyID := e.ids.NewV4()
	now := clock.NowRFC3339(e.clock)

	cred := storage.Credential{
		KeyID:       keyID,
		APIKeyHash:  hash,
		CreatedAt:   now,
		LastUsedAt:  "",
		IsActive:    true,
		Description: description,
	}
	if err := e.store.CreateCredential(ctx, cred); err != nil {
		return Generated{}, err
	}
	return Generated{KeyID: keyID, RawKey: raw, CreatedAt: now}, nil
}

// generateRaw returns 32 bytes from a cryptographically strong source,
// hex-encoded to a 64-character lowercase string (spec §4.1). This is the
// only form in which the raw credential ever exists.
func (e *Engine) generateRaw() (string, error) {
	buf := make([]byte, rawKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("credential: generate entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Hash computes the peppered SHA-256 digest of a raw key, hex encoded.
// Fails with config.ErrConfigMissing if the pepper was never configured;
// hashing with an empty pepper would silently defeat it.
func (e *Engine) Hash(rawKey string) (string, error) {
	if e.pepper == "" {
		return "", config.ErrConfigMissing
	}
	sum := sha256.Sum256([]byte(e.pepper + rawKey))
	return hex.EncodeToString(sum[:]), nil
}

// Validate looks up the credential matching rawKey and reports whether it
// is active. A successful validation schedules a best-effort, throttled
// last-used-at update; the caller is never blocked on it. An empty rawKey
// is rejected with ErrMissingKey before touching the store.
func (e *Engine) Validate(ctx context.Context, rawKey string) (storage.Credential, error) {
	if rawKey == "" {
		return storage.Credential{}, ErrMissingKey
	}

	hash, err := e.Hash(rawKey)
	if err != nil {
		return storage.Credential{}, err
	}
	cred, err := e.store.GetCredentialByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Credential{}, ErrInvalidKey
		}
		return storage.Credential{}, err
	}
	if !cred.IsActive {
		return storage.Credential{}, ErrKeyRevoked
	}

	e.touchLastUsed(cred)
	return cred, nil
}

// ErrNotFound is returned when an admin operation targets an unknown
// key_id.
var ErrNotFound = errors.New("credential: not found")

// Revoke marks a credential inactive. Revocation is permanent within this
// system: there is no un-revoke operation (spec §3 lifecycle).
func (e *Engine) Revoke(ctx context.Context, keyID string) error {
	err := e.store.Revoke(ctx, keyID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (e *Engine) touchLastUsed(cred storage.Credential) {
	now := e.clock.Now()
	if cred.LastUsedAt != "" {
		if prev, err := parseRFC3339(cred.LastUsedAt); err == nil {
			if now.Sub(prev).Seconds() < lastUsedThrottleSeconds {
				return
			}
		}
	}
	go func() {
		ctx := context.Background()
		if err := e.store.UpdateLastUsed(ctx, cred.KeyID, clock.NowRFC3339(e.clock)); err != nil {
			if e.log != nil {
				e.log.WithContext(ctx).WithError(err).Warn("credential: failed to update last_used_at")
			}
		}
	}()
}
