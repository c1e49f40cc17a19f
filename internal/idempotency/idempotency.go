// Package idempotency deduplicates order submissions that carry an
// Idempotency-Key header.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TTL is how long a completed key is remembered.
const TTL = 24 * time.Hour

var (
	// ErrInProgress is returned when a request with the same key is still
	// being processed.
	ErrInProgress = errors.New("idempotency key is already being processed")
	// ErrMismatch is returned when a key is reused for a different request.
	ErrMismatch = errors.New("idempotency key was already used for a different request")
)

const (
	statusProcessing = "processing"
	statusDone       = "done"
)

// fingerprintSpace namespaces request fingerprints (UUIDv5).
var fingerprintSpace = uuid.MustParse("6f1c2a4e-8d0b-5e7f-9a3c-2b4d6e8f0a1c")

// Fingerprint identifies a request body. Equal requests share a fingerprint.
func Fingerprint(req any) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("fingerprinting request: %w", err)
	}
	return uuid.NewSHA1(fingerprintSpace, data).String(), nil
}

// ScopedKey confines a client-chosen key to one caller, so two callers
// picking the same key never see each other's orders.
func ScopedKey(caller, key string) string {
	return caller + ":" + key
}

// Store reserves keys for the duration of a request and remembers the
// order each completed key produced.
type Store interface {
	// Reserve claims key for a request with the given fingerprint. It
	// returns the order ID of an earlier completed request with the same
	// key, or 0 if the caller now holds the key. A key held by a request
	// with another fingerprint fails with ErrMismatch.
	Reserve(ctx context.Context, key, fingerprint string) (int64, error)
	// Complete records the order created under key.
	Complete(ctx context.Context, key, fingerprint string, orderID int64) error
	// Release drops a reservation after a failed request so it can be retried.
	Release(ctx context.Context, key string) error
}

type entry struct {
	status      string
	fingerprint string
	orderID     int64
	expires     time.Time
}

// MemoryStore keeps keys in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]*entry
	now  func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]*entry), now: time.Now}
}

// Reserve implements Store.
func (m *MemoryStore) Reserve(ctx context.Context, key, fingerprint string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.keys[key]; ok && m.now().Before(e.expires) {
		switch {
		case e.fingerprint != fingerprint:
			return 0, ErrMismatch
		case e.status == statusDone:
			return e.orderID, nil
		default:
			return 0, ErrInProgress
		}
	}

	m.keys[key] = &entry{status: statusProcessing, fingerprint: fingerprint, expires: m.now().Add(TTL)}
	return 0, nil
}

// Complete implements Store.
func (m *MemoryStore) Complete(ctx context.Context, key, fingerprint string, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys[key] = &entry{status: statusDone, fingerprint: fingerprint, orderID: orderID, expires: m.now().Add(TTL)}
	return nil
}

// Release implements Store.
func (m *MemoryStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keys, key)
	return nil
}
