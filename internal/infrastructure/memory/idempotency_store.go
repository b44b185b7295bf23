package memory

import (
	"context"
	"sync"
	"time"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/clock"
)

var _ inventory.IdempotencyStore = (*IdempotencyStore)(nil)

type idemEntry struct {
	movementID string // vacío mientras la clave está reservada
	expiresAt  time.Time
}

// sweepInterval frecuencia mínima de la limpieza de entradas vencidas.
const sweepInterval = time.Minute

// IdempotencyStore implementa inventory.IdempotencyStore en memoria (una sola instancia).
// Las entradas vencidas se ignoran al leerlas y se purgan al reservar o completar.
type IdempotencyStore struct {
	mu        sync.Mutex
	entries   map[string]idemEntry
	clock     clock.Clock
	nextSweep time.Time
}

// NewIdempotencyStore crea el almacén. clk nil usa la hora del sistema.
func NewIdempotencyStore(clk clock.Clock) *IdempotencyStore {
	if clk == nil {
		clk = clock.Real{}
	}
	return &IdempotencyStore{entries: make(map[string]idemEntry), clock: clk}
}

// Reserve implementa inventory.IdempotencyStore.
func (s *IdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.sweep(now)
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	s.entries[key] = idemEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

// Lookup implementa inventory.IdempotencyStore.
func (s *IdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !s.clock.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return e.movementID, true, nil
}

// Complete implementa inventory.IdempotencyStore.
func (s *IdempotencyStore) Complete(_ context.Context, key, movementID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.sweep(now)
	s.entries[key] = idemEntry{movementID: movementID, expiresAt: now.Add(ttl)}
	return nil
}

// Release implementa inventory.IdempotencyStore.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len cantidad de entradas guardadas, vencidas o no.
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep borra las entradas vencidas. Requiere s.mu tomado.
func (s *IdempotencyStore) sweep(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.nextSweep = now.Add(sweepInterval)
}
