// Package redis contiene los adaptadores sobre Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/config"
)

var _ inventory.IdempotencyStore = (*IdempotencyStore)(nil)

const (
	keyPrefix    = "erp-labs:idempotency:"
	pendingValue = "pending"
)

// NewClient abre el cliente y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// IdempotencyStore implementa inventory.IdempotencyStore sobre Redis, compartido entre instancias.
// La reserva usa SETNX; el valor es "pending" hasta que se asocia el id del movimiento.
type IdempotencyStore struct {
	client *goredis.Client
}

// NewIdempotencyStore construye el almacén con un cliente existente.
func NewIdempotencyStore(client *goredis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Reserve implementa inventory.IdempotencyStore.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingValue, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reservar clave de idempotencia: %w", err)
	}
	return ok, nil
}

// Lookup implementa inventory.IdempotencyStore.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("leer clave de idempotencia: %w", err)
	}
	if v == pendingValue {
		return "", true, nil
	}
	return v, true, nil
}

// Complete implementa inventory.IdempotencyStore.
func (s *IdempotencyStore) Complete(ctx context.Context, key, movementID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+key, movementID, ttl).Err(); err != nil {
		return fmt.Errorf("completar clave de idempotencia: %w", err)
	}
	return nil
}

// Release implementa inventory.IdempotencyStore.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("liberar clave de idempotencia: %w", err)
	}
	return nil
}
