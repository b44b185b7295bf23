package inventory

import (
	"context"
	"time"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace rollback: ningún lote queda modificado y no se escribe el movimiento.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		lotRepo repository.LotRepository,
		movRepo repository.MovementRepository,
	) error) error
}

// IdempotencyStore guarda las claves Idempotency-Key de los consumos.
// Una clave pasa por dos estados: reservada (en curso) y completada (asociada a un movimiento).
type IdempotencyStore interface {
	// Reserve marca la clave como en curso. Devuelve false si la clave ya existía.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Lookup devuelve el id de movimiento asociado. found=false si la clave no existe;
	// movementID vacío si la clave está reservada pero aún no completada.
	Lookup(ctx context.Context, key string) (movementID string, found bool, err error)
	// Complete asocia la clave al movimiento registrado.
	Complete(ctx context.Context, key, movementID string, ttl time.Duration) error
	// Release libera una reserva tras un consumo fallido.
	Release(ctx context.Context, key string) error
}
