package repository

import (
	"context"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
)

// MovementRepository define el puerto de persistencia para movimientos de consumo.
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	// GetByID devuelve nil, nil si el movimiento no existe.
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	ListByStock(ctx context.Context, stockID string, limit, offset int) ([]*entity.Movement, error)
	CountByStock(ctx context.Context, stockID string) (int, error)
}
