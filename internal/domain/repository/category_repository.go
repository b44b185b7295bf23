package repository

import (
	"context"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
)

// CategoryRepository define el puerto de lectura de categorías (política de alerta).
type CategoryRepository interface {
	// GetByID devuelve nil, nil si la categoría no existe.
	GetByID(ctx context.Context, id string) (*entity.Category, error)
}
