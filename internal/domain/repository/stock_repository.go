package repository

import (
	"context"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
)

// StockRepository define el puerto de lectura de stocks (la escritura pertenece al resto del ERP).
type StockRepository interface {
	// GetByID devuelve nil, nil si el stock no existe.
	GetByID(ctx context.Context, id string) (*entity.Stock, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.Stock, error)
}
