package repository

import (
	"context"
	"time"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
)

// LotRepository define el puerto de persistencia para lotes (usable con pool o dentro de una tx).
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	// GetByID devuelve nil, nil si el lote no existe. Incluye lotes eliminados.
	GetByID(ctx context.Context, id string) (*entity.Lot, error)
	// GetByIDs devuelve los lotes encontrados (incluye eliminados); los inexistentes se omiten.
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Lot, error)
	// ListByStock lista los lotes del stock ordenados por fecha de entrada e id.
	ListByStock(ctx context.Context, stockID string, includeTombstoned bool) ([]*entity.Lot, error)
	// Update guarda los datos editables; falla con ErrConcurrentModification si la versión cambió.
	// Si tiene éxito incrementa lot.Version.
	Update(ctx context.Context, lot *entity.Lot) error
	// DecrementRemaining aplica compare-and-swap: resta amount solo si el restante actual es expected
	// y el lote está activo. Si no, ErrConcurrentModification. at se guarda como updated_at.
	DecrementRemaining(ctx context.Context, id string, expected, amount int64, at time.Time) error
	// SetState cambia el estado de eliminación; condicionado a la versión leída, que incrementa.
	SetState(ctx context.Context, lot *entity.Lot) error
	// Delete borra físicamente un lote eliminado lógicamente. Si el lote ya no está eliminado
	// (fue restaurado entre la lectura y el borrado) devuelve ErrLotNotDeleted.
	Delete(ctx context.Context, id string) error
}
