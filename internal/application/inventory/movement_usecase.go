package inventory

import (
	"context"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/dto"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
)

// MovementUseCase consulta el historial de consumos. Los movimientos no se modifican.
type MovementUseCase struct {
	movRepo repository.MovementRepository
	stocks  *StockUseCase
}

// NewMovementUseCase construye el caso de uso.
func NewMovementUseCase(movRepo repository.MovementRepository, stocks *StockUseCase) *MovementUseCase {
	return &MovementUseCase{movRepo: movRepo, stocks: stocks}
}

// List devuelve los movimientos del stock, del más reciente al más antiguo.
func (uc *MovementUseCase) List(ctx context.Context, companyID, stockID string, page dto.PageRequest) (*dto.MovementListResponse, error) {
	page.DefaultPage()
	st, err := uc.stocks.LoadStock(ctx, companyID, stockID)
	if err != nil {
		return nil, err
	}
	movs, err := uc.movRepo.ListByStock(ctx, st.ID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := uc.movRepo.CountByStock(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ConsumeResponse, 0, len(movs))
	for _, m := range movs {
		items = append(items, *toConsumeResponse(m, false))
	}
	return &dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// Get devuelve un movimiento de la empresa.
func (uc *MovementUseCase) Get(ctx context.Context, companyID, id string) (*dto.ConsumeResponse, error) {
	m, err := uc.movRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "movimiento %s no encontrado", id)
	}
	if m.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return toConsumeResponse(m, false), nil
}
