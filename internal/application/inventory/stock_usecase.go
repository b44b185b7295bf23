package inventory

import (
	"context"
	"sort"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/dto"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/clock"
)

// StockUseCase es la vista agregada de un stock sobre sus lotes: cantidad total,
// lotes disponibles y alertas de vencimiento. La cantidad del stock nunca se guarda,
// siempre se deriva de los lotes activos.
type StockUseCase struct {
	stockRepo     repository.StockRepository
	lotRepo       repository.LotRepository
	categoryRepo  repository.CategoryRepository
	clock         clock.Clock
	defaultWindow int
}

// NewStockUseCase construye el caso de uso. defaultWindow es la ventana de alerta
// para categorías sin configuración propia.
func NewStockUseCase(
	stockRepo repository.StockRepository,
	lotRepo repository.LotRepository,
	categoryRepo repository.CategoryRepository,
	clk clock.Clock,
	defaultWindow int,
) *StockUseCase {
	if defaultWindow <= 0 {
		defaultWindow = inventory.DefaultAlertWindowDays
	}
	return &StockUseCase{
		stockRepo:     stockRepo,
		lotRepo:       lotRepo,
		categoryRepo:  categoryRepo,
		clock:         clk,
		defaultWindow: defaultWindow,
	}
}

// LoadStock obtiene el stock y verifica que pertenezca a la empresa.
func (uc *StockUseCase) LoadStock(ctx context.Context, companyID, stockID string) (*entity.Stock, error) {
	if stockID == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "stock requerido")
	}
	st, err := uc.stockRepo.GetByID(ctx, stockID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "stock %s no encontrado", stockID)
	}
	if st.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return st, nil
}

// AlertWindow devuelve la ventana de alerta de la categoría del stock.
func (uc *StockUseCase) AlertWindow(ctx context.Context, st *entity.Stock) (int, error) {
	if st.CategoryID == "" {
		return uc.defaultWindow, nil
	}
	cat, err := uc.categoryRepo.GetByID(ctx, st.CategoryID)
	if err != nil {
		return 0, err
	}
	return cat.AlertWindow(uc.defaultWindow), nil
}

// AvailableLots devuelve los lotes activos con cantidad restante, en orden de entrada.
func (uc *StockUseCase) AvailableLots(ctx context.Context, stockID string) ([]*entity.Lot, error) {
	lots, err := uc.lotRepo.ListByStock(ctx, stockID, false)
	if err != nil {
		return nil, err
	}
	out := lots[:0]
	for _, l := range lots {
		if !l.IsTombstoned() && l.HasRemaining() {
			out = append(out, l)
		}
	}
	return out, nil
}

// Summary calcula la vista agregada del stock.
func (uc *StockUseCase) Summary(ctx context.Context, companyID, stockID string) (*dto.StockSummaryResponse, error) {
	st, err := uc.LoadStock(ctx, companyID, stockID)
	if err != nil {
		return nil, err
	}
	sum, err := uc.summarize(ctx, st)
	if err != nil {
		return nil, err
	}
	out := toSummaryResponse(sum)
	return &out, nil
}

// CriticalStocks lista los stocks de la empresa cuya cantidad total está en o por debajo
// del umbral crítico, del mayor al menor déficit.
func (uc *StockUseCase) CriticalStocks(ctx context.Context, companyID string) ([]dto.CriticalStockResponse, error) {
	stocks, err := uc.stockRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CriticalStockResponse, 0)
	for _, st := range stocks {
		if st.CriticalThreshold <= 0 {
			continue
		}
		sum, err := uc.summarize(ctx, st)
		if err != nil {
			return nil, err
		}
		if !sum.BelowCritical() {
			continue
		}
		out = append(out, dto.CriticalStockResponse{
			StockSummaryResponse: toSummaryResponse(sum),
			Deficit:              sum.CriticalThreshold - sum.TotalRemaining,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Deficit != out[j].Deficit {
			return out[i].Deficit > out[j].Deficit
		}
		return out[i].StockCode < out[j].StockCode
	})
	for i := range out {
		out[i].Priority = i + 1
	}
	return out, nil
}

func (uc *StockUseCase) summarize(ctx context.Context, st *entity.Stock) (*entity.StockSummary, error) {
	window, err := uc.AlertWindow(ctx, st)
	if err != nil {
		return nil, err
	}
	lots, err := uc.AvailableLots(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	sum := &entity.StockSummary{
		StockID:           st.ID,
		StockCode:         st.Code,
		ArticleName:       st.ArticleName,
		CriticalThreshold: st.CriticalThreshold,
		AlertWindowDays:   window,
	}
	for _, l := range lots {
		sum.TotalRemaining += l.QuantityRemaining
		sum.LotCount++
		status := inventory.Classify(l.DateExpiration, window, now)
		if status.Expired {
			sum.ExpiredCount++
		} else if status.NearExpiration {
			sum.NearExpirationCount++
		}
	}
	return sum, nil
}

func toSummaryResponse(s *entity.StockSummary) dto.StockSummaryResponse {
	return dto.StockSummaryResponse{
		StockID:             s.StockID,
		StockCode:           s.StockCode,
		ArticleName:         s.ArticleName,
		TotalRemaining:      s.TotalRemaining,
		LotCount:            s.LotCount,
		ExpiredCount:        s.ExpiredCount,
		NearExpirationCount: s.NearExpirationCount,
		CriticalThreshold:   s.CriticalThreshold,
		BelowCritical:       s.BelowCritical(),
		AlertWindowDays:     s.AlertWindowDays,
	}
}
