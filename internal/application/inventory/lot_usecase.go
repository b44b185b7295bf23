package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/dto"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/clock"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/logger"
)

const codeAttempts = 5

// LotUseCase administra el ciclo de vida de los lotes: recepción, edición,
// eliminación lógica, restauración y eliminación definitiva.
type LotUseCase struct {
	lotRepo repository.LotRepository
	stocks  *StockUseCase
	clock   clock.Clock
	log     *logger.Logger
}

// NewLotUseCase construye el caso de uso.
func NewLotUseCase(lotRepo repository.LotRepository, stocks *StockUseCase, clk clock.Clock, log *logger.Logger) *LotUseCase {
	return &LotUseCase{lotRepo: lotRepo, stocks: stocks, clock: clk, log: log.Component("lots")}
}

// Receive registra un lote nuevo en el stock. quantity_remaining = quantity_initial.
func (uc *LotUseCase) Receive(ctx context.Context, companyID, stockID string, in dto.ReceiveLotRequest) (*dto.LotResponse, error) {
	st, err := uc.stocks.LoadStock(ctx, companyID, stockID)
	if err != nil {
		return nil, err
	}
	qty, err := toQuantity(in.QuantityInitial, "quantity_initial")
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	exp, err := parseExpiration(in.DateExpiration, now)
	if err != nil {
		return nil, err
	}
	if err := validatePrice(in.UnitPrice); err != nil {
		return nil, err
	}

	entered := now
	if in.DateEntered != nil {
		entered = *in.DateEntered
	}

	lot := &entity.Lot{
		CompanyID:         companyID,
		StockID:           st.ID,
		LotNumber:         strings.TrimSpace(in.LotNumber),
		QuantityInitial:   qty,
		QuantityRemaining: qty,
		DateEntered:       entered,
		DateExpiration:    exp,
		UnitPrice:         in.UnitPrice,
		Supplier:          strings.TrimSpace(in.Supplier),
		Comment:           in.Comment,
		State:             entity.LotStateActive,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// El código es único por empresa; ante colisión se genera otro.
	for attempt := 1; ; attempt++ {
		lot.ID = uuid.New().String()
		lot.Code = newLotCode(now)
		err = uc.lotRepo.Create(ctx, lot)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicate) || attempt == codeAttempts {
			return nil, err
		}
	}

	uc.log.Info().
		Str("company_id", companyID).
		Str("stock_id", st.ID).
		Str("lot_id", lot.ID).
		Str("lot_code", lot.Code).
		Int64("quantity", qty).
		Msg("lote recibido")

	return uc.respond(ctx, st, lot)
}

// ListAvailable lista los lotes activos con cantidad restante, con sus banderas de vencimiento.
func (uc *LotUseCase) ListAvailable(ctx context.Context, companyID, stockID string) (*dto.LotListResponse, error) {
	st, err := uc.stocks.LoadStock(ctx, companyID, stockID)
	if err != nil {
		return nil, err
	}
	lots, err := uc.stocks.AvailableLots(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	return uc.list(ctx, st, lots)
}

// List lista todos los lotes del stock; includeTrashed agrega los eliminados lógicamente.
func (uc *LotUseCase) List(ctx context.Context, companyID, stockID string, includeTrashed bool) (*dto.LotListResponse, error) {
	st, err := uc.stocks.LoadStock(ctx, companyID, stockID)
	if err != nil {
		return nil, err
	}
	lots, err := uc.lotRepo.ListByStock(ctx, st.ID, includeTrashed)
	if err != nil {
		return nil, err
	}
	return uc.list(ctx, st, lots)
}

// Get devuelve un lote, incluso si está eliminado lógicamente.
func (uc *LotUseCase) Get(ctx context.Context, companyID, lotID string) (*dto.LotResponse, error) {
	lot, st, err := uc.load(ctx, companyID, lotID)
	if err != nil {
		return nil, err
	}
	return uc.respond(ctx, st, lot)
}

// Update modifica los datos de un lote activo. La cantidad inicial solo puede cambiar
// mientras el lote no tenga consumos; en ese caso el restante se ajusta al mismo valor.
func (uc *LotUseCase) Update(ctx context.Context, companyID, lotID string, in dto.UpdateLotRequest) (*dto.LotResponse, error) {
	lot, st, err := uc.load(ctx, companyID, lotID)
	if err != nil {
		return nil, err
	}
	if lot.IsTombstoned() {
		return nil, domain.Errorf(domain.ErrLotNotFound, "el lote %s está eliminado; restáurelo antes de editarlo", lot.Code)
	}
	now := uc.clock.Now()

	if in.QuantityInitial != nil {
		qty, err := toQuantity(*in.QuantityInitial, "quantity_initial")
		if err != nil {
			return nil, err
		}
		if qty != lot.QuantityInitial {
			if !lot.IsUntouched() {
				return nil, domain.Errorf(domain.ErrLotAlreadyConsumed,
					"el lote %s ya tiene consumos; la cantidad inicial no puede cambiar", lot.Code)
			}
			lot.QuantityInitial = qty
			lot.QuantityRemaining = qty
		}
	}
	if in.DateExpiration != nil {
		if *in.DateExpiration == "" {
			lot.DateExpiration = nil
		} else {
			exp, err := parseExpiration(in.DateExpiration, now)
			if err != nil {
				return nil, err
			}
			lot.DateExpiration = exp
		}
	}
	if in.UnitPrice != nil {
		if err := validatePrice(in.UnitPrice); err != nil {
			return nil, err
		}
		lot.UnitPrice = in.UnitPrice
	}
	if in.Supplier != nil {
		lot.Supplier = strings.TrimSpace(*in.Supplier)
	}
	if in.LotNumber != nil {
		lot.LotNumber = strings.TrimSpace(*in.LotNumber)
	}
	if in.Comment != nil {
		lot.Comment = *in.Comment
	}
	lot.UpdatedAt = now

	if err := uc.lotRepo.Update(ctx, lot); err != nil {
		return nil, err
	}
	return uc.respond(ctx, st, lot)
}

// SoftDelete elimina lógicamente un lote agotado. Un lote ya eliminado se deja igual.
func (uc *LotUseCase) SoftDelete(ctx context.Context, companyID, lotID string) error {
	lot, _, err := uc.load(ctx, companyID, lotID)
	if err != nil {
		return err
	}
	if lot.IsTombstoned() {
		return nil
	}
	if lot.HasRemaining() {
		return domain.Errorf(domain.ErrLotNotEmpty,
			"el lote %s aún tiene %d unidades; consúmalas antes de eliminarlo", lot.Code, lot.QuantityRemaining)
	}
	lot.Tombstone(uc.clock.Now())
	if err := uc.lotRepo.SetState(ctx, lot); err != nil {
		return err
	}
	uc.log.Info().Str("company_id", companyID).Str("lot_id", lot.ID).Msg("lote eliminado")
	return nil
}

// Restore revierte la eliminación lógica. Restaurar un lote activo no tiene efecto.
func (uc *LotUseCase) Restore(ctx context.Context, companyID, lotID string) (*dto.LotResponse, error) {
	lot, st, err := uc.load(ctx, companyID, lotID)
	if err != nil {
		return nil, err
	}
	if lot.IsTombstoned() {
		lot.Revive(uc.clock.Now())
		if err := uc.lotRepo.SetState(ctx, lot); err != nil {
			return nil, err
		}
		uc.log.Info().Str("company_id", companyID).Str("lot_id", lot.ID).Msg("lote restaurado")
	}
	return uc.respond(ctx, st, lot)
}

// HardDelete borra definitivamente un lote previamente eliminado.
// Los movimientos que lo referencian conservan su copia de lot_id y lot_code.
func (uc *LotUseCase) HardDelete(ctx context.Context, companyID, lotID string) error {
	lot, _, err := uc.load(ctx, companyID, lotID)
	if err != nil {
		return err
	}
	if !lot.IsTombstoned() {
		return domain.Errorf(domain.ErrLotNotDeleted,
			"el lote %s debe eliminarse lógicamente antes de borrarlo", lot.Code)
	}
	if err := uc.lotRepo.Delete(ctx, lot.ID); err != nil {
		return err
	}
	uc.log.Warn().Str("company_id", companyID).Str("lot_id", lot.ID).Str("lot_code", lot.Code).Msg("lote borrado definitivamente")
	return nil
}

func (uc *LotUseCase) load(ctx context.Context, companyID, lotID string) (*entity.Lot, *entity.Stock, error) {
	lot, err := uc.lotRepo.GetByID(ctx, lotID)
	if err != nil {
		return nil, nil, err
	}
	if lot == nil {
		return nil, nil, domain.Errorf(domain.ErrLotNotFound, "lote %s no encontrado", lotID)
	}
	if lot.CompanyID != companyID {
		return nil, nil, domain.ErrForbidden
	}
	st, err := uc.stocks.LoadStock(ctx, companyID, lot.StockID)
	if err != nil {
		return nil, nil, err
	}
	return lot, st, nil
}

func (uc *LotUseCase) respond(ctx context.Context, st *entity.Stock, lot *entity.Lot) (*dto.LotResponse, error) {
	window, err := uc.stocks.AlertWindow(ctx, st)
	if err != nil {
		return nil, err
	}
	out := toLotResponse(lot, window, uc.clock.Now())
	return &out, nil
}

func (uc *LotUseCase) list(ctx context.Context, st *entity.Stock, lots []*entity.Lot) (*dto.LotListResponse, error) {
	window, err := uc.stocks.AlertWindow(ctx, st)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	items := make([]dto.LotResponse, 0, len(lots))
	for _, l := range lots {
		items = append(items, toLotResponse(l, window, now))
	}
	return &dto.LotListResponse{StockID: st.ID, Total: len(items), Items: items}, nil
}

func toLotResponse(l *entity.Lot, window int, now time.Time) dto.LotResponse {
	status := inventory.Classify(l.DateExpiration, window, now)
	var exp *string
	if l.DateExpiration != nil {
		s := l.DateExpiration.Format(dto.DateLayout)
		exp = &s
	}
	return dto.LotResponse{
		ID:                  l.ID,
		Code:                l.Code,
		StockID:             l.StockID,
		LotNumber:           l.LotNumber,
		QuantityInitial:     l.QuantityInitial,
		QuantityRemaining:   l.QuantityRemaining,
		DateEntered:         l.DateEntered,
		DateExpiration:      exp,
		UnitPrice:           l.UnitPrice,
		Supplier:            l.Supplier,
		Comment:             l.Comment,
		State:               string(l.State),
		DeletedAt:           l.DeletedAt,
		IsExpired:           status.Expired,
		IsNearExpiration:    status.NearExpiration,
		DaysUntilExpiration: status.DaysUntilExpiration,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

// parseExpiration interpreta una fecha YYYY-MM-DD (UTC). La fecha debe ser posterior al día de hoy.
func parseExpiration(s *string, now time.Time) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	exp, err := time.Parse(dto.DateLayout, *s)
	if err != nil {
		return nil, domain.Errorf(domain.ErrInvalidExpirationDate, "fecha de vencimiento inválida: %q", *s)
	}
	if !exp.After(clock.Today(now.UTC())) {
		return nil, domain.Errorf(domain.ErrInvalidExpirationDate,
			"la fecha de vencimiento %s debe ser posterior a hoy", *s)
	}
	return &exp, nil
}

func validatePrice(p *decimal.Decimal) error {
	if p != nil && p.IsNegative() {
		return domain.Errorf(domain.ErrInvalidInput, "unit_price no puede ser negativo")
	}
	return nil
}

// newLotCode genera un código legible LOT-AAAAMMDD-XXXXXX.
func newLotCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:6]
	return "LOT-" + now.Format("20060102") + "-" + suffix
}
