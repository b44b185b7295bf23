package inventory

import (
	"context"
	"time"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/dto"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/clock"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/logger"
	"github.com/shopspring/decimal"
)

// pendingTTL vida de una reserva de idempotencia sin completar; si el proceso cae a mitad
// de un consumo la clave se libera sola.
const pendingTTL = 2 * time.Minute

// ConsumeUseCase retira cantidad de un stock: planifica (FIFO, FEFO o manual),
// ejecuta el plan de forma atómica y registra el movimiento.
type ConsumeUseCase struct {
	stocks   *StockUseCase
	lotRepo  repository.LotRepository
	movRepo  repository.MovementRepository
	planner  *inventory.Planner
	executor *ConsumptionExecutor
	idem     IdempotencyStore
	clock    clock.Clock
	retries  int
	idemTTL  time.Duration
	log      *logger.Logger
}

// ConsumeOptions parámetros de comportamiento del consumo.
type ConsumeOptions struct {
	AllowExpired   bool          // política de lotes vencidos
	Retries        int           // reintentos FIFO/FEFO ante modificación concurrente
	IdempotencyTTL time.Duration // vida de las claves Idempotency-Key
}

// NewConsumeUseCase construye el caso de uso. idem puede ser nil: en ese caso
// la cabecera Idempotency-Key se ignora.
func NewConsumeUseCase(
	txRunner TxRunner,
	stocks *StockUseCase,
	lotRepo repository.LotRepository,
	movRepo repository.MovementRepository,
	idem IdempotencyStore,
	clk clock.Clock,
	opts ConsumeOptions,
	log *logger.Logger,
) *ConsumeUseCase {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &ConsumeUseCase{
		stocks:   stocks,
		lotRepo:  lotRepo,
		movRepo:  movRepo,
		planner:  inventory.NewPlanner(opts.AllowExpired),
		executor: NewConsumptionExecutor(txRunner, clk),
		idem:     idem,
		clock:    clk,
		retries:  opts.Retries,
		idemTTL:  opts.IdempotencyTTL,
		log:      log.Component("consume"),
	}
}

// ConsumeInput entrada del caso de uso Consume.
type ConsumeInput struct {
	CompanyID      string
	UserID         string
	StockID        string
	Quantity       decimal.Decimal
	Method         string
	Motif          string
	Manual         []dto.ManualLotRequest
	IdempotencyKey string
}

// ConsumeFromRequest adapta el request HTTP al caso de uso Consume.
func (uc *ConsumeUseCase) ConsumeFromRequest(ctx context.Context, companyID, userID, stockID, idempotencyKey string, in dto.ConsumeRequest) (*dto.ConsumeResponse, error) {
	return uc.Consume(ctx, ConsumeInput{
		CompanyID:      companyID,
		UserID:         userID,
		StockID:        stockID,
		Quantity:       in.Quantity,
		Method:         in.Method,
		Motif:          in.Motif,
		Manual:         in.ManualLots,
		IdempotencyKey: idempotencyKey,
	})
}

// Consume valida la entrada, aplica la idempotencia si hay clave y ejecuta el retiro.
func (uc *ConsumeUseCase) Consume(ctx context.Context, in ConsumeInput) (*dto.ConsumeResponse, error) {
	req, err := buildPlanRequest(in)
	if err != nil {
		return nil, err
	}
	st, err := uc.stocks.LoadStock(ctx, in.CompanyID, in.StockID)
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey == "" || uc.idem == nil {
		mov, err := uc.consume(ctx, st, req, in)
		if err != nil {
			return nil, err
		}
		return toConsumeResponse(mov, false), nil
	}

	key := idempotencyScope(in.CompanyID, in.IdempotencyKey)
	if resp, done, err := uc.replay(ctx, key, st.ID); done || err != nil {
		return resp, err
	}
	reserved, err := uc.idem.Reserve(ctx, key, min(pendingTTL, uc.idemTTL))
	if err != nil {
		return nil, err
	}
	if !reserved {
		if resp, done, err := uc.replay(ctx, key, st.ID); done || err != nil {
			return resp, err
		}
		return nil, domain.Errorf(domain.ErrIdempotencyConflict, "la clave %q está en uso", in.IdempotencyKey)
	}

	mov, err := uc.consume(ctx, st, req, in)
	if err != nil {
		if relErr := uc.idem.Release(ctx, key); relErr != nil {
			uc.log.Error().Err(relErr).Str("key", in.IdempotencyKey).Msg("no se pudo liberar la clave de idempotencia")
		}
		return nil, err
	}
	if err := uc.idem.Complete(ctx, key, mov.ID, uc.idemTTL); err != nil {
		// El movimiento ya está confirmado; solo se pierde la protección ante reintentos.
		uc.log.Error().Err(err).Str("key", in.IdempotencyKey).Str("movement_id", mov.ID).Msg("no se pudo completar la clave de idempotencia")
	}
	return toConsumeResponse(mov, false), nil
}

// consume planifica y ejecuta. Ante una modificación concurrente FIFO/FEFO se replanifica
// hasta uc.retries veces; un retiro manual nunca se reintenta porque el operador eligió los lotes.
func (uc *ConsumeUseCase) consume(ctx context.Context, st *entity.Stock, req inventory.PlanRequest, in ConsumeInput) (*entity.Movement, error) {
	meta := MovementMeta{
		CompanyID:      in.CompanyID,
		UserID:         in.UserID,
		Motif:          in.Motif,
		IdempotencyKey: in.IdempotencyKey,
	}
	for attempt := 0; ; attempt++ {
		plan, err := uc.plan(ctx, st, req)
		if err != nil {
			return nil, err
		}
		mov, err := uc.executor.Execute(ctx, plan, meta)
		if err == nil {
			uc.log.Info().
				Str("company_id", in.CompanyID).
				Str("stock_id", st.ID).
				Str("movement_id", mov.ID).
				Str("method", mov.Method).
				Int64("quantity", mov.TotalQuantity).
				Int("lots", len(mov.Lines)).
				Msg("consumo registrado")
			return mov, nil
		}
		if !domain.IsRetryable(err) || req.Method == entity.MethodManual || attempt >= uc.retries {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		uc.log.Warn().
			Str("stock_id", st.ID).
			Int("attempt", attempt+1).
			Msg("lote modificado durante el consumo, se replanifica")
	}
}

func (uc *ConsumeUseCase) plan(ctx context.Context, st *entity.Stock, req inventory.PlanRequest) (*inventory.Plan, error) {
	req.StockID = st.ID
	var lots []*entity.Lot
	var err error
	if req.Method == entity.MethodManual {
		ids := make([]string, 0, len(req.Manual))
		for _, p := range req.Manual {
			ids = append(ids, p.LotID)
		}
		lots, err = uc.lotRepo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		// Lotes de otra empresa se tratan como inexistentes.
		own := lots[:0]
		for _, l := range lots {
			if l.CompanyID == st.CompanyID {
				own = append(own, l)
			}
		}
		lots = own
	} else {
		lots, err = uc.stocks.AvailableLots(ctx, st.ID)
		if err != nil {
			return nil, err
		}
	}
	return uc.planner.Plan(req, lots, uc.clock.Now())
}

// replay devuelve el movimiento asociado a una clave ya completada.
// done=true indica que la respuesta (o el error) es definitiva.
func (uc *ConsumeUseCase) replay(ctx context.Context, key, stockID string) (*dto.ConsumeResponse, bool, error) {
	movementID, found, err := uc.idem.Lookup(ctx, key)
	if err != nil {
		return nil, true, err
	}
	if !found {
		return nil, false, nil
	}
	if movementID == "" {
		return nil, true, domain.Errorf(domain.ErrIdempotencyConflict, "hay una solicitud con la misma clave en curso")
	}
	mov, err := uc.movRepo.GetByID(ctx, movementID)
	if err != nil {
		return nil, true, err
	}
	if mov == nil || mov.StockID != stockID {
		return nil, true, domain.Errorf(domain.ErrIdempotencyConflict, "la clave ya se usó para otra solicitud")
	}
	return toConsumeResponse(mov, true), true, nil
}

func buildPlanRequest(in ConsumeInput) (inventory.PlanRequest, error) {
	qty, err := toQuantity(in.Quantity, "quantity")
	if err != nil {
		return inventory.PlanRequest{}, err
	}
	if !entity.IsValidMethod(in.Method) {
		return inventory.PlanRequest{}, domain.Errorf(domain.ErrInvalidInput, "método de retiro desconocido: %q", in.Method)
	}
	req := inventory.PlanRequest{StockID: in.StockID, Quantity: qty, Method: in.Method}
	if in.Method != entity.MethodManual {
		return req, nil
	}
	for _, m := range in.Manual {
		q, err := toQuantity(m.Quantity, "manual_lots.quantity")
		if err != nil {
			return inventory.PlanRequest{}, err
		}
		req.Manual = append(req.Manual, inventory.ManualPick{LotID: m.LotID, Quantity: q})
	}
	return req, nil
}

func idempotencyScope(companyID, key string) string {
	return "consume:" + companyID + ":" + key
}

func toConsumeResponse(m *entity.Movement, replayed bool) *dto.ConsumeResponse {
	used := make([]dto.LotUsage, 0, len(m.Lines))
	for _, l := range m.Lines {
		used = append(used, dto.LotUsage{LotID: l.LotID, LotCode: l.LotCode, Quantity: l.Quantity})
	}
	return &dto.ConsumeResponse{
		MovementID:      m.ID,
		StockID:         m.StockID,
		Method:          m.Method,
		TotalConsumed:   m.TotalQuantity,
		LotsUsed:        used,
		TotalCost:       m.TotalCost,
		AverageUnitCost: m.AverageUnitCost,
		Motif:           m.Motif,
		CreatedAt:       m.CreatedAt,
		CreatedBy:       m.CreatedBy,
		Replayed:        replayed,
	}
}
