package inventory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/clock"
)

// MovementMeta datos de auditoría que acompañan a un plan al ejecutarse.
type MovementMeta struct {
	CompanyID      string
	UserID         string
	Motif          string
	IdempotencyKey string
}

// ConsumptionExecutor aplica un plan de forma atómica: decrementa cada lote con
// compare-and-swap sobre el restante leído al planificar y registra el movimiento,
// todo en la misma transacción. Si una línea falla no queda ningún cambio.
type ConsumptionExecutor struct {
	txRunner TxRunner
	clock    clock.Clock
}

// NewConsumptionExecutor construye el ejecutor.
func NewConsumptionExecutor(txRunner TxRunner, clk clock.Clock) *ConsumptionExecutor {
	return &ConsumptionExecutor{txRunner: txRunner, clock: clk}
}

// Execute aplica el plan y devuelve el movimiento registrado.
func (e *ConsumptionExecutor) Execute(ctx context.Context, plan *inventory.Plan, meta MovementMeta) (*entity.Movement, error) {
	if plan == nil || len(plan.Lines) == 0 || plan.Total() != plan.Quantity {
		return nil, domain.Errorf(domain.ErrAllocationMismatch, "el plan no cubre la cantidad solicitada")
	}

	lines := make([]entity.MovementLine, 0, len(plan.Lines))
	for _, l := range plan.Lines {
		if l.Quantity <= 0 || l.Quantity > l.ExpectedRemaining {
			return nil, domain.Errorf(domain.ErrInvalidQuantity, "línea inválida para el lote %s: %d", l.LotCode, l.Quantity)
		}
		lines = append(lines, entity.MovementLine{
			LotID:     l.LotID,
			LotCode:   l.LotCode,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	total, avg := inventory.CostCalculator(lines)

	now := e.clock.Now()
	mov := &entity.Movement{
		ID:              uuid.New().String(),
		CompanyID:       meta.CompanyID,
		StockID:         plan.StockID,
		Method:          plan.Method,
		TotalQuantity:   plan.Quantity,
		Motif:           meta.Motif,
		Lines:           lines,
		TotalCost:       total,
		AverageUnitCost: avg,
		IdempotencyKey:  meta.IdempotencyKey,
		CreatedAt:       now,
		CreatedBy:       meta.UserID,
	}

	// Los bloqueos de fila se toman siempre en orden de id de lote; el movimiento conserva el orden del plan.
	ordered := slices.Clone(plan.Lines)
	slices.SortFunc(ordered, func(a, b inventory.PlanLine) int { return strings.Compare(a.LotID, b.LotID) })

	err := e.txRunner.Run(ctx, func(lotRepo repository.LotRepository, movRepo repository.MovementRepository) error {
		for _, l := range ordered {
			if err := lotRepo.DecrementRemaining(ctx, l.LotID, l.ExpectedRemaining, l.Quantity, now); err != nil {
				return err
			}
		}
		return movRepo.Create(ctx, mov)
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}
