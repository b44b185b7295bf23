package inventory

import (
	"sort"
	"time"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ManualPick par (lote, cantidad) indicado por el operador en un retiro manual.
type ManualPick struct {
	LotID    string
	Quantity int64
}

// PlanRequest solicitud de retiro para un stock.
type PlanRequest struct {
	StockID  string
	Quantity int64
	Method   string
	Manual   []ManualPick // solo para MethodManual
}

// PlanLine cantidad a retirar de un lote. ExpectedRemaining es el restante leído al planificar
// y sirve de valor esperado en el compare-and-swap de la ejecución.
type PlanLine struct {
	LotID             string
	LotCode           string
	Quantity          int64
	ExpectedRemaining int64
	UnitPrice         *decimal.Decimal
}

// Plan lista ordenada de líneas cuya suma es exactamente la cantidad solicitada.
type Plan struct {
	StockID  string
	Method   string
	Quantity int64
	Lines    []PlanLine
}

// Total suma las cantidades del plan.
func (p *Plan) Total() int64 {
	var t int64
	for _, l := range p.Lines {
		t += l.Quantity
	}
	return t
}

// Planner calcula planes de asignación FIFO, FEFO o manual.
// AllowExpired decide si los lotes vencidos son elegibles.
type Planner struct {
	AllowExpired bool
}

// NewPlanner construye el planificador con la política de vencidos indicada.
func NewPlanner(allowExpired bool) *Planner {
	return &Planner{AllowExpired: allowExpired}
}

// Eligible indica si el lote puede aportar cantidad a un plan en el instante now.
func (p *Planner) Eligible(l *entity.Lot, now time.Time) bool {
	if l.IsTombstoned() || !l.HasRemaining() {
		return false
	}
	return p.AllowExpired || !IsExpired(l.DateExpiration, now)
}

// Plan calcula el plan. Para FIFO/FEFO lots son los lotes del stock; para manual, los lotes
// referenciados por el operador (de cualquier stock, para poder distinguir LotNotInStock).
// No produce planes parciales: o la suma es exacta o devuelve error.
func (p *Planner) Plan(req PlanRequest, lots []*entity.Lot, now time.Time) (*Plan, error) {
	if req.Quantity <= 0 {
		return nil, domain.Errorf(domain.ErrInvalidQuantity, "la cantidad solicitada debe ser un entero positivo (recibido %d)", req.Quantity)
	}
	switch req.Method {
	case entity.MethodFIFO:
		return p.planGreedy(req, lots, now, lessFIFO)
	case entity.MethodFEFO:
		return p.planGreedy(req, lots, now, lessFEFO)
	case entity.MethodManual:
		return p.planManual(req, lots, now)
	}
	return nil, domain.Errorf(domain.ErrInvalidInput, "método de retiro desconocido: %q", req.Method)
}

func (p *Planner) planGreedy(req PlanRequest, lots []*entity.Lot, now time.Time, less func(a, b *entity.Lot) bool) (*Plan, error) {
	candidates := make([]*entity.Lot, 0, len(lots))
	var available int64
	for _, l := range lots {
		if l.StockID != req.StockID || !p.Eligible(l, now) {
			continue
		}
		candidates = append(candidates, l)
		// Se satura en req.Quantity para no desbordar int64.
		if available < req.Quantity {
			available += min(l.QuantityRemaining, req.Quantity-available)
		}
	}
	if available < req.Quantity {
		return nil, domain.Errorf(domain.ErrInsufficientStock,
			"stock insuficiente: solicitado %d, disponible %d", req.Quantity, available)
	}

	sort.Slice(candidates, func(i, j int) bool { return less(candidates[i], candidates[j]) })

	plan := &Plan{StockID: req.StockID, Method: req.Method, Quantity: req.Quantity}
	pending := req.Quantity
	for _, l := range candidates {
		if pending == 0 {
			break
		}
		take := min(pending, l.QuantityRemaining)
		plan.Lines = append(plan.Lines, lineFor(l, take))
		pending -= take
	}
	return plan, nil
}

func (p *Planner) planManual(req PlanRequest, lots []*entity.Lot, now time.Time) (*Plan, error) {
	if len(req.Manual) == 0 {
		return nil, domain.Errorf(domain.ErrAllocationMismatch,
			"la asignación manual está vacía (solicitado %d)", req.Quantity)
	}

	seen := make(map[string]struct{}, len(req.Manual))
	var sum int64
	exceeded := false
	for _, pick := range req.Manual {
		if pick.Quantity <= 0 {
			return nil, domain.Errorf(domain.ErrInvalidQuantity,
				"cantidad inválida para el lote %s: %d", pick.LotID, pick.Quantity)
		}
		if _, dup := seen[pick.LotID]; dup {
			return nil, domain.Errorf(domain.ErrDuplicateLotReference,
				"el lote %s aparece más de una vez en la asignación manual", pick.LotID)
		}
		seen[pick.LotID] = struct{}{}
		if exceeded || pick.Quantity > req.Quantity-sum {
			exceeded = true
			continue
		}
		sum += pick.Quantity
	}
	if exceeded {
		return nil, domain.Errorf(domain.ErrAllocationMismatch,
			"la asignación manual supera la cantidad solicitada (%d)", req.Quantity)
	}
	if sum != req.Quantity {
		return nil, domain.Errorf(domain.ErrAllocationMismatch,
			"la suma de la asignación manual (%d) es distinta de la cantidad solicitada (%d)", sum, req.Quantity)
	}

	byID := make(map[string]*entity.Lot, len(lots))
	for _, l := range lots {
		byID[l.ID] = l
	}

	plan := &Plan{StockID: req.StockID, Method: req.Method, Quantity: req.Quantity}
	for _, pick := range req.Manual {
		l, ok := byID[pick.LotID]
		if !ok || l.IsTombstoned() {
			return nil, domain.Errorf(domain.ErrLotNotFound, "lote %s no encontrado", pick.LotID)
		}
		if l.StockID != req.StockID {
			return nil, domain.Errorf(domain.ErrLotNotInStock,
				"el lote %s no pertenece al stock %s", l.Code, req.StockID)
		}
		if !p.AllowExpired && IsExpired(l.DateExpiration, now) {
			return nil, domain.Errorf(domain.ErrLotExpired, "el lote %s está vencido", l.Code)
		}
		if l.QuantityRemaining < pick.Quantity {
			return nil, domain.Errorf(domain.ErrInsufficientStock,
				"el lote %s tiene %d disponibles, se pidieron %d", l.Code, l.QuantityRemaining, pick.Quantity)
		}
		plan.Lines = append(plan.Lines, lineFor(l, pick.Quantity))
	}
	return plan, nil
}

func lineFor(l *entity.Lot, qty int64) PlanLine {
	return PlanLine{
		LotID:             l.ID,
		LotCode:           l.Code,
		Quantity:          qty,
		ExpectedRemaining: l.QuantityRemaining,
		UnitPrice:         l.UnitPrice,
	}
}

// lessFIFO: fecha de entrada ascendente, empate por id.
func lessFIFO(a, b *entity.Lot) bool {
	if !a.DateEntered.Equal(b.DateEntered) {
		return a.DateEntered.Before(b.DateEntered)
	}
	return a.ID < b.ID
}

// lessFEFO: vencimiento ascendente con los lotes sin vencimiento al final,
// luego fecha de entrada, luego id.
func lessFEFO(a, b *entity.Lot) bool {
	switch {
	case a.DateExpiration != nil && b.DateExpiration != nil:
		if !a.DateExpiration.Equal(*b.DateExpiration) {
			return a.DateExpiration.Before(*b.DateExpiration)
		}
	case a.DateExpiration != nil:
		return true
	case b.DateExpiration != nil:
		return false
	}
	return lessFIFO(a, b)
}
