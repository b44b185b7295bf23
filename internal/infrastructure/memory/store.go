// Package memory implementa los puertos de persistencia en memoria. Se usa cuando no hay
// DATABASE_URL configurado y en los tests de casos de uso y handlers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
)

// Store guarda stocks, categorías, lotes y movimientos protegidos por un único mutex.
// Una transacción toma el mutex completo y restaura la copia previa si falla.
type Store struct {
	mu         sync.RWMutex
	stocks     map[string]entity.Stock
	categories map[string]entity.Category
	lots       map[string]entity.Lot
	movements  map[string]entity.Movement
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		stocks:     make(map[string]entity.Stock),
		categories: make(map[string]entity.Category),
		lots:       make(map[string]entity.Lot),
		movements:  make(map[string]entity.Movement),
	}
}

// AddStock registra un stock (los stocks los administra el resto del ERP).
func (s *Store) AddStock(st entity.Stock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[st.ID] = st
}

// AddCategory registra una categoría.
func (s *Store) AddCategory(c entity.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

// SaveCategory registra una categoría desde el catálogo de arranque.
func (s *Store) SaveCategory(_ context.Context, c entity.Category) error {
	s.AddCategory(c)
	return nil
}

// SaveStock registra un stock desde el catálogo de arranque.
func (s *Store) SaveStock(_ context.Context, st entity.Stock) error {
	s.AddStock(st)
	return nil
}

// Lots devuelve el repositorio de lotes fuera de transacción.
func (s *Store) Lots() *LotRepo { return &LotRepo{s: s} }

// Movements devuelve el repositorio de movimientos fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Stocks devuelve el repositorio de stocks.
func (s *Store) Stocks() *StockRepo { return &StockRepo{s: s} }

// Categories devuelve el repositorio de categorías.
func (s *Store) Categories() *CategoryRepo { return &CategoryRepo{s: s} }

// TxRunner devuelve el runner transaccional del almacén.
func (s *Store) TxRunner() *TxRunner { return &TxRunner{s: s} }

// ─── TxRunner ────────────────────────────────────────────────────────────────

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta fn con el almacén bloqueado; si fn falla se restauran lotes y movimientos.
type TxRunner struct {
	s *Store
}

// Run implementa inventory.TxRunner.
func (r *TxRunner) Run(ctx context.Context, fn func(
	lotRepo repository.LotRepository,
	movRepo repository.MovementRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	lots := make(map[string]entity.Lot, len(r.s.lots))
	for k, v := range r.s.lots {
		lots[k] = v
	}
	movements := make(map[string]entity.Movement, len(r.s.movements))
	for k, v := range r.s.movements {
		movements[k] = v
	}

	if err := fn(&LotRepo{s: r.s, inTx: true}, &MovementRepo{s: r.s, inTx: true}); err != nil {
		r.s.lots = lots
		r.s.movements = movements
		return err
	}
	return nil
}

// ─── Lotes ───────────────────────────────────────────────────────────────────

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación en memoria de LotRepository.
type LotRepo struct {
	s    *Store
	inTx bool // el TxRunner ya tiene el mutex
}

func (r *LotRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *LotRepo) rlock() func() {
	if r.inTx {
		return func() {}
	}
	r.s.mu.RLock()
	return r.s.mu.RUnlock
}

// Create implementa LotRepository.
func (r *LotRepo) Create(_ context.Context, l *entity.Lot) error {
	defer r.lock()()
	if _, ok := r.s.lots[l.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range r.s.lots {
		if other.CompanyID == l.CompanyID && other.Code == l.Code {
			return domain.ErrDuplicate
		}
	}
	r.s.lots[l.ID] = *l
	return nil
}

// GetByID implementa LotRepository.
func (r *LotRepo) GetByID(_ context.Context, id string) (*entity.Lot, error) {
	defer r.rlock()()
	l, ok := r.s.lots[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// GetByIDs implementa LotRepository.
func (r *LotRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Lot, error) {
	defer r.rlock()()
	out := make([]*entity.Lot, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.s.lots[id]; ok {
			out = append(out, &l)
		}
	}
	return out, nil
}

// ListByStock implementa LotRepository.
func (r *LotRepo) ListByStock(_ context.Context, stockID string, includeTombstoned bool) ([]*entity.Lot, error) {
	defer r.rlock()()
	out := make([]*entity.Lot, 0)
	for _, l := range r.s.lots {
		if l.StockID != stockID || (!includeTombstoned && l.IsTombstoned()) {
			continue
		}
		l := l
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateEntered.Equal(out[j].DateEntered) {
			return out[i].DateEntered.Before(out[j].DateEntered)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Update implementa LotRepository.
func (r *LotRepo) Update(_ context.Context, l *entity.Lot) error {
	defer r.lock()()
	cur, ok := r.s.lots[l.ID]
	if !ok || cur.Version != l.Version || cur.IsTombstoned() {
		return domain.Errorf(domain.ErrConcurrentModification, "el lote %s fue modificado por otra operación", l.Code)
	}
	cur.LotNumber = l.LotNumber
	cur.QuantityInitial = l.QuantityInitial
	cur.QuantityRemaining = l.QuantityRemaining
	cur.DateExpiration = l.DateExpiration
	cur.UnitPrice = l.UnitPrice
	cur.Supplier = l.Supplier
	cur.Comment = l.Comment
	cur.UpdatedAt = l.UpdatedAt
	cur.Version++
	r.s.lots[l.ID] = cur
	l.Version = cur.Version
	return nil
}

// DecrementRemaining implementa LotRepository.
func (r *LotRepo) DecrementRemaining(_ context.Context, id string, expected, amount int64, at time.Time) error {
	defer r.lock()()
	cur, ok := r.s.lots[id]
	if !ok || cur.IsTombstoned() || cur.QuantityRemaining != expected || cur.QuantityRemaining < amount {
		return domain.Errorf(domain.ErrConcurrentModification,
			"el restante del lote %s cambió durante el consumo", id)
	}
	cur.QuantityRemaining -= amount
	cur.UpdatedAt = at
	cur.Version++
	r.s.lots[id] = cur
	return nil
}

// SetState implementa LotRepository.
func (r *LotRepo) SetState(_ context.Context, l *entity.Lot) error {
	defer r.lock()()
	cur, ok := r.s.lots[l.ID]
	if !ok || cur.Version != l.Version {
		return domain.Errorf(domain.ErrConcurrentModification, "el lote %s fue modificado por otra operación", l.Code)
	}
	cur.State = l.State
	cur.DeletedAt = l.DeletedAt
	cur.UpdatedAt = l.UpdatedAt
	cur.Version++
	r.s.lots[l.ID] = cur
	l.Version = cur.Version
	return nil
}

// Delete implementa LotRepository.
func (r *LotRepo) Delete(_ context.Context, id string) error {
	defer r.lock()()
	cur, ok := r.s.lots[id]
	if !ok || !cur.IsTombstoned() {
		return domain.Errorf(domain.ErrLotNotDeleted, "el lote %s no está eliminado", id)
	}
	delete(r.s.lots, id)
	return nil
}

// ─── Movimientos ─────────────────────────────────────────────────────────────

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación en memoria de MovementRepository.
type MovementRepo struct {
	s    *Store
	inTx bool
}

// Create implementa MovementRepository.
func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	if !r.inTx {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	cp := *m
	cp.Lines = append([]entity.MovementLine(nil), m.Lines...)
	r.s.movements[m.ID] = cp
	return nil
}

// GetByID implementa MovementRepository.
func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	if !r.inTx {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	m, ok := r.s.movements[id]
	if !ok {
		return nil, nil
	}
	m.Lines = append([]entity.MovementLine(nil), m.Lines...)
	return &m, nil
}

// ListByStock implementa MovementRepository.
func (r *MovementRepo) ListByStock(_ context.Context, stockID string, limit, offset int) ([]*entity.Movement, error) {
	all := r.byStock(stockID)
	if offset >= len(all) {
		return []*entity.Movement{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// CountByStock implementa MovementRepository.
func (r *MovementRepo) CountByStock(_ context.Context, stockID string) (int, error) {
	return len(r.byStock(stockID)), nil
}

func (r *MovementRepo) byStock(stockID string) []*entity.Movement {
	if !r.inTx {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	out := make([]*entity.Movement, 0)
	for _, m := range r.s.movements {
		if m.StockID == stockID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// ─── Stocks y categorías ─────────────────────────────────────────────────────

var (
	_ repository.StockRepository    = (*StockRepo)(nil)
	_ repository.CategoryRepository = (*CategoryRepo)(nil)
)

// StockRepo implementación en memoria de StockRepository.
type StockRepo struct {
	s *Store
}

// GetByID implementa StockRepository.
func (r *StockRepo) GetByID(_ context.Context, id string) (*entity.Stock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.stocks[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// ListByCompany implementa StockRepository.
func (r *StockRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.Stock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Stock, 0)
	for _, st := range r.s.stocks {
		if st.CompanyID == companyID {
			st := st
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// CategoryRepo implementación en memoria de CategoryRepository.
type CategoryRepo struct {
	s *Store
}

// GetByID implementa CategoryRepository.
func (r *CategoryRepo) GetByID(_ context.Context, id string) (*entity.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
