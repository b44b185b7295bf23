package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/dto"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/memory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/clock"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

const (
	companyID      = "11111111-1111-1111-1111-111111111111"
	otherCompanyID = "22222222-2222-2222-2222-222222222222"
	userID         = "33333333-3333-3333-3333-333333333333"
	stockID        = "44444444-4444-4444-4444-444444444401"
	otherStockID   = "44444444-4444-4444-4444-444444444402"
	foreignStockID = "44444444-4444-4444-4444-444444444499"
	categoryID     = "55555555-5555-5555-5555-555555555501"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type envConfig struct {
	allowExpired bool
	retries      int
	wrapTx       func(inventory.TxRunner) inventory.TxRunner
}

type env struct {
	store     *memory.Store
	idem      *memory.IdempotencyStore
	stocks    *inventory.StockUseCase
	lots      *inventory.LotUseCase
	consume   *inventory.ConsumeUseCase
	movements *inventory.MovementUseCase
}

func newEnv(t *testing.T, cfg envConfig) *env {
	t.Helper()
	store := memory.NewStore()
	window := 15
	store.AddCategory(entity.Category{ID: categoryID, CompanyID: companyID, Name: "Reactivos", AlertWindowDays: &window})
	store.AddStock(entity.Stock{ID: stockID, CompanyID: companyID, ArticleID: "a1", ArticleName: "Tubo EDTA", CategoryID: categoryID, Code: "STK-001", CriticalThreshold: 5})
	store.AddStock(entity.Stock{ID: otherStockID, CompanyID: companyID, ArticleID: "a2", ArticleName: "Guantes", Code: "STK-002"})
	store.AddStock(entity.Stock{ID: foreignStockID, CompanyID: otherCompanyID, ArticleID: "a3", ArticleName: "Ajeno", Code: "STK-900"})

	clk := clock.Fixed{At: now}
	var tx inventory.TxRunner = store.TxRunner()
	if cfg.wrapTx != nil {
		tx = cfg.wrapTx(tx)
	}
	idem := memory.NewIdempotencyStore(clk)
	stocks := inventory.NewStockUseCase(store.Stocks(), store.Lots(), store.Categories(), clk, 30)
	return &env{
		store:  store,
		idem:   idem,
		stocks: stocks,
		lots:   inventory.NewLotUseCase(store.Lots(), stocks, clk, logger.Nop()),
		consume: inventory.NewConsumeUseCase(tx, stocks, store.Lots(), store.Movements(), idem, clk, inventory.ConsumeOptions{
			AllowExpired:   cfg.allowExpired,
			Retries:        cfg.retries,
			IdempotencyTTL: time.Hour,
		}, logger.Nop()),
		movements: inventory.NewMovementUseCase(store.Movements(), stocks),
	}
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

// receive registra un lote con fecha de entrada now - daysAgo.
func (e *env) receive(t *testing.T, stock string, quantity int64, daysAgo int, expiration string, unitPrice string) *dto.LotResponse {
	t.Helper()
	entered := now.AddDate(0, 0, -daysAgo)
	in := dto.ReceiveLotRequest{QuantityInitial: qty(quantity), DateEntered: &entered}
	if expiration != "" {
		in.DateExpiration = strPtr(expiration)
	}
	if unitPrice != "" {
		in.UnitPrice = price(unitPrice)
	}
	out, err := e.lots.Receive(context.Background(), companyID, stock, in)
	require.NoError(t, err)
	return out
}

// insertExpired guarda directamente un lote ya vencido (la API no permite recibirlos).
func (e *env) insertExpired(t *testing.T, id string, quantity int64) {
	t.Helper()
	exp := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, e.store.Lots().Create(context.Background(), &entity.Lot{
		ID:                id,
		CompanyID:         companyID,
		StockID:           stockID,
		Code:              "LOT-EXP-" + id[:4],
		QuantityInitial:   quantity,
		QuantityRemaining: quantity,
		DateEntered:       now.AddDate(0, 0, -60),
		DateExpiration:    &exp,
		State:             entity.LotStateActive,
		Version:           1,
	}))
}

func (e *env) remaining(t *testing.T, lotID string) int64 {
	t.Helper()
	l, err := e.store.Lots().GetByID(context.Background(), lotID)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l.QuantityRemaining
}

func (e *env) movementCount(t *testing.T, stock string) int {
	t.Helper()
	n, err := e.store.Movements().CountByStock(context.Background(), stock)
	require.NoError(t, err)
	return n
}

// racingTx simula a otro consumidor que modifica el lote justo antes de la transacción.
type racingTx struct {
	inner  inventory.TxRunner
	before func()
	calls  int
}

func (r *racingTx) Run(ctx context.Context, fn func(repository.LotRepository, repository.MovementRepository) error) error {
	r.calls++
	if r.calls == 1 && r.before != nil {
		r.before()
	}
	return r.inner.Run(ctx, fn)
}
