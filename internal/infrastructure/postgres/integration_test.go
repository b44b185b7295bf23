package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/dto"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	domaininv "github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/memory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/postgres"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/clock"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/config"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Contenedor PostgreSQL
// ──────────────────────────────────────────────────────────────────────────────

var (
	companyID  = uuid.NewString()
	stockID    = uuid.NewString()
	consumedAt = time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
)

// newTestPool levanta PostgreSQL, aplica las migraciones y carga un stock.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integración con PostgreSQL omitida en modo -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("erp_labs_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	version, err := postgres.Migrate(dsn)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	catalog := postgres.NewCatalogWriter(pool)
	categoryID := uuid.NewString()
	window := 10
	require.NoError(t, catalog.SaveCategory(ctx, entity.Category{ID: categoryID, CompanyID: companyID, Name: "Reactivos", AlertWindowDays: &window}))
	require.NoError(t, catalog.SaveStock(ctx, entity.Stock{
		ID: stockID, CompanyID: companyID, ArticleID: uuid.NewString(), ArticleName: "Tubo EDTA",
		CategoryID: categoryID, Code: "STK-001", CriticalThreshold: 100,
	}))
	return pool
}

func newLot(remaining int64, entered time.Time, unitPrice string) *entity.Lot {
	l := &entity.Lot{
		ID:                uuid.NewString(),
		CompanyID:         companyID,
		StockID:           stockID,
		Code:              "LOT-" + uuid.NewString()[:8],
		QuantityInitial:   remaining,
		QuantityRemaining: remaining,
		DateEntered:       entered,
		State:             entity.LotStateActive,
		Version:           1,
		CreatedAt:         entered,
		UpdatedAt:         entered,
	}
	if unitPrice != "" {
		p := decimal.RequireFromString(unitPrice)
		l.UnitPrice = &p
	}
	return l
}

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios
// ──────────────────────────────────────────────────────────────────────────────

func TestLotRepo_Postgres(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := postgres.NewLotRepository(pool)
	entered := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	l := newLot(10, entered, "1.2500")
	exp := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	l.DateExpiration = &exp
	require.NoError(t, repo.Create(ctx, l))

	dup := newLot(1, entered, "")
	dup.Code = l.Code
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrDuplicate)

	got, err := repo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.UnitPrice.Equal(decimal.RequireFromString("1.25")))
	require.NotNil(t, got.DateExpiration)
	assert.True(t, got.DateExpiration.Equal(exp))

	missing, err := repo.GetByID(ctx, "no-es-uuid")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.DecrementRemaining(ctx, l.ID, 10, 4, consumedAt))
	assert.ErrorIs(t, repo.DecrementRemaining(ctx, l.ID, 10, 1, consumedAt), domain.ErrConcurrentModification)
	assert.ErrorIs(t, repo.DecrementRemaining(ctx, l.ID, 6, 7, consumedAt), domain.ErrConcurrentModification)

	// La versión leída antes del decremento ya no es válida.
	got.Comment = "tarde"
	assert.ErrorIs(t, repo.Update(ctx, got), domain.ErrConcurrentModification)

	fresh, err := repo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), fresh.QuantityRemaining)
	assert.True(t, fresh.UpdatedAt.Equal(consumedAt))
	fresh.Comment = "revisado"
	require.NoError(t, repo.Update(ctx, fresh))

	assert.ErrorIs(t, repo.Delete(ctx, l.ID), domain.ErrLotNotDeleted)
	require.NoError(t, repo.DecrementRemaining(ctx, l.ID, 6, 6, consumedAt))
	fresh, err = repo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	fresh.Tombstone(entered)
	require.NoError(t, repo.SetState(ctx, fresh))

	active, err := repo.ListByStock(ctx, stockID, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := repo.ListByStock(ctx, stockID, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, entity.LotStateTombstoned, all[0].State)

	require.NoError(t, repo.Delete(ctx, l.ID))
}

func TestTxRunner_Postgres_Rollback(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	lots := postgres.NewLotRepository(pool)
	entered := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	a := newLot(5, entered, "")
	b := newLot(5, entered.Add(time.Hour), "")
	require.NoError(t, lots.Create(ctx, a))
	require.NoError(t, lots.Create(ctx, b))

	err := postgres.NewTxRunner(pool).Run(ctx, func(lotRepo repository.LotRepository, _ repository.MovementRepository) error {
		if err := lotRepo.DecrementRemaining(ctx, a.ID, 5, 5, consumedAt); err != nil {
			return err
		}
		return lotRepo.DecrementRemaining(ctx, b.ID, 4, 1, consumedAt)
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	got, err := lots.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.QuantityRemaining)
}

// Dos consumos simultáneos que recorren los mismos lotes en orden inverso: cada uno
// termina bien o con ErrConcurrentModification, nunca con un deadlock sin tipo.
func TestExecute_Postgres_PlanesEnOrdenInverso(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	lots := postgres.NewLotRepository(pool)
	entered := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	a := newLot(100, entered, "")
	b := newLot(100, entered.Add(time.Hour), "")
	require.NoError(t, lots.Create(ctx, a))
	require.NoError(t, lots.Create(ctx, b))

	exec := inventory.NewConsumptionExecutor(postgres.NewTxRunner(pool), clock.Fixed{At: consumedAt})
	meta := inventory.MovementMeta{CompanyID: companyID, UserID: uuid.NewString()}

	for round := 0; round < 20; round++ {
		curA, err := lots.GetByID(ctx, a.ID)
		require.NoError(t, err)
		curB, err := lots.GetByID(ctx, b.ID)
		require.NoError(t, err)
		line := func(l *entity.Lot) domaininv.PlanLine {
			return domaininv.PlanLine{LotID: l.ID, LotCode: l.Code, Quantity: 1, ExpectedRemaining: l.QuantityRemaining}
		}
		plans := []*domaininv.Plan{
			{StockID: stockID, Method: entity.MethodFIFO, Quantity: 2, Lines: []domaininv.PlanLine{line(curA), line(curB)}},
			{StockID: stockID, Method: entity.MethodManual, Quantity: 2, Lines: []domaininv.PlanLine{line(curB), line(curA)}},
		}

		start := make(chan struct{})
		errs := make([]error, len(plans))
		var wg sync.WaitGroup
		for i, plan := range plans {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, errs[i] = exec.Execute(ctx, plan, meta)
			}()
		}
		close(start)
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrConcurrentModification, "ronda %d", round)
		}
		assert.GreaterOrEqual(t, ok, 1, "ronda %d", round)

		gotA, err := lots.GetByID(ctx, a.ID)
		require.NoError(t, err)
		gotB, err := lots.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, curA.QuantityRemaining-int64(ok), gotA.QuantityRemaining)
		assert.Equal(t, curB.QuantityRemaining-int64(ok), gotB.QuantityRemaining)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Consumo de punta a punta
// ──────────────────────────────────────────────────────────────────────────────

func TestConsume_Postgres(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	clk := clock.Fixed{At: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	lots := postgres.NewLotRepository(pool)
	movs := postgres.NewMovementRepository(pool)
	stocks := inventory.NewStockUseCase(postgres.NewStockRepository(pool), lots, postgres.NewCategoryRepository(pool), clk, 30)
	lotUC := inventory.NewLotUseCase(lots, stocks, clk, logger.Nop())
	consumeUC := inventory.NewConsumeUseCase(postgres.NewTxRunner(pool), stocks, lots, movs,
		memory.NewIdempotencyStore(clk), clk, inventory.ConsumeOptions{Retries: 2}, logger.Nop())
	movementUC := inventory.NewMovementUseCase(movs, stocks)

	first, err := lotUC.Receive(ctx, companyID, stockID, dto.ReceiveLotRequest{
		QuantityInitial: decimal.NewFromInt(10), UnitPrice: func() *decimal.Decimal { d := decimal.NewFromInt(2); return &d }(),
		DateExpiration: func() *string { s := "2026-03-15"; return &s }(),
	})
	require.NoError(t, err)
	assert.True(t, first.IsNearExpiration)
	second, err := lotUC.Receive(ctx, companyID, stockID, dto.ReceiveLotRequest{QuantityInitial: decimal.NewFromInt(10)})
	require.NoError(t, err)

	in := inventory.ConsumeInput{
		CompanyID: companyID, UserID: uuid.NewString(), StockID: stockID,
		Quantity: decimal.NewFromInt(12), Method: entity.MethodFEFO, IdempotencyKey: "pg-1",
	}
	out, err := consumeUC.Consume(ctx, in)
	require.NoError(t, err)
	require.Len(t, out.LotsUsed, 2)
	assert.Equal(t, first.ID, out.LotsUsed[0].LotID)
	assert.True(t, out.TotalCost.Equal(decimal.NewFromInt(20)))

	replay, err := consumeUC.Consume(ctx, in)
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, out.MovementID, replay.MovementID)

	sum, err := stocks.Summary(ctx, companyID, stockID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), sum.TotalRemaining)
	assert.Equal(t, 1, sum.LotCount)
	assert.Equal(t, 10, sum.AlertWindowDays)

	hist, err := movementUC.List(ctx, companyID, stockID, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, hist.Page.Total)
	require.Len(t, hist.Items, 1)
	assert.Equal(t, out.LotsUsed, hist.Items[0].LotsUsed)

	critical, err := stocks.CriticalStocks(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, int64(92), critical[0].Deficit)

	require.NoError(t, lotUC.SoftDelete(ctx, companyID, first.ID))
	require.NoError(t, lotUC.HardDelete(ctx, companyID, first.ID))
	_, err = lotUC.Get(ctx, companyID, second.ID)
	require.NoError(t, err)

	kept, err := movementUC.Get(ctx, companyID, out.MovementID)
	require.NoError(t, err)
	assert.Equal(t, first.Code, kept.LotsUsed[0].LotCode)
}
