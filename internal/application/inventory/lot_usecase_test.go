package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/dto"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Receive
// ──────────────────────────────────────────────────────────────────────────────

func TestReceive_CreaLoteActivo(t *testing.T) {
	e := newEnv(t, envConfig{})

	out := e.receive(t, stockID, 10, 0, "2026-03-20", "1.50")

	assert.Regexp(t, `^LOT-20260310-[0-9A-F]{6}$`, out.Code)
	assert.Equal(t, int64(10), out.QuantityInitial)
	assert.Equal(t, int64(10), out.QuantityRemaining)
	assert.Equal(t, string(entity.LotStateActive), out.State)
	require.NotNil(t, out.DateExpiration)
	assert.Equal(t, "2026-03-20", *out.DateExpiration)
	// Ventana de la categoría: 15 días; vence en 9 días y 12 horas.
	assert.False(t, out.IsExpired)
	assert.True(t, out.IsNearExpiration)
	require.NotNil(t, out.DaysUntilExpiration)
	assert.Equal(t, 9, *out.DaysUntilExpiration)
}

func TestReceive_SinVencimientoNoMarca(t *testing.T) {
	e := newEnv(t, envConfig{})

	out := e.receive(t, stockID, 3, 0, "", "")

	assert.Nil(t, out.DateExpiration)
	assert.False(t, out.IsExpired)
	assert.False(t, out.IsNearExpiration)
	assert.Nil(t, out.DaysUntilExpiration)
}

func TestReceive_CodigosUnicos(t *testing.T) {
	e := newEnv(t, envConfig{})

	a := e.receive(t, stockID, 1, 0, "", "")
	b := e.receive(t, stockID, 1, 0, "", "")

	assert.NotEqual(t, a.Code, b.Code)
}

func TestReceive_Validaciones(t *testing.T) {
	e := newEnv(t, envConfig{})
	ctx := context.Background()

	cases := []struct {
		name    string
		stock   string
		in      dto.ReceiveLotRequest
		wantErr error
	}{
		{"cantidad cero", stockID, dto.ReceiveLotRequest{QuantityInitial: qty(0)}, domain.ErrInvalidQuantity},
		{"cantidad negativa", stockID, dto.ReceiveLotRequest{QuantityInitial: qty(-4)}, domain.ErrInvalidQuantity},
		{"cantidad fraccionaria", stockID, dto.ReceiveLotRequest{QuantityInitial: decimal.RequireFromString("2.5")}, domain.ErrInvalidQuantity},
		{"vence hoy", stockID, dto.ReceiveLotRequest{QuantityInitial: qty(1), DateExpiration: strPtr("2026-03-10")}, domain.ErrInvalidExpirationDate},
		{"vencimiento pasado", stockID, dto.ReceiveLotRequest{QuantityInitial: qty(1), DateExpiration: strPtr("2025-12-31")}, domain.ErrInvalidExpirationDate},
		{"fecha mal formada", stockID, dto.ReceiveLotRequest{QuantityInitial: qty(1), DateExpiration: strPtr("10/03/2027")}, domain.ErrInvalidExpirationDate},
		{"precio negativo", stockID, dto.ReceiveLotRequest{QuantityInitial: qty(1), UnitPrice: price("-1")}, domain.ErrInvalidInput},
		{"stock inexistente", "44444444-0000-0000-0000-000000000000", dto.ReceiveLotRequest{QuantityInitial: qty(1)}, domain.ErrNotFound},
		{"stock de otra empresa", foreignStockID, dto.ReceiveLotRequest{QuantityInitial: qty(1)}, domain.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.lots.Receive(ctx, companyID, tc.stock, tc.in)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	lots, err := e.store.Lots().ListByStock(ctx, stockID, true)
	require.NoError(t, err)
	assert.Empty(t, lots)
}

// ──────────────────────────────────────────────────────────────────────────────
// Update
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdate_CantidadEnLoteSinConsumos(t *testing.T) {
	e := newEnv(t, envConfig{})
	l := e.receive(t, stockID, 10, 0, "2026-05-01", "")

	out, err := e.lots.Update(context.Background(), companyID, l.ID, dto.UpdateLotRequest{
		QuantityInitial: func() *decimal.Decimal { d := qty(12); return &d }(),
		Supplier:        strPtr("  Roche  "),
		DateExpiration:  strPtr(""),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12), out.QuantityInitial)
	assert.Equal(t, int64(12), out.QuantityRemaining)
	assert.Equal(t, "Roche", out.Supplier)
	assert.Nil(t, out.DateExpiration)
}

func TestUpdate_CantidadEnLoteConsumido(t *testing.T) {
	e := newEnv(t, envConfig{})
	ctx := context.Background()
	l := e.receive(t, stockID, 10, 0, "", "")
	_, err := e.consume.Consume(ctx, inventory.ConsumeInput{
		CompanyID: companyID, StockID: stockID, Quantity: qty(2), Method: entity.MethodFIFO,
	})
	require.NoError(t, err)

	twelve := qty(12)
	_, err = e.lots.Update(ctx, companyID, l.ID, dto.UpdateLotRequest{QuantityInitial: &twelve})
	assert.ErrorIs(t, err, domain.ErrLotAlreadyConsumed)

	// Los demás campos sí pueden cambiar.
	out, err := e.lots.Update(ctx, companyID, l.ID, dto.UpdateLotRequest{Comment: strPtr("revisado")})
	require.NoError(t, err)
	assert.Equal(t, "revisado", out.Comment)
	assert.Equal(t, int64(8), out.QuantityRemaining)
}

func TestUpdate_VencimientoInvalido(t *testing.T) {
	e := newEnv(t, envConfig{})
	l := e.receive(t, stockID, 10, 0, "", "")

	_, err := e.lots.Update(context.Background(), companyID, l.ID, dto.UpdateLotRequest{DateExpiration: strPtr("2026-03-09")})
	assert.ErrorIs(t, err, domain.ErrInvalidExpirationDate)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de vida: eliminar, restaurar, borrar
// ──────────────────────────────────────────────────────────────────────────────

func TestSoftDelete_LoteConRestante(t *testing.T) {
	e := newEnv(t, envConfig{})
	l := e.receive(t, stockID, 10, 0, "", "")

	err := e.lots.SoftDelete(context.Background(), companyID, l.ID)
	assert.ErrorIs(t, err, domain.ErrLotNotEmpty)

	got, err := e.lots.Get(context.Background(), companyID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.LotStateActive), got.State)
}

func TestRestore_DevuelveElLoteIdentico(t *testing.T) {
	e := newEnv(t, envConfig{})
	ctx := context.Background()
	l := e.receive(t, stockID, 6, 3, "2026-08-31", "1.75")

	_, err := e.consume.Consume(ctx, inventory.ConsumeInput{
		CompanyID: companyID, StockID: stockID, Quantity: qty(6), Method: entity.MethodFIFO,
	})
	require.NoError(t, err)

	before, err := e.store.Lots().GetByID(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, before)
	snapshot := *before

	require.NoError(t, e.lots.SoftDelete(ctx, companyID, l.ID))
	_, err = e.lots.Restore(ctx, companyID, l.ID)
	require.NoError(t, err)

	after, err := e.store.Lots().GetByID(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, entity.LotStateActive, after.State)
	assert.Nil(t, after.DeletedAt)
	assert.Equal(t, snapshot.Code, after.Code)
	assert.Equal(t, snapshot.StockID, after.StockID)
	assert.Equal(t, snapshot.QuantityInitial, after.QuantityInitial)
	assert.Equal(t, snapshot.QuantityRemaining, after.QuantityRemaining)
	assert.True(t, snapshot.DateEntered.Equal(after.DateEntered))
	require.NotNil(t, after.DateExpiration)
	assert.True(t, snapshot.DateExpiration.Equal(*after.DateExpiration))
	require.NotNil(t, after.UnitPrice)
	assert.True(t, snapshot.UnitPrice.Equal(*after.UnitPrice))
	assert.Greater(t, after.Version, snapshot.Version)
}

func TestCicloDeVida_ConsumirEliminarRestaurarBorrar(t *testing.T) {
	e := newEnv(t, envConfig{})
	ctx := context.Background()
	l := e.receive(t, stockID, 4, 0, "", "2")

	mov, err := e.consume.Consume(ctx, inventory.ConsumeInput{
		CompanyID: companyID, StockID: stockID, Quantity: qty(4), Method: entity.MethodManual,
		Manual: []dto.ManualLotRequest{{LotID: l.ID, Quantity: qty(4)}},
	})
	require.NoError(t, err)

	require.NoError(t, e.lots.SoftDelete(ctx, companyID, l.ID))
	// Eliminar dos veces no cambia nada.
	require.NoError(t, e.lots.SoftDelete(ctx, companyID, l.ID))

	got, err := e.lots.Get(ctx, companyID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.LotStateTombstoned), got.State)
	require.NotNil(t, got.DeletedAt)

	avail, err := e.lots.ListAvailable(ctx, companyID, stockID)
	require.NoError(t, err)
	assert.Equal(t, 0, avail.Total)

	active, err := e.lots.List(ctx, companyID, stockID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, active.Total)

	all, err := e.lots.List(ctx, companyID, stockID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, all.Total)

	_, err = e.lots.Update(ctx, companyID, l.ID, dto.UpdateLotRequest{Comment: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrLotNotFound)

	restored, err := e.lots.Restore(ctx, companyID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.LotStateActive), restored.State)
	assert.Nil(t, restored.DeletedAt)

	// Restaurar un lote activo no tiene efecto.
	again, err := e.lots.Restore(ctx, companyID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.LotStateActive), again.State)

	err = e.lots.HardDelete(ctx, companyID, l.ID)
	assert.ErrorIs(t, err, domain.ErrLotNotDeleted)

	require.NoError(t, e.lots.SoftDelete(ctx, companyID, l.ID))
	require.NoError(t, e.lots.HardDelete(ctx, companyID, l.ID))

	_, err = e.lots.Get(ctx, companyID, l.ID)
	assert.ErrorIs(t, err, domain.ErrLotNotFound)

	// El movimiento conserva la referencia al lote borrado.
	hist, err := e.movements.Get(ctx, companyID, mov.MovementID)
	require.NoError(t, err)
	require.Len(t, hist.LotsUsed, 1)
	assert.Equal(t, l.ID, hist.LotsUsed[0].LotID)
	assert.Equal(t, l.Code, hist.LotsUsed[0].LotCode)
}

func TestLote_OtraEmpresa(t *testing.T) {
	e := newEnv(t, envConfig{})
	ctx := context.Background()
	l := e.receive(t, stockID, 4, 0, "", "")

	_, err := e.lots.Get(ctx, otherCompanyID, l.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, e.lots.SoftDelete(ctx, otherCompanyID, l.ID), domain.ErrForbidden)
	assert.ErrorIs(t, e.lots.HardDelete(ctx, otherCompanyID, l.ID), domain.ErrForbidden)
}

func TestLote_Inexistente(t *testing.T) {
	e := newEnv(t, envConfig{})

	_, err := e.lots.Get(context.Background(), companyID, "no-existe")
	assert.ErrorIs(t, err, domain.ErrLotNotFound)
}

func TestListAvailable_OrdenDeEntradaYBanderas(t *testing.T) {
	e := newEnv(t, envConfig{})
	ctx := context.Background()
	recent := e.receive(t, stockID, 5, 1, "2026-09-01", "")
	old := e.receive(t, stockID, 5, 10, "2026-03-15", "")
	e.insertExpired(t, "99999999-0000-0000-0000-000000000001", 2)

	out, err := e.lots.ListAvailable(ctx, companyID, stockID)
	require.NoError(t, err)
	require.Equal(t, 3, out.Total)

	assert.True(t, out.Items[0].IsExpired)
	assert.Equal(t, old.ID, out.Items[1].ID)
	assert.True(t, out.Items[1].IsNearExpiration)
	assert.Equal(t, recent.ID, out.Items[2].ID)
	assert.False(t, out.Items[2].IsNearExpiration)
	assert.WithinDuration(t, now.AddDate(0, 0, -1), out.Items[2].DateEntered, time.Second)
}
