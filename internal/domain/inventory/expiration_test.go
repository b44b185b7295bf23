package inventory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/inventory"
)

var now = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func TestClassify_SinVencimientoNuncaSeMarca(t *testing.T) {
	st := inventory.Classify(nil, 30, now)
	assert.False(t, st.Expired)
	assert.False(t, st.NearExpiration)
	assert.Nil(t, st.DaysUntilExpiration)
}

func TestClassify_Vencido(t *testing.T) {
	st := inventory.Classify(ptrTime(now.Add(-time.Minute)), 30, now)
	assert.True(t, st.Expired)
	assert.False(t, st.NearExpiration, "un lote vencido no está 'por vencer'")
}

func TestClassify_PorVencerDentroDeLaVentana(t *testing.T) {
	st := inventory.Classify(ptrTime(now.AddDate(0, 0, 10)), 30, now)
	assert.False(t, st.Expired)
	assert.True(t, st.NearExpiration)
	require.NotNil(t, st.DaysUntilExpiration)
	assert.Equal(t, 10, *st.DaysUntilExpiration)
}

func TestClassify_LimiteExactoDeLaVentana(t *testing.T) {
	st := inventory.Classify(ptrTime(now.AddDate(0, 0, 30)), 30, now)
	assert.True(t, st.NearExpiration, "(vencimiento - ahora) == ventana cuenta como por vencer")

	st = inventory.Classify(ptrTime(now.AddDate(0, 0, 30).Add(time.Second)), 30, now)
	assert.False(t, st.NearExpiration)
}

func TestClassify_VentanaPorDefecto(t *testing.T) {
	exp := ptrTime(now.AddDate(0, 0, 25))
	assert.True(t, inventory.Classify(exp, 0, now).NearExpiration)
	assert.False(t, inventory.Classify(exp, 7, now).NearExpiration)
}

func TestClassify_EsPura(t *testing.T) {
	exp := ptrTime(now.AddDate(0, 0, 3))
	first := inventory.Classify(exp, 5, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, inventory.Classify(exp, 5, now))
	}
}
