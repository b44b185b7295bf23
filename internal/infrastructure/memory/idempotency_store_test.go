package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/memory"
)

// stepClock reloj manipulable para probar vencimientos.
type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time { return c.t }

func TestIdempotencyStore_Ciclo(t *testing.T) {
	clk := &stepClock{t: entered}
	s := memory.NewIdempotencyStore(clk)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	id, found, err := s.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, id)

	require.NoError(t, s.Complete(ctx, "k", "m1", time.Hour))
	id, found, err = s.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "m1", id)

	clk.t = clk.t.Add(2 * time.Hour)
	_, found, err = s.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyStore_ReservaVencidaSeReemplaza(t *testing.T) {
	clk := &stepClock{t: entered}
	s := memory.NewIdempotencyStore(clk)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	clk.t = clk.t.Add(time.Minute)
	ok, err = s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyStore_Release(t *testing.T) {
	s := memory.NewIdempotencyStore(nil)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Release(ctx, "k"))

	ok, err = s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyStore_PurgaClavesVencidasNoConsultadas(t *testing.T) {
	clk := &stepClock{t: entered}
	s := memory.NewIdempotencyStore(clk)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		ok, err := s.Reserve(ctx, k, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, s.Complete(ctx, "c", "m1", time.Hour))
	assert.Equal(t, 3, s.Len())

	// a y b vencen sin que nadie las consulte; c sigue vigente.
	clk.t = clk.t.Add(5 * time.Minute)
	ok, err := s.Reserve(ctx, "d", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, s.Len())

	id, found, err := s.Lookup(ctx, "c")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "m1", id)

	clk.t = clk.t.Add(2 * time.Hour)
	require.NoError(t, s.Complete(ctx, "e", "m2", time.Hour))
	assert.Equal(t, 1, s.Len())
}
