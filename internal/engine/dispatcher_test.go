package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"matching-engine-go/order"
)

func TestDispatcherPreservesOrder(t *testing.T) {
	rec := &recorder{}
	d := newDispatcher([]Listener{rec}, 2, zap.NewNop())
	require.True(t, d.start())
	assert.False(t, d.start(), "second start is a no-op")

	for i := 0; i < 50; i++ {
		o := &order.Order{ID: fmt.Sprint(i), Symbol: "AAA"}
		var b batch
		b.placed(o)
		d.publish(b)
	}
	require.True(t, d.stop())
	assert.False(t, d.stop())

	require.Len(t, rec.placed, 50)
	for i, o := range rec.placed {
		assert.Equal(t, fmt.Sprint(i), o.ID)
	}
	assert.Equal(t, 0, d.pending())
}

func TestDispatcherInlineWhenStopped(t *testing.T) {
	var calls atomic.Int32
	d := newDispatcher([]Listener{ListenerFuncs{Trade: func(order.Trade) { calls.Add(1) }}}, 0, zap.NewNop())
	var b batch
	b.trade(order.Trade{Symbol: "AAA"})
	b.placed(&order.Order{Symbol: "AAA"})
	d.publish(b)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, defaultQueueSize, d.size)
}

func TestEngineStartStopDrains(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, WithListener(rec), WithQueueSize(1))
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	assert.Error(t, e.Start(ctx))
	assert.Equal(t, StateRunning, e.State())

	for i := 0; i < 20; i++ {
		_, err := e.Submit(ctx, limitOrder("b", order.SideBuy, "10", 10))
		require.NoError(t, err)
	}
	_, err := e.Submit(ctx, limitOrder("s", order.SideSell, "10", 200))
	require.NoError(t, err)

	require.NoError(t, e.Stop())
	assert.Error(t, e.Stop())
	assert.Equal(t, StateStopped, e.State())

	kinds := rec.snapshot()
	trades := 0
	for _, k := range kinds {
		if k == "trade" {
			trades++
		}
	}
	assert.Equal(t, 20, trades)
	assert.Len(t, rec.placed, 20, "fully filled seller is not announced")
	assert.Equal(t, int64(20), e.Stats().Trades)

	// 停止后内联投递
	_, err = e.Submit(ctx, limitOrder("b", order.SideBuy, "10", 10))
	require.NoError(t, err)
	assert.Len(t, rec.placed, 21)
}

func TestEngineStopsWithContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, e.Start(ctx))
	cancel()
	assert.Eventually(t, func() bool { return e.State() == StateStopped }, timeoutShort, tick)
}

func TestConcurrentSymbols(t *testing.T) {
	var tradeQty atomic.Int64
	counter := ListenerFuncs{Trade: func(tr order.Trade) { tradeQty.Add(tr.Quantity) }}
	e := newTestEngine(t, WithListener(counter))
	require.NoError(t, e.Start(context.Background()))

	symbols := []string{"AAA", "BBB", "CCC", "DDD"}
	var (
		wg     sync.WaitGroup
		filled atomic.Int64
	)
	for _, sym := range symbols {
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(sym string, w int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					side := order.SideBuy
					if (i+w)%2 == 0 {
						side = order.SideSell
					}
					o := limitOrder(fmt.Sprintf("acc-%d", w), side, "10", 10)
					o.Symbol = sym
					res, err := e.Submit(context.Background(), o)
					if err != nil {
						t.Errorf("submit: %v", err)
						return
					}
					filled.Add(res.FilledQuantity)
					if i%7 == 0 {
						_, _ = e.Cancel(context.Background(), sym, o.ID)
					}
				}
			}(sym, w)
		}
	}
	wg.Wait()
	require.NoError(t, e.Stop())

	assert.Equal(t, filled.Load(), tradeQty.Load(), "aggressor fills equal traded quantity")
	assert.Equal(t, symbols, e.Symbols())
	for _, sym := range symbols {
		requireInvariants(t, e, sym)
	}
}
