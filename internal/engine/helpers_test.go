package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"matching-engine-go/order"
	"matching-engine-go/risk"
)

const (
	timeoutShort = time.Second
	tick         = 10 * time.Millisecond
)

// stepClock 每次读取前进 1ms，保证时间戳严格递增。
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func testRules() risk.Rules {
	r := risk.DefaultRules()
	r.BoardLot = 10
	return r
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithClock(newStepClock()), WithRules(testRules())}
	e, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func limitOrder(acc string, side order.Side, price string, qty int64) *order.Order {
	return &order.Order{
		AccountID: acc,
		Symbol:    "AAA",
		Side:      side,
		Type:      order.TypeLimit,
		Price:     dec(price),
		Quantity:  qty,
	}
}

func typed(o *order.Order, typ order.Type) *order.Order {
	o.Type = typ
	return o
}

func marketOrder(acc string, side order.Side, qty int64) *order.Order {
	return &order.Order{
		AccountID: acc,
		Symbol:    "AAA",
		Side:      side,
		Type:      order.TypeMarket,
		Quantity:  qty,
	}
}

func stopOrder(acc string, side order.Side, stop string, qty int64) *order.Order {
	return &order.Order{
		AccountID: acc,
		Symbol:    "AAA",
		Side:      side,
		Type:      order.TypeStop,
		StopPrice: dec(stop),
		Quantity:  qty,
	}
}

// recorder 收集全部事件，便于断言顺序。
type recorder struct {
	mu     sync.Mutex
	kinds  []string
	trades []order.Trade
	cancel []CancelEvent
	modify []ModifyEvent
	states []StateEvent
	placed []order.Order
}

func (r *recorder) OnOrderPlaced(o order.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, "placed")
	r.placed = append(r.placed, o)
}

func (r *recorder) OnTrade(t order.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, "trade")
	r.trades = append(r.trades, t)
}

func (r *recorder) OnOrderCancelled(ev CancelEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, "cancelled")
	r.cancel = append(r.cancel, ev)
}

func (r *recorder) OnOrderModified(ev ModifyEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, "modified")
	r.modify = append(r.modify, ev)
}

func (r *recorder) OnMarketStateChanged(ev StateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, "state")
	r.states = append(r.states, ev)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.kinds...)
}

func requireInvariants(t *testing.T, e *Engine, symbol string) {
	t.Helper()
	b, ok := e.lookup(symbol)
	if !ok {
		return
	}
	require.NoError(t, b.checkInvariants())
	snap := b.Snapshot(0)
	if snap.BestBid.Valid && snap.BestAsk.Valid {
		require.True(t, snap.BestBid.Decimal.LessThan(snap.BestAsk.Decimal),
			"crossed book: bid %s ask %s", snap.BestBid.Decimal, snap.BestAsk.Decimal)
	}
}
