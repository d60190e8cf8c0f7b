package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-engine-go/internal/engine"
	"matching-engine-go/order"
	"matching-engine-go/risk"
)

func newSettled(t *testing.T) (*engine.Engine, *Settler, *Ledger) {
	t.Helper()
	l := NewLedger()
	s := NewSettler(l, NewTracker(), "USD", nil)
	rules := risk.DefaultRules()
	rules.BoardLot = 10
	e, err := engine.New(engine.WithListener(s), engine.WithRules(rules))
	require.NoError(t, err)
	return e, s, l
}

func submit(t *testing.T, e *engine.Engine, s *Settler, o *order.Order, ref string) *order.MatchResult {
	t.Helper()
	o.ID = o.AccountID + "-" + string(o.Side) + "-" + o.Price.String()
	require.NoError(t, s.Reserve(o, d(ref)))
	res, err := e.Submit(context.Background(), o)
	require.NoError(t, err)
	return res
}

func TestSettlerTradeAndImprovement(t *testing.T) {
	e, s, l := newSettled(t)
	require.NoError(t, l.Add("buyer", "USD", d("1000")))
	require.NoError(t, l.Add("seller", "AAA", d("100")))

	submit(t, e, s, &order.Order{AccountID: "seller", Symbol: "AAA", Side: order.SideSell, Type: order.TypeLimit, Price: d("9.50"), Quantity: 50}, "0")
	assert.True(t, l.Balance("seller", "AAA").Frozen.Equal(d("50")))

	// 买价 10，按 9.5 成交，改善部分解冻
	res := submit(t, e, s, &order.Order{AccountID: "buyer", Symbol: "AAA", Side: order.SideBuy, Type: order.TypeLimit, Price: d("10"), Quantity: 80}, "0")
	require.Equal(t, int64(50), res.FilledQuantity)

	buyUSD := l.Balance("buyer", "USD")
	assert.True(t, buyUSD.Frozen.Equal(d("300")), "30 resting at 10: %s", buyUSD.Frozen)
	assert.True(t, buyUSD.Available.Equal(d("225")), "1000-475-300: %s", buyUSD.Available)
	assert.True(t, l.Balance("buyer", "AAA").Available.Equal(d("50")))
	assert.True(t, l.Balance("seller", "USD").Available.Equal(d("475")))
	assert.True(t, l.Balance("seller", "AAA").Total().Equal(d("50")))

	// 撤单释放剩余冻结
	_, err := e.Cancel(context.Background(), "AAA", res.Order.ID)
	require.NoError(t, err)
	assert.True(t, l.Balance("buyer", "USD").Frozen.IsZero())
	assert.True(t, l.Balance("buyer", "USD").Available.Equal(d("525")))
	_, ok := s.Frozen(res.Order.ID)
	assert.False(t, ok)

	assert.Equal(t, int64(50), s.tracker.NetExposure("buyer", "AAA"))
	assert.Equal(t, int64(-50), s.tracker.NetExposure("seller", "AAA"))
}

func TestSettlerReserveInsufficient(t *testing.T) {
	_, s, l := newSettled(t)
	require.NoError(t, l.Add("buyer", "USD", d("10")))
	o := &order.Order{ID: "o1", AccountID: "buyer", Symbol: "AAA", Side: order.SideBuy, Type: order.TypeLimit, Price: d("10"), Quantity: 10}
	assert.ErrorIs(t, s.Reserve(o, d("0")), ErrInsufficientBalance)

	m := &order.Order{ID: "o2", AccountID: "buyer", Symbol: "AAA", Side: order.SideBuy, Type: order.TypeMarket, Quantity: 10}
	assert.ErrorIs(t, s.Reserve(m, d("0")), ErrNoReferencePrice)
	assert.Error(t, s.Reserve(&order.Order{AccountID: "buyer"}, d("1")))
	assert.True(t, l.Balance("buyer", "USD").Available.Equal(d("10")))
}

func TestSettlerMarketRemainderReleased(t *testing.T) {
	e, s, l := newSettled(t)
	require.NoError(t, l.Add("buyer", "USD", d("1000")))
	require.NoError(t, l.Add("seller", "AAA", d("10")))
	submit(t, e, s, &order.Order{AccountID: "seller", Symbol: "AAA", Side: order.SideSell, Type: order.TypeLimit, Price: d("10"), Quantity: 10}, "0")

	// 参考价 12 冻结 600，成交 100，剩余撤销后全部释放
	res := submit(t, e, s, &order.Order{AccountID: "buyer", Symbol: "AAA", Side: order.SideBuy, Type: order.TypeMarket, Quantity: 50}, "12")
	require.Equal(t, int64(10), res.FilledQuantity)
	b := l.Balance("buyer", "USD")
	assert.True(t, b.Frozen.IsZero())
	assert.True(t, b.Available.Equal(d("900")))
}

func TestSettlerMarketShortfall(t *testing.T) {
	e, s, l := newSettled(t)
	require.NoError(t, l.Add("buyer", "USD", d("1000")))
	require.NoError(t, l.Add("seller", "AAA", d("10")))
	submit(t, e, s, &order.Order{AccountID: "seller", Symbol: "AAA", Side: order.SideSell, Type: order.TypeLimit, Price: d("10"), Quantity: 10}, "0")

	// 参考价低于成交价，差额从可用补扣
	submit(t, e, s, &order.Order{AccountID: "buyer", Symbol: "AAA", Side: order.SideBuy, Type: order.TypeMarket, Quantity: 10}, "8")
	b := l.Balance("buyer", "USD")
	assert.True(t, b.Frozen.IsZero())
	assert.True(t, b.Available.Equal(d("900")))
}

func TestSettlerModifyMovesReservation(t *testing.T) {
	e, s, l := newSettled(t)
	require.NoError(t, l.Add("buyer", "USD", d("1000")))
	res := submit(t, e, s, &order.Order{AccountID: "buyer", Symbol: "AAA", Side: order.SideBuy, Type: order.TypeLimit, Price: d("10"), Quantity: 50}, "0")

	price, qty := d("9"), int64(30)
	mod, err := e.Modify(context.Background(), "AAA", res.Order.ID, &price, &qty)
	require.NoError(t, err)

	_, ok := s.Frozen(res.Order.ID)
	assert.False(t, ok)
	frozen, ok := s.Frozen(mod.Order.ID)
	require.True(t, ok)
	assert.True(t, frozen.Equal(d("270")))
	assert.True(t, l.Balance("buyer", "USD").Frozen.Equal(d("270")))

	qty = 100
	mod2, err := e.Modify(context.Background(), "AAA", mod.Order.ID, nil, &qty)
	require.NoError(t, err)
	frozen, _ = s.Frozen(mod2.Order.ID)
	assert.True(t, frozen.Equal(d("900")))
	assert.True(t, l.Balance("buyer", "USD").Available.Equal(d("100")))
}

func TestSettlerIgnoresUnreservedOrders(t *testing.T) {
	e, s, l := newSettled(t)
	ctx := context.Background()
	_, err := e.Submit(ctx, &order.Order{AccountID: "x", Symbol: "AAA", Side: order.SideSell, Type: order.TypeLimit, Price: d("10"), Quantity: 10})
	require.NoError(t, err)
	_, err = e.Submit(ctx, &order.Order{AccountID: "y", Symbol: "AAA", Side: order.SideBuy, Type: order.TypeLimit, Price: d("10"), Quantity: 10})
	require.NoError(t, err)
	assert.Empty(t, l.Balances("x"))
	assert.Empty(t, l.Balances("y"))
	assert.Equal(t, int64(10), s.tracker.NetExposure("y", "AAA"))
}
