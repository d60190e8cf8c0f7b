package monitor

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-engine-go/internal/engine"
	"matching-engine-go/order"
	"matching-engine-go/risk"
)

func TestObserverMetrics(t *testing.T) {
	m := New(DefaultConfig())
	m.OrderSubmitted("AAA", order.TypeLimit)
	m.OrderSubmitted("AAA", order.TypeLimit)
	m.OrderRejected("AAA", order.CodeTickSize)
	m.BookDepth("AAA", 3, 5)
	m.MarketStateChanged("AAA", risk.StateHalted)
	m.QueueDepth(7)
	m.MatchLatency("AAA", 50*time.Microsecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ordersSubmitted.WithLabelValues("AAA", "LIMIT")), "rejected orders count as submitted")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersRejected.WithLabelValues("AAA", string(order.CodeTickSize))))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.bookLevels.WithLabelValues("AAA", "bid")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.bookLevels.WithLabelValues("AAA", "ask")))
	assert.Equal(t, float64(risk.StateHalted.Level()), testutil.ToFloat64(m.marketState.WithLabelValues("AAA")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.dispatchQueue))
	assert.Equal(t, 1, testutil.CollectAndCount(m.matchLatency))
}

func TestListenerMetrics(t *testing.T) {
	m := New(DefaultConfig())
	m.OnTrade(order.Trade{Symbol: "AAA", Price: decimal.RequireFromString("10.5"), Quantity: 30})
	m.OnTrade(order.Trade{Symbol: "AAA", Price: decimal.RequireFromString("10.6"), Quantity: 20})
	m.OnOrderCancelled(engine.CancelEvent{Order: order.Order{Symbol: "AAA"}, Reason: engine.ReasonExpired})
	m.OnOrderModified(engine.ModifyEvent{New: order.Order{Symbol: "AAA"}})
	m.OnMarketStateChanged(engine.StateEvent{Symbol: "AAA", To: risk.StateCircuitBreakerL1})
	m.OnMarketStateChanged(engine.StateEvent{Symbol: "AAA", To: risk.StateContinuous})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tradesTotal.WithLabelValues("AAA")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.tradedVolume.WithLabelValues("AAA")))
	assert.Equal(t, 10.6, testutil.ToFloat64(m.lastPrice.WithLabelValues("AAA")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersCancelled.WithLabelValues("AAA", engine.ReasonExpired)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersModified.WithLabelValues("AAA")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breakerTrips.WithLabelValues("AAA", "L1")))
}

// 通过引擎驱动，确认 Observer 与 Listener 均被调用。
func TestMonitorWiredToEngine(t *testing.T) {
	m := New(DefaultConfig())
	rules := risk.DefaultRules()
	rules.BoardLot = 10
	e, err := engine.New(engine.WithObserver(m), engine.WithListener(m), engine.WithRules(rules))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = e.Submit(ctx, &order.Order{AccountID: "s", Symbol: "AAA", Side: order.SideSell, Type: order.TypeLimit, Price: decimal.NewFromInt(10), Quantity: 10})
	require.NoError(t, err)
	_, err = e.Submit(ctx, &order.Order{AccountID: "b", Symbol: "AAA", Side: order.SideBuy, Type: order.TypeLimit, Price: decimal.NewFromInt(10), Quantity: 10})
	require.NoError(t, err)
	_, err = e.Submit(ctx, &order.Order{AccountID: "b", Symbol: "AAA", Side: order.SideBuy, Type: order.TypeLimit, Price: decimal.NewFromInt(10), Quantity: 15})
	require.Error(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ordersSubmitted.WithLabelValues("AAA", "LIMIT")), "rejected orders count as submitted")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersRejected.WithLabelValues("AAA", string(order.CodeLotSize))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tradesTotal.WithLabelValues("AAA")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(DefaultConfig())
	m.OrderSubmitted("AAA", order.TypeMarket)
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "me_engine_orders_submitted_total"))
}
