package risk

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-engine-go/order"
)

func limitOrder(side order.Side, price string, qty int64) *order.Order {
	return &order.Order{
		AccountID: "acc-1",
		Symbol:    "AAA",
		Side:      side,
		Type:      order.TypeLimit,
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
		Status:    order.StatusNew,
	}
}

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(DefaultRules())
	require.NoError(t, err)
	return v
}

func TestValidatorStaticChecks(t *testing.T) {
	v := newValidator(t)
	open := MarketView{State: StateContinuous}

	testCases := []struct {
		name  string
		mod   func(o *order.Order)
		code  order.Code
		valid bool
	}{
		{name: "合法限价单", mod: func(*order.Order) {}, valid: true},
		{name: "缺少品种", mod: func(o *order.Order) { o.Symbol = "" }, code: order.CodeMissingField},
		{name: "缺少账户", mod: func(o *order.Order) { o.AccountID = "" }, code: order.CodeMissingField},
		{name: "非法方向", mod: func(o *order.Order) { o.Side = "HOLD" }, code: order.CodeInvalidSide},
		{name: "非法类型", mod: func(o *order.Order) { o.Type = "DAY" }, code: order.CodeInvalidType},
		{name: "数量为零", mod: func(o *order.Order) { o.Quantity = 0 }, code: order.CodeInvalidQuantity},
		{name: "非整手", mod: func(o *order.Order) { o.Quantity = 150 }, code: order.CodeLotSize},
		{name: "超过单笔上限", mod: func(o *order.Order) { o.Quantity = 1_000_100 }, code: order.CodeMaxOrderSize},
		{name: "单笔上限本身合法", mod: func(o *order.Order) { o.Quantity = 1_000_000 }, valid: true},
		{name: "价格为零", mod: func(o *order.Order) { o.Price = decimal.Zero }, code: order.CodeInvalidPrice},
		{name: "价格不在步长上", mod: func(o *order.Order) { o.Price = decimal.RequireFromString("10.013") }, code: order.CodeTickSize},
		{name: "低价段更细步长", mod: func(o *order.Order) { o.Price = decimal.RequireFromString("0.513") }, valid: true},
		{name: "高价段步长 0.05", mod: func(o *order.Order) { o.Price = decimal.RequireFromString("100.03") }, code: order.CodeTickSize},
		{name: "市价单忽略价格", mod: func(o *order.Order) { o.Type = order.TypeMarket; o.Price = decimal.Zero }, valid: true},
		{name: "止损单缺少触发价", mod: func(o *order.Order) { o.Type = order.TypeStopLimit }, code: order.CodeInvalidStopPrice},
		{name: "冰山单显示数量非法", mod: func(o *order.Order) { o.Type = order.TypeIceberg; o.DisplayQuantity = 0 }, code: order.CodeInvalidDisplay},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o := limitOrder(order.SideBuy, "10.00", 100)
			tc.mod(o)
			err := v.Check(o, open)
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, order.ErrValidation), "expected validation error, got %v", err)
			assert.Equal(t, tc.code, order.CodeOf(err))
		})
	}
}

func TestValidatorMarketStateGating(t *testing.T) {
	v := newValidator(t)
	limit := limitOrder(order.SideBuy, "10.00", 100)
	market := limitOrder(order.SideBuy, "0", 100)
	market.Type = order.TypeMarket

	cases := []struct {
		state      MarketState
		limitCode  order.Code
		marketCode order.Code
	}{
		{StateContinuous, "", ""},
		{StateClosed, order.CodeMarketClosed, order.CodeMarketClosed},
		{StateHalted, order.CodeMarketHalted, order.CodeMarketHalted},
		{StateCircuitBreakerL1, "", order.CodeCircuitBreaker},
		{StateCircuitBreakerL2, "", order.CodeCircuitBreaker},
		{StatePreOpen, "", order.CodeMarketNotOpen},
		{StatePostClose, "", order.CodeMarketNotOpen},
	}
	for _, c := range cases {
		view := MarketView{State: c.state}
		err := v.CheckState(limit, view)
		assert.Equal(t, c.limitCode, order.CodeOf(err), "limit in %s", c.state)
		err = v.CheckState(market, view)
		assert.Equal(t, c.marketCode, order.CodeOf(err), "market in %s", c.state)
		if err != nil {
			assert.True(t, errors.Is(err, order.ErrState))
		}
	}
}

func TestValidatorPriceBand(t *testing.T) {
	v := newValidator(t)
	view := MarketView{State: StateContinuous, PreviousClose: decimal.RequireFromString("10.00")}

	assert.NoError(t, v.CheckState(limitOrder(order.SideBuy, "11.00", 100), view))
	assert.NoError(t, v.CheckState(limitOrder(order.SideSell, "9.00", 100), view))

	err := v.CheckState(limitOrder(order.SideBuy, "11.01", 100), view)
	assert.Equal(t, order.CodePriceBand, order.CodeOf(err))
	assert.True(t, errors.Is(err, order.ErrValidation))

	// 没有昨收时跳过价格带
	assert.NoError(t, v.CheckState(limitOrder(order.SideBuy, "50.00", 100), MarketView{State: StateContinuous}))

	low, high := v.Band(decimal.RequireFromString("10"))
	assert.True(t, low.Equal(decimal.RequireFromString("9")))
	assert.True(t, high.Equal(decimal.RequireFromString("11")))
}

func TestValidatorTreatsStopAsMarket(t *testing.T) {
	v := newValidator(t)
	stop := limitOrder(order.SideSell, "0", 100)
	stop.Type = order.TypeStop
	stop.StopPrice = decimal.RequireFromString("9.50")
	stopLimit := limitOrder(order.SideSell, "9.40", 100)
	stopLimit.Type = order.TypeStopLimit
	stopLimit.StopPrice = decimal.RequireFromString("9.50")

	cases := []struct {
		state MarketState
		code  order.Code
	}{
		{StateContinuous, ""},
		{StateCircuitBreakerL1, order.CodeCircuitBreaker},
		{StateCircuitBreakerL2, order.CodeCircuitBreaker},
		{StatePreOpen, order.CodeMarketNotOpen},
		{StatePostClose, order.CodeMarketNotOpen},
	}
	for _, c := range cases {
		view := MarketView{State: c.state}
		assert.Equal(t, c.code, order.CodeOf(v.CheckState(stop, view)), "submit stop in %s", c.state)
		assert.Equal(t, c.code, order.CodeOf(v.CheckTrigger(stop, view)), "trigger stop in %s", c.state)
		assert.NoError(t, v.CheckState(stopLimit, view), "stop-limit in %s", c.state)
	}
}

func TestRulesValidate(t *testing.T) {
	r := DefaultRules()
	require.NoError(t, r.Validate())

	bad := DefaultRules()
	bad.CircuitBreakerL2Pct = decimal.RequireFromString("0.01")
	assert.Error(t, bad.Validate())

	bad = DefaultRules()
	bad.BoardLot = 0
	assert.Error(t, bad.Validate())

	_, err := NewValidator(Rules{})
	assert.Error(t, err)
}
