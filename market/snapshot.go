package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker 品种当日成交汇总。
type Ticker struct {
	Symbol     string
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Last       decimal.Decimal
	Volume     int64
	Notional   decimal.Decimal
	TradeCount int64
	Volatility float64
	UpdatedAt  time.Time
}

// VWAP 当日成交量加权均价。
func (t Ticker) VWAP() decimal.Decimal {
	if t.Volume == 0 {
		return decimal.Zero
	}
	return t.Notional.Div(decimal.NewFromInt(t.Volume))
}

// Change 相对开盘价的涨跌幅。
func (t Ticker) Change() decimal.Decimal {
	if !t.Open.IsPositive() {
		return decimal.Zero
	}
	return t.Last.Sub(t.Open).Div(t.Open)
}

func (t *Ticker) add(price decimal.Decimal, qty int64, at time.Time) {
	if t.TradeCount == 0 {
		t.Open, t.High, t.Low = price, price, price
	}
	if price.GreaterThan(t.High) {
		t.High = price
	}
	if price.LessThan(t.Low) {
		t.Low = price
	}
	t.Last = price
	t.Volume += qty
	t.Notional = t.Notional.Add(price.Mul(decimal.NewFromInt(qty)))
	t.TradeCount++
	t.UpdatedAt = at
}
