package order

import "github.com/shopspring/decimal"

// MatchResult 单次提交的撮合结果。
type MatchResult struct {
	Trades         []Trade
	AvgPrice       decimal.Decimal // 成交量加权均价
	FilledQuantity int64
	Order          Order // 撮合结束时的订单快照

	notional decimal.Decimal
}

// Add 记录一笔成交并增量更新均价。
func (r *MatchResult) Add(t Trade) {
	r.Trades = append(r.Trades, t)
	r.notional = r.notional.Add(t.Notional())
	r.FilledQuantity += t.Quantity
	if r.FilledQuantity > 0 {
		r.AvgPrice = r.notional.Div(decimal.NewFromInt(r.FilledQuantity))
	}
}

// Notional 累计成交金额。
func (r *MatchResult) Notional() decimal.Decimal {
	return r.notional
}
