package inventory

import "github.com/shopspring/decimal"

// Valuation 基于标记价格计算未实现盈亏。
func (p Position) Valuation(mark decimal.Decimal) (net int64, pnl decimal.Decimal) {
	if p.Net == 0 || !mark.IsPositive() {
		return p.Net, decimal.Zero
	}
	return p.Net, mark.Sub(p.AvgCost).Mul(decimal.NewFromInt(p.Net))
}
