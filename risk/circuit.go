package risk

import "github.com/shopspring/decimal"

// CircuitBreaker 基于相对昨收的涨跌幅触发熔断。
// 状态只升不降，解除需要外部重置市场状态。
type CircuitBreaker struct {
	// 阈值：一级、二级相对涨跌幅
	Level1 decimal.Decimal
	Level2 decimal.Decimal
}

func NewCircuitBreaker(level1, level2 decimal.Decimal) *CircuitBreaker {
	return &CircuitBreaker{Level1: level1, Level2: level2}
}

// Move 返回 |last - prev| / prev；昨收缺失时为 0。
func (c *CircuitBreaker) Move(previousClose, last decimal.Decimal) decimal.Decimal {
	if !previousClose.IsPositive() {
		return decimal.Zero
	}
	return last.Sub(previousClose).Abs().Div(previousClose)
}

// Evaluate 返回 (新状态, 是否变化)。
func (c *CircuitBreaker) Evaluate(previousClose, last decimal.Decimal, current MarketState) (MarketState, bool) {
	if !previousClose.IsPositive() || !last.IsPositive() {
		return current, false
	}
	switch current {
	case StateClosed, StateHalted, StateCircuitBreakerL2:
		return current, false
	}
	move := c.Move(previousClose, last)
	if c.Level2.IsPositive() && move.GreaterThanOrEqual(c.Level2) {
		return StateCircuitBreakerL2, true
	}
	if current == StateCircuitBreakerL1 {
		return current, false
	}
	if c.Level1.IsPositive() && move.GreaterThanOrEqual(c.Level1) {
		return StateCircuitBreakerL1, true
	}
	return current, false
}
