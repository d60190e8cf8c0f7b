package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Rules 准入参数。
type Rules struct {
	BoardLot            int64           `yaml:"boardLot"`
	MaxOrderSize        int64           `yaml:"maxOrderSize"`
	PriceLimitPct       decimal.Decimal `yaml:"priceLimitPct"`
	CircuitBreakerL1Pct decimal.Decimal `yaml:"circuitBreakerL1Pct"`
	CircuitBreakerL2Pct decimal.Decimal `yaml:"circuitBreakerL2Pct"`
	Ticks               TickTable       `yaml:"ticks"`
}

// DefaultRules 返回默认准入参数：整手 100，单笔上限 1,000,000，涨跌幅 10%，熔断 5% / 7%。
func DefaultRules() Rules {
	return Rules{
		BoardLot:            100,
		MaxOrderSize:        1_000_000,
		PriceLimitPct:       decimal.RequireFromString("0.10"),
		CircuitBreakerL1Pct: decimal.RequireFromString("0.05"),
		CircuitBreakerL2Pct: decimal.RequireFromString("0.07"),
		Ticks:               DefaultTickTable(),
	}
}

// Validate 检查参数自洽。
func (r Rules) Validate() error {
	if r.BoardLot <= 0 {
		return errors.New("boardLot must be > 0")
	}
	if r.MaxOrderSize < r.BoardLot {
		return fmt.Errorf("maxOrderSize %d must be >= boardLot %d", r.MaxOrderSize, r.BoardLot)
	}
	if !r.PriceLimitPct.IsPositive() {
		return errors.New("priceLimitPct must be > 0")
	}
	if !r.CircuitBreakerL1Pct.IsPositive() || !r.CircuitBreakerL2Pct.IsPositive() {
		return errors.New("circuit breaker thresholds must be > 0")
	}
	if r.CircuitBreakerL2Pct.LessThan(r.CircuitBreakerL1Pct) {
		return fmt.Errorf("circuitBreakerL2Pct %s must be >= circuitBreakerL1Pct %s",
			r.CircuitBreakerL2Pct, r.CircuitBreakerL1Pct)
	}
	if _, err := r.Ticks.Normalize(); err != nil {
		return err
	}
	return nil
}
