package risk

import (
	"github.com/shopspring/decimal"

	"matching-engine-go/order"
)

// MarketView 准入检查所需的簿状态。
type MarketView struct {
	State         MarketState
	PreviousClose decimal.Decimal
}

// Guard 是通用接口，结构、整手、步长、状态、价格带都实现它。
type Guard interface {
	Check(o *order.Order, view MarketView) error
}

// GuardFunc 函数适配器。
type GuardFunc func(o *order.Order, view MarketView) error

func (f GuardFunc) Check(o *order.Order, view MarketView) error {
	return f(o, view)
}

// MultiGuard 顺序执行多个 Guard，只要有一个返回错误则中止。
type MultiGuard struct {
	Guards []Guard
}

func (m MultiGuard) Check(o *order.Order, view MarketView) error {
	for _, g := range m.Guards {
		if g == nil {
			continue
		}
		if err := g.Check(o, view); err != nil {
			return err
		}
	}
	return nil
}
