package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"matching-engine-go/order"
)

// Validator 准入控制：结构 → 数量 → 价格 → 市场状态 → 价格带，首个失败即中止。
// 构造后只读，热更新时整体替换。
type Validator struct {
	rules   Rules
	ticks   TickTable
	static  MultiGuard
	state   MultiGuard
	trigger MultiGuard
	breaker *CircuitBreaker
}

// NewValidator 根据规则构造校验链。
func NewValidator(rules Rules) (*Validator, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	ticks, err := rules.Ticks.Normalize()
	if err != nil {
		return nil, err
	}
	v := &Validator{
		rules:   rules,
		ticks:   ticks,
		breaker: NewCircuitBreaker(rules.CircuitBreakerL1Pct, rules.CircuitBreakerL2Pct),
	}
	v.static = MultiGuard{Guards: []Guard{
		GuardFunc(checkStructure),
		GuardFunc(v.checkQuantity),
		GuardFunc(v.checkPrice),
	}}
	// 止损单最终按市价执行，提交时与触发时都按市价单把关。
	marketLike := stateGuard(func(o *order.Order) bool { return o.Type.ExecutesAsMarket() })
	v.state = MultiGuard{Guards: []Guard{
		GuardFunc(marketLike),
		GuardFunc(v.checkPriceBand),
	}}
	v.trigger = MultiGuard{Guards: []Guard{
		GuardFunc(marketLike),
		GuardFunc(v.checkPriceBand),
	}}
	return v, nil
}

// Rules 当前规则。
func (v *Validator) Rules() Rules { return v.rules }

// Breaker 熔断评估器。
func (v *Validator) Breaker() *CircuitBreaker { return v.breaker }

// TickFor 返回价格适用的最小变动价位。
func (v *Validator) TickFor(price decimal.Decimal) decimal.Decimal { return v.ticks.TickFor(price) }

// CheckStatic 与簿状态无关的检查，无需持锁。
func (v *Validator) CheckStatic(o *order.Order) error {
	return v.static.Check(o, MarketView{})
}

// CheckState 依赖当前市场状态与昨收的检查。
func (v *Validator) CheckState(o *order.Order, view MarketView) error {
	return v.state.Check(o, view)
}

// CheckTrigger 止损单触发时的检查。
func (v *Validator) CheckTrigger(o *order.Order, view MarketView) error {
	return v.trigger.Check(o, view)
}

// Check 完整校验链。
func (v *Validator) Check(o *order.Order, view MarketView) error {
	if err := v.CheckStatic(o); err != nil {
		return err
	}
	return v.CheckState(o, view)
}

func checkStructure(o *order.Order, _ MarketView) error {
	switch {
	case o.Symbol == "":
		return order.Validationf(order.CodeMissingField, "symbol is required")
	case o.AccountID == "":
		return order.Validationf(order.CodeMissingField, "accountId is required")
	case o.Side == "":
		return order.Validationf(order.CodeMissingField, "side is required")
	case o.Type == "":
		return order.Validationf(order.CodeMissingField, "type is required")
	case !o.Side.Valid():
		return order.Validationf(order.CodeInvalidSide, "side %q", o.Side)
	case !o.Type.Valid():
		return order.Validationf(order.CodeInvalidType, "type %q", o.Type)
	}
	if o.Type.Triggered() && !o.StopPrice.IsPositive() {
		return order.Validationf(order.CodeInvalidStopPrice, "stopPrice must be > 0 for %s", o.Type)
	}
	if o.Type == order.TypeIceberg && (o.DisplayQuantity <= 0 || o.DisplayQuantity > o.Quantity) {
		return order.Validationf(order.CodeInvalidDisplay, "displayQuantity %d not in (0, %d]", o.DisplayQuantity, o.Quantity)
	}
	return nil
}

func (v *Validator) checkQuantity(o *order.Order, _ MarketView) error {
	if o.Quantity <= 0 {
		return order.Validationf(order.CodeInvalidQuantity, "quantity %d must be > 0", o.Quantity)
	}
	if o.Quantity%v.rules.BoardLot != 0 {
		return order.Validationf(order.CodeLotSize, "quantity %d not a multiple of board lot %d", o.Quantity, v.rules.BoardLot)
	}
	if o.Quantity > v.rules.MaxOrderSize {
		return order.Validationf(order.CodeMaxOrderSize, "quantity %d > max %d", o.Quantity, v.rules.MaxOrderSize)
	}
	return nil
}

func (v *Validator) checkPrice(o *order.Order, _ MarketView) error {
	if o.Type.Triggered() && !v.ticks.Aligned(o.StopPrice) {
		return order.Validationf(order.CodeTickSize, "stopPrice %s not aligned to tick %s", o.StopPrice, v.ticks.TickFor(o.StopPrice))
	}
	if !o.Type.Priced() {
		return nil
	}
	if !o.Price.IsPositive() {
		return order.Validationf(order.CodeInvalidPrice, "price %s must be > 0", o.Price)
	}
	if !v.ticks.Aligned(o.Price) {
		return order.Validationf(order.CodeTickSize, "price %s not aligned to tick %s", o.Price, v.ticks.TickFor(o.Price))
	}
	return nil
}

func stateGuard(marketLike func(*order.Order) bool) func(*order.Order, MarketView) error {
	return func(o *order.Order, view MarketView) error {
		switch view.State {
		case StateClosed:
			return order.Statef(order.CodeMarketClosed, "%s is closed", o.Symbol)
		case StateHalted:
			return order.Statef(order.CodeMarketHalted, "%s is halted", o.Symbol)
		}
		if marketLike(o) && !view.State.AcceptsMarketOrders() {
			if view.State == StateCircuitBreakerL1 || view.State == StateCircuitBreakerL2 {
				return order.Statef(order.CodeCircuitBreaker, "%s market orders blocked in %s", o.Symbol, view.State)
			}
			return order.Statef(order.CodeMarketNotOpen, "%s market orders not accepted in %s", o.Symbol, view.State)
		}
		return nil
	}
}

func (v *Validator) checkPriceBand(o *order.Order, view MarketView) error {
	if !o.Type.Priced() || !view.PreviousClose.IsPositive() {
		return nil
	}
	low, high := v.Band(view.PreviousClose)
	if o.Price.LessThan(low) || o.Price.GreaterThan(high) {
		return order.Validationf(order.CodePriceBand, "price %s outside [%s, %s]", o.Price, low, high)
	}
	return nil
}

// Band 返回昨收对应的涨跌停价格区间。
func (v *Validator) Band(previousClose decimal.Decimal) (low, high decimal.Decimal) {
	one := decimal.NewFromInt(1)
	low = previousClose.Mul(one.Sub(v.rules.PriceLimitPct))
	high = previousClose.Mul(one.Add(v.rules.PriceLimitPct))
	return low, high
}
