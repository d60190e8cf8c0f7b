package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matching-engine-go/order"
	"matching-engine-go/risk"
)

// stopHit 买入止损在最新价 >= 触发价时激活，卖出止损在最新价 <= 触发价时激活。
func stopHit(o *order.Order, last decimal.Decimal) bool {
	if !last.IsPositive() {
		return false
	}
	if o.Side == order.SideBuy {
		return last.GreaterThanOrEqual(o.StopPrice)
	}
	return last.LessThanOrEqual(o.StopPrice)
}

// triggerStops 反复扫描待触发列表，每次激活序号最早的一笔，直到没有可激活的止损单。
// 激活单的成交可能再次改变最新价，所以每次激活后重新扫描。
func (e *Engine) triggerStops(b *OrderBook, v *risk.Validator, evs *batch) {
	for {
		idx := -1
		for i, s := range b.stops {
			if stopHit(s, b.lastPrice) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		s := b.stops[idx]
		b.stops = append(b.stops[:idx], b.stops[idx+1:]...)
		e.fire(b, v, s, evs)
	}
}

// fire 以市价或限价语义执行已激活的止损单，保留原有时间优先级。
func (e *Engine) fire(b *OrderBook, v *risk.Validator, s *order.Order, evs *batch) {
	if err := v.CheckTrigger(s, b.view()); err != nil {
		e.logger.Info("stop trigger rejected",
			zap.String("symbol", b.symbol),
			zap.String("order_id", s.ID),
			zap.String("state", string(b.state)),
			zap.Error(err))
		e.cancelRemainder(s, ReasonTrigger, evs)
		return
	}
	e.logger.Debug("stop triggered",
		zap.String("symbol", b.symbol),
		zap.String("order_id", s.ID),
		zap.String("stop_price", s.StopPrice.String()),
		zap.String("last", b.lastPrice.String()))
	e.match(b, s, &order.MatchResult{}, evs)
}
