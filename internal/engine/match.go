package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matching-engine-go/order"
	"matching-engine-go/risk"
)

// execute 按订单类型分派，随后处理被新成交价激活的止损单。调用方持有写锁。
// armed 为 false 表示止损单已激活过（改单场景），不再等待触发。
// announce 为 true 时，仍在簿上（挂单或待触发）的订单发出 placed 事件。
func (e *Engine) execute(b *OrderBook, v *risk.Validator, o *order.Order, armed, announce bool, evs *batch) *order.MatchResult {
	res := &order.MatchResult{}
	switch {
	case o.RemainingQuantity() == 0:
	case armed && o.Type.Triggered() && !stopHit(o, b.lastPrice):
		b.parkStop(o)
	default:
		e.match(b, o, res, evs)
	}
	if announce && b.holds(o.ID) {
		evs.placed(o)
	}
	e.triggerStops(b, v, evs)
	res.Order = o.Clone()
	return res
}

// match 撮合已准入的订单。
func (e *Engine) match(b *OrderBook, o *order.Order, res *order.MatchResult, evs *batch) {
	var err error
	switch {
	case o.Type.ExecutesAsMarket():
		err = e.sweep(b, o, nil, res, evs)
		e.cancelRemainder(o, ReasonNoFill, evs)
	case o.Type == order.TypeFOK:
		if b.liquidity(o.Side, &o.Price, o.RemainingQuantity()) < o.RemainingQuantity() {
			e.cancelRemainder(o, ReasonFOK, evs)
			return
		}
		err = e.sweep(b, o, &o.Price, res, evs)
		e.cancelRemainder(o, ReasonFOK, evs)
	case o.Type == order.TypeIOC:
		err = e.sweep(b, o, &o.Price, res, evs)
		e.cancelRemainder(o, ReasonNoFill, evs)
	default:
		err = e.sweep(b, o, &o.Price, res, evs)
		if err == nil && o.RemainingQuantity() > 0 {
			b.rest(o)
			return
		}
		e.cancelRemainder(o, ReasonNoFill, evs)
	}
	if err != nil {
		e.logger.Error("match aborted",
			zap.String("symbol", b.symbol),
			zap.String("order_id", o.ID),
			zap.Error(err))
	}
}

// sweep 由优到劣吃对手方价位；limit 为 nil 表示市价。价位内严格 FIFO。
func (e *Engine) sweep(b *OrderBook, o *order.Order, limit *decimal.Decimal, res *order.MatchResult, evs *batch) error {
	opp := b.sideOf(o.Side.Opposite())
	for o.RemainingQuantity() > 0 {
		q, ok := opp.best()
		if !ok {
			return nil
		}
		if limit != nil && !marketable(o.Side, *limit, q.price) {
			return nil
		}
		for o.RemainingQuantity() > 0 && q.Len() > 0 {
			el := q.Peek()
			maker := el.Value.(*order.Order)
			price, err := matchPrice(o, maker)
			if err != nil {
				return err
			}
			qty := min(o.RemainingQuantity(), maker.RemainingQuantity())
			at := e.clock.Now()
			if err := q.Fill(el, qty, at); err != nil {
				return err
			}
			if err := o.Fill(qty, at); err != nil {
				return err
			}
			if maker.RemainingQuantity() == 0 {
				q.Remove(el)
				delete(b.index, maker.ID)
			}
			t := order.NewTrade(e.newID(), e.tradeSeq.Add(1), o, maker, price, qty, at)
			res.Add(t)
			evs.trade(t)
			e.afterTrade(b, t, evs)
		}
		if q.Len() == 0 {
			opp.removeLevel(q)
		}
	}
	return nil
}

// matchPrice 市价单取对手价；双方均有价格时取时间优先一方的价格。
func matchPrice(taker, maker *order.Order) (decimal.Decimal, error) {
	takerMarket := taker.Type.ExecutesAsMarket()
	makerMarket := maker.Type.ExecutesAsMarket()
	switch {
	case takerMarket && makerMarket:
		return decimal.Zero, order.Statef(order.CodeMarketVsMarket, "%s vs %s", taker.ID, maker.ID)
	case takerMarket:
		return maker.Price, nil
	case makerMarket:
		return taker.Price, nil
	case taker.Before(maker):
		return taker.Price, nil
	default:
		return maker.Price, nil
	}
}

// afterTrade 更新最新价与成交统计并评估熔断。
func (e *Engine) afterTrade(b *OrderBook, t order.Trade, evs *batch) {
	b.lastPrice = t.Price
	b.tradeCount++
	b.volume += t.Quantity
	b.updatedAt = t.ExecutedAt

	breaker := e.validator.Load().Breaker()
	next, changed := breaker.Evaluate(b.previousClose, t.Price, b.state)
	if !changed {
		return
	}
	e.logger.Warn("circuit breaker tripped",
		zap.String("symbol", b.symbol),
		zap.String("level", string(next)),
		zap.String("last", t.Price.String()),
		zap.String("previous_close", b.previousClose.String()),
		zap.String("move", breaker.Move(b.previousClose, t.Price).String()))
	e.transition(b, next, "circuit breaker", t.ExecutedAt, evs)
}

// cancelRemainder 撤销不能挂单的剩余数量。
func (e *Engine) cancelRemainder(o *order.Order, reason string, evs *batch) {
	if o.RemainingQuantity() == 0 || o.IsTerminal() {
		return
	}
	now := e.clock.Now()
	if err := o.Cancel(reason, now); err != nil {
		e.logger.Error("cancel remainder failed", zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	evs.cancelled(o, reason, now)
}
