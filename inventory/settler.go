package inventory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matching-engine-go/internal/engine"
	"matching-engine-go/order"
)

// ErrNoReferencePrice 市价买单缺少参考价，无法计算冻结金额。
var ErrNoReferencePrice = errors.New("no reference price for unpriced buy")

// reservation 某笔订单当前冻结的资金。
type reservation struct {
	account string
	asset   string
	side    order.Side
	unit    decimal.Decimal // 买单每单位冻结的报价资产
	frozen  decimal.Decimal
}

// Settler 下单前冻结资金，成交后交割，撤单或改单时释放。买单冻结报价资产，卖单冻结以品种代码命名的基础资产。
type Settler struct {
	ledger  *Ledger
	tracker *Tracker
	quote   string
	logger  *zap.Logger

	mu       sync.Mutex
	reserved map[string]*reservation
}

var _ engine.Listener = (*Settler)(nil)

func NewSettler(ledger *Ledger, tracker *Tracker, quote string, logger *zap.Logger) *Settler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Settler{
		ledger:   ledger,
		tracker:  tracker,
		quote:    quote,
		logger:   logger,
		reserved: make(map[string]*reservation),
	}
}

// Quote 报价资产。
func (s *Settler) Quote() string { return s.quote }

// Reserve 为订单冻结资金。订单 ID 必须已分配。无限价的买单按 refPrice 估算。
func (s *Settler) Reserve(o *order.Order, refPrice decimal.Decimal) error {
	if o.ID == "" {
		return fmt.Errorf("reserve: order id not assigned")
	}
	res := &reservation{account: o.AccountID, side: o.Side}
	qty := decimal.NewFromInt(o.RemainingQuantity())
	if o.Side == order.SideBuy {
		unit := o.Price
		if !o.Type.Priced() {
			unit = refPrice
		}
		if !unit.IsPositive() {
			return fmt.Errorf("reserve %s: %w", o.ID, ErrNoReferencePrice)
		}
		res.asset, res.unit, res.frozen = s.quote, unit, unit.Mul(qty)
	} else {
		res.asset, res.frozen = o.Symbol, qty
	}
	if err := s.ledger.Freeze(res.account, res.asset, res.frozen); err != nil {
		return fmt.Errorf("reserve %s: %w", o.ID, err)
	}
	s.mu.Lock()
	s.reserved[o.ID] = res
	s.mu.Unlock()
	return nil
}

// Release 释放订单剩余冻结，用于提交失败或撤单。
func (s *Settler) Release(orderID string) {
	s.mu.Lock()
	res, ok := s.reserved[orderID]
	delete(s.reserved, orderID)
	s.mu.Unlock()
	if !ok || res.frozen.IsZero() {
		return
	}
	if err := s.ledger.Unfreeze(res.account, res.asset, res.frozen); err != nil {
		s.logger.Error("release reservation", zap.String("order_id", orderID), zap.Error(err))
	}
}

// Frozen 订单当前冻结额，未登记时返回 false。
func (s *Settler) Frozen(orderID string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reserved[orderID]
	if !ok {
		return decimal.Zero, false
	}
	return res.frozen, true
}

func (s *Settler) OnOrderPlaced(order.Order) {}

func (s *Settler) OnMarketStateChanged(engine.StateEvent) {}

// OnTrade 交割：买方扣报价资产、收基础资产，卖方相反。成交价优于冻结价的部分立即解冻。
func (s *Settler) OnTrade(t order.Trade) {
	qty := decimal.NewFromInt(t.Quantity)
	notional := t.Price.Mul(qty)

	s.mu.Lock()
	buy := s.take(t.BuyOrderID, func(r *reservation) decimal.Decimal { return r.unit.Mul(qty) })
	sell := s.take(t.SellOrderID, func(*reservation) decimal.Decimal { return qty })
	s.mu.Unlock()

	if buy != nil {
		s.settleBuy(t, buy.portion, notional, qty)
	}
	if sell != nil {
		s.must(s.ledger.Deduct(t.SellAccountID, t.Symbol, sell.portion), t, "deduct base")
		s.must(s.ledger.Add(t.SellAccountID, s.quote, notional), t, "credit quote")
	}
	if s.tracker != nil {
		s.tracker.Apply(t)
	}
}

type taken struct {
	portion decimal.Decimal
}

// take 从订单冻结中划出本笔成交对应的部分，冻结耗尽后删除登记。调用方持有 s.mu。
func (s *Settler) take(orderID string, portion func(*reservation) decimal.Decimal) *taken {
	res, ok := s.reserved[orderID]
	if !ok {
		return nil
	}
	p := decimal.Min(portion(res), res.frozen)
	res.frozen = res.frozen.Sub(p)
	if res.frozen.IsZero() {
		delete(s.reserved, orderID)
	}
	return &taken{portion: p}
}

func (s *Settler) settleBuy(t order.Trade, portion, notional, qty decimal.Decimal) {
	switch {
	case notional.LessThanOrEqual(portion):
		s.must(s.ledger.Deduct(t.BuyAccountID, s.quote, notional), t, "deduct quote")
		if improvement := portion.Sub(notional); improvement.IsPositive() {
			s.must(s.ledger.Unfreeze(t.BuyAccountID, s.quote, improvement), t, "release improvement")
		}
	default:
		// 市价单参考价偏低，差额从可用余额补扣
		s.must(s.ledger.Deduct(t.BuyAccountID, s.quote, portion), t, "deduct quote")
		short := notional.Sub(portion)
		if err := s.ledger.Freeze(t.BuyAccountID, s.quote, short); err == nil {
			s.must(s.ledger.Deduct(t.BuyAccountID, s.quote, short), t, "deduct shortfall")
		} else {
			s.logger.Error("buy shortfall uncovered",
				zap.String("trade_id", t.ID),
				zap.String("account", t.BuyAccountID),
				zap.String("shortfall", short.String()),
				zap.Error(err))
		}
	}
	s.must(s.ledger.Add(t.BuyAccountID, t.Symbol, qty), t, "credit base")
}

func (s *Settler) must(err error, t order.Trade, step string) {
	if err != nil {
		s.logger.Error("settlement step failed",
			zap.String("step", step),
			zap.String("trade_id", t.ID),
			zap.String("symbol", t.Symbol),
			zap.Error(err))
	}
}

// OnOrderCancelled 订单离簿，释放剩余冻结。
func (s *Settler) OnOrderCancelled(ev engine.CancelEvent) {
	s.Release(ev.Order.ID)
}

// OnOrderModified 冻结随改单迁移到新订单，并按新价格数量补冻或解冻差额。
func (s *Settler) OnOrderModified(ev engine.ModifyEvent) {
	s.mu.Lock()
	res, ok := s.reserved[ev.Old.ID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.reserved, ev.Old.ID)
	remaining := decimal.NewFromInt(ev.New.RemainingQuantity())
	need := remaining
	if res.side == order.SideBuy {
		if ev.New.Type.Priced() {
			res.unit = ev.New.Price
		}
		need = res.unit.Mul(remaining)
	}
	delta := need.Sub(res.frozen)
	var err error
	switch {
	case delta.IsPositive():
		if err = s.ledger.Freeze(res.account, res.asset, delta); err == nil {
			res.frozen = need
		}
	case delta.IsNegative():
		if err = s.ledger.Unfreeze(res.account, res.asset, delta.Neg()); err == nil {
			res.frozen = need
		}
	}
	s.reserved[ev.New.ID] = res
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("modify reservation not adjusted",
			zap.String("old_id", ev.Old.ID),
			zap.String("new_id", ev.New.ID),
			zap.String("delta", delta.String()),
			zap.Error(err))
	}
}
