package engine

import (
	"time"

	"matching-engine-go/order"
	"matching-engine-go/risk"
)

// 撤单原因
const (
	ReasonUser     = "cancelled"
	ReasonReplaced = "replaced"
	ReasonExpired  = "expired"
	ReasonNoFill   = "unfilled remainder"
	ReasonFOK      = "insufficient liquidity"
	ReasonTrigger  = "trigger rejected"
)

// CancelEvent 订单离簿（用户撤单、剩余撤销、会话过期）。
type CancelEvent struct {
	Order     order.Order
	Reason    string
	Timestamp time.Time
}

// ModifyEvent 改单：旧单已撤，新单进入撮合。
type ModifyEvent struct {
	Old       order.Order
	New       order.Order
	Timestamp time.Time
}

// StateEvent 市场状态变化。
type StateEvent struct {
	Symbol    string
	From      risk.MarketState
	To        risk.MarketState
	Reason    string
	LastPrice string
	Timestamp time.Time
}

// Listener 引擎事件订阅者。回调在分发协程中按注册顺序执行，不持有簿锁。
// OnOrderPlaced 只针对撮合后仍挂在簿上或进入待触发列表的订单，在其成交事件之后发出。
type Listener interface {
	OnOrderPlaced(o order.Order)
	OnTrade(t order.Trade)
	OnOrderCancelled(ev CancelEvent)
	OnOrderModified(ev ModifyEvent)
	OnMarketStateChanged(ev StateEvent)
}

// ListenerFuncs 只关心部分事件时使用，未设置的回调忽略。
type ListenerFuncs struct {
	Placed       func(order.Order)
	Trade        func(order.Trade)
	Cancelled    func(CancelEvent)
	Modified     func(ModifyEvent)
	StateChanged func(StateEvent)
}

func (f ListenerFuncs) OnOrderPlaced(o order.Order) {
	if f.Placed != nil {
		f.Placed(o)
	}
}

func (f ListenerFuncs) OnTrade(t order.Trade) {
	if f.Trade != nil {
		f.Trade(t)
	}
}

func (f ListenerFuncs) OnOrderCancelled(ev CancelEvent) {
	if f.Cancelled != nil {
		f.Cancelled(ev)
	}
}

func (f ListenerFuncs) OnOrderModified(ev ModifyEvent) {
	if f.Modified != nil {
		f.Modified(ev)
	}
}

func (f ListenerFuncs) OnMarketStateChanged(ev StateEvent) {
	if f.StateChanged != nil {
		f.StateChanged(ev)
	}
}

type eventKind int

const (
	eventPlaced eventKind = iota
	eventTrade
	eventCancelled
	eventModified
	eventState
)

func (k eventKind) String() string {
	switch k {
	case eventPlaced:
		return "placed"
	case eventTrade:
		return "trade"
	case eventCancelled:
		return "cancelled"
	case eventModified:
		return "modified"
	case eventState:
		return "state"
	default:
		return "unknown"
	}
}

// event 在锁内收集、锁外投递的事件。
type event struct {
	kind   eventKind
	symbol string
	order  order.Order
	trade  order.Trade
	cancel CancelEvent
	modify ModifyEvent
	state  StateEvent
}

func (ev *event) deliver(l Listener) {
	switch ev.kind {
	case eventPlaced:
		l.OnOrderPlaced(ev.order)
	case eventTrade:
		l.OnTrade(ev.trade)
	case eventCancelled:
		l.OnOrderCancelled(ev.cancel)
	case eventModified:
		l.OnOrderModified(ev.modify)
	case eventState:
		l.OnMarketStateChanged(ev.state)
	}
}

// batch 单次锁持有期间产生的事件，保持生成顺序。
type batch []event

func (b *batch) placed(o *order.Order) {
	*b = append(*b, event{kind: eventPlaced, symbol: o.Symbol, order: o.Clone()})
}

func (b *batch) trade(t order.Trade) {
	*b = append(*b, event{kind: eventTrade, symbol: t.Symbol, trade: t})
}

func (b *batch) cancelled(o *order.Order, reason string, at time.Time) {
	*b = append(*b, event{kind: eventCancelled, symbol: o.Symbol,
		cancel: CancelEvent{Order: o.Clone(), Reason: reason, Timestamp: at}})
}

func (b *batch) modified(old, next *order.Order, at time.Time) {
	*b = append(*b, event{kind: eventModified, symbol: old.Symbol,
		modify: ModifyEvent{Old: old.Clone(), New: next.Clone(), Timestamp: at}})
}

func (b *batch) stateChanged(ev StateEvent) {
	*b = append(*b, event{kind: eventState, symbol: ev.Symbol, state: ev})
}
