package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 引擎内部的订单实体。挂单期间由所属价位队列独占，只有撮合引擎在持有
// 对应品种锁时修改它。
type Order struct {
	ID              string
	ClientOrderID   string
	AccountID       string
	Symbol          string
	Side            Side
	Type            Type
	Price           decimal.Decimal // MARKET / STOP 为零值
	StopPrice       decimal.Decimal // STOP / STOP_LIMIT
	DisplayQuantity int64           // ICEBERG
	Quantity        int64
	FilledQuantity  int64
	Status          Status
	RejectReason    string
	Timestamp       time.Time
	SequenceNumber  uint64
	UpdatedAt       time.Time
}

// RemainingQuantity 剩余未成交数量。
func (o *Order) RemainingQuantity() int64 {
	return o.Quantity - o.FilledQuantity
}

// IsTerminal 是否处于终态。
func (o *Order) IsTerminal() bool {
	return defaultMachine.IsFinalState(o.Status)
}

// IsActive 是否仍可成交。
func (o *Order) IsActive() bool {
	return defaultMachine.IsActiveState(o.Status)
}

// Fill 累加成交数量，状态由成交量推导。
func (o *Order) Fill(qty int64, at time.Time) error {
	if qty <= 0 {
		return Validationf(CodeInvalidQuantity, "fill quantity %d", qty)
	}
	if qty > o.RemainingQuantity() {
		return Statef(CodeOverfill, "order %s fill %d > remaining %d", o.ID, qty, o.RemainingQuantity())
	}
	next := StatusPartiallyFilled
	if o.FilledQuantity+qty == o.Quantity {
		next = StatusFilled
	}
	if err := defaultMachine.ValidateTransition(o.Status, next); err != nil {
		return err
	}
	o.FilledQuantity += qty
	o.Status = next
	o.UpdatedAt = at
	return nil
}

// Cancel 撤销剩余数量，只有 NEW / PARTIALLY_FILLED 可撤。
func (o *Order) Cancel(reason string, at time.Time) error {
	if !defaultMachine.CanCancel(o.Status) {
		return Statef(CodeTerminalOrder, "order %s is %s", o.ID, o.Status)
	}
	return o.transition(StatusCancelled, reason, at)
}

// Expire 交易时段结束时过期。
func (o *Order) Expire(at time.Time) error {
	return o.transition(StatusExpired, "expired", at)
}

// Reject 准入失败，只允许从 NEW 进入。
func (o *Order) Reject(reason string, at time.Time) error {
	return o.transition(StatusRejected, reason, at)
}

func (o *Order) transition(to Status, reason string, at time.Time) error {
	if err := defaultMachine.ValidateTransition(o.Status, to); err != nil {
		return err
	}
	o.Status = to
	o.RejectReason = reason
	o.UpdatedAt = at
	return nil
}

// Before 价格相同时的时间优先：先比较时间戳，再比较序号。
func (o *Order) Before(other *Order) bool {
	if !o.Timestamp.Equal(other.Timestamp) {
		return o.Timestamp.Before(other.Timestamp)
	}
	return o.SequenceNumber < other.SequenceNumber
}

// VisibleQuantity 行情深度中可见的数量；冰山单只露出显示数量。
func (o *Order) VisibleQuantity() int64 {
	rem := o.RemainingQuantity()
	if o.Type == TypeIceberg && o.DisplayQuantity > 0 && o.DisplayQuantity < rem {
		return o.DisplayQuantity
	}
	return rem
}

// Clone 返回值拷贝，供事件与响应使用。
func (o *Order) Clone() Order {
	return *o
}

// Replace 构造改单后的替换订单：新身份、沿用已成交数量。
func (o *Order) Replace(id string, price decimal.Decimal, quantity int64, ts time.Time, seq uint64) *Order {
	next := &Order{
		ID:              id,
		ClientOrderID:   o.ClientOrderID,
		AccountID:       o.AccountID,
		Symbol:          o.Symbol,
		Side:            o.Side,
		Type:            o.Type,
		Price:           price,
		StopPrice:       o.StopPrice,
		DisplayQuantity: o.DisplayQuantity,
		Quantity:        quantity,
		FilledQuantity:  o.FilledQuantity,
		Status:          StatusNew,
		Timestamp:       ts,
		SequenceNumber:  seq,
		UpdatedAt:       ts,
	}
	switch {
	case next.FilledQuantity == 0:
	case next.FilledQuantity == next.Quantity:
		next.Status = StatusFilled
	default:
		next.Status = StatusPartiallyFilled
	}
	if next.DisplayQuantity > quantity {
		next.DisplayQuantity = quantity
	}
	return next
}
