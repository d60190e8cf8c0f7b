package engine

import (
	"container/list"
	"time"

	"github.com/shopspring/decimal"

	"matching-engine-go/order"
)

// OrderQueue 单一价位上的挂单 FIFO，附带剩余数量合计。
// 成交只在原位修改数量，不改变排队位置。
type OrderQueue struct {
	price  decimal.Decimal
	orders *list.List
	volume int64
}

func newOrderQueue(price decimal.Decimal) *OrderQueue {
	return &OrderQueue{price: price, orders: list.New()}
}

// Price 价位。
func (q *OrderQueue) Price() decimal.Decimal { return q.price }

// Len 挂单笔数。
func (q *OrderQueue) Len() int { return q.orders.Len() }

// Volume 剩余数量合计。
func (q *OrderQueue) Volume() int64 { return q.volume }

// Push 追加到队尾。
func (q *OrderQueue) Push(o *order.Order) *list.Element {
	q.volume += o.RemainingQuantity()
	return q.orders.PushBack(o)
}

// Peek 返回队首元素。
func (q *OrderQueue) Peek() *list.Element {
	return q.orders.Front()
}

// Pop 弹出队首订单。
func (q *OrderQueue) Pop() *order.Order {
	e := q.orders.Front()
	if e == nil {
		return nil
	}
	return q.Remove(e)
}

// Remove 移除指定元素。
func (q *OrderQueue) Remove(e *list.Element) *order.Order {
	o := q.orders.Remove(e).(*order.Order)
	q.volume -= o.RemainingQuantity()
	return o
}

// Fill 原位成交，保持排队位置并扣减合计。
func (q *OrderQueue) Fill(e *list.Element, qty int64, at time.Time) error {
	o := e.Value.(*order.Order)
	if err := o.Fill(qty, at); err != nil {
		return err
	}
	q.volume -= qty
	return nil
}

// VisibleVolume 深度展示数量（冰山单只计显示部分）。
func (q *OrderQueue) VisibleVolume() int64 {
	var v int64
	for e := q.orders.Front(); e != nil; e = e.Next() {
		v += e.Value.(*order.Order).VisibleQuantity()
	}
	return v
}

// Orders 返回队列中订单的拷贝，按排队顺序。
func (q *OrderQueue) Orders() []order.Order {
	out := make([]order.Order, 0, q.orders.Len())
	for e := q.orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*order.Order).Clone())
	}
	return out
}
