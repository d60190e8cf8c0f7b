package engine

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"matching-engine-go/order"
	"matching-engine-go/risk"
)

const btreeDegree = 32

// bookSide 一侧的价位有序表。买方按价格降序、卖方按价格升序，Min 即最优价。
type bookSide struct {
	side   order.Side
	levels *btree.BTreeG[*OrderQueue]
}

func newBookSide(side order.Side) *bookSide {
	less := func(a, b *OrderQueue) bool { return a.price.LessThan(b.price) }
	if side == order.SideBuy {
		less = func(a, b *OrderQueue) bool { return a.price.GreaterThan(b.price) }
	}
	return &bookSide{side: side, levels: btree.NewG[*OrderQueue](btreeDegree, less)}
}

func (s *bookSide) best() (*OrderQueue, bool) {
	return s.levels.Min()
}

func (s *bookSide) level(price decimal.Decimal) (*OrderQueue, bool) {
	return s.levels.Get(&OrderQueue{price: price})
}

func (s *bookSide) levelOrCreate(price decimal.Decimal) *OrderQueue {
	if q, ok := s.level(price); ok {
		return q
	}
	q := newOrderQueue(price)
	s.levels.ReplaceOrInsert(q)
	return q
}

func (s *bookSide) removeLevel(q *OrderQueue) {
	s.levels.Delete(q)
}

// walk 由优到劣遍历价位，fn 返回 false 停止。
func (s *bookSide) walk(fn func(q *OrderQueue) bool) {
	s.levels.Ascend(func(q *OrderQueue) bool { return fn(q) })
}

func (s *bookSide) depth(n int) []PriceLevel {
	out := make([]PriceLevel, 0, n)
	s.walk(func(q *OrderQueue) bool {
		if n > 0 && len(out) >= n {
			return false
		}
		out = append(out, PriceLevel{Price: q.price, Quantity: q.VisibleVolume(), Orders: q.Len()})
		return true
	})
	return out
}

// marketable 主动方限价是否能与该价位成交。
func marketable(side order.Side, limit, level decimal.Decimal) bool {
	if side == order.SideBuy {
		return limit.GreaterThanOrEqual(level)
	}
	return limit.LessThanOrEqual(level)
}

type entry struct {
	side  *bookSide
	queue *OrderQueue
	elem  *list.Element
}

// OrderBook 单一品种的订单簿。mu 保护全部字段；pubMu 用于在释放 mu 之前
// 接力事件投递，保证同一品种的事件顺序。
type OrderBook struct {
	symbol string

	mu    sync.RWMutex
	pubMu sync.Mutex

	bids  *bookSide
	asks  *bookSide
	index map[string]*entry
	stops []*order.Order // 按序号排列的待触发止损单

	lastPrice     decimal.Decimal
	previousClose decimal.Decimal
	state         risk.MarketState
	tradeCount    int64
	volume        int64
	updatedAt     time.Time
}

func newOrderBook(symbol string, state risk.MarketState) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newBookSide(order.SideBuy),
		asks:   newBookSide(order.SideSell),
		index:  make(map[string]*entry),
		state:  state,
	}
}

// Symbol 品种代码。
func (b *OrderBook) Symbol() string { return b.symbol }

// State 当前市场状态。
func (b *OrderBook) State() risk.MarketState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// LastPrice 最新成交价，无成交为零。
func (b *OrderBook) LastPrice() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastPrice
}

// PreviousClose 昨收价，未设置为零。
func (b *OrderBook) PreviousClose() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.previousClose
}

// Order 查询在簿或待触发订单的拷贝。
func (b *OrderBook) Order(id string) (order.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if o, ok := b.find(id); ok {
		return o.Clone(), true
	}
	return order.Order{}, false
}

func (b *OrderBook) view() risk.MarketView {
	return risk.MarketView{State: b.state, PreviousClose: b.previousClose}
}

func (b *OrderBook) sideOf(s order.Side) *bookSide {
	if s == order.SideBuy {
		return b.bids
	}
	return b.asks
}

// rest 按限价挂到本方队尾。
func (b *OrderBook) rest(o *order.Order) {
	side := b.sideOf(o.Side)
	q := side.levelOrCreate(o.Price)
	b.index[o.ID] = &entry{side: side, queue: q, elem: q.Push(o)}
}

// unlink 从价位队列摘除，空价位同时删除。
func (b *OrderBook) unlink(id string) (*order.Order, bool) {
	e, ok := b.index[id]
	if !ok {
		return nil, false
	}
	delete(b.index, id)
	o := e.queue.Remove(e.elem)
	if e.queue.Len() == 0 {
		e.side.removeLevel(e.queue)
	}
	return o, true
}

func (b *OrderBook) parkStop(o *order.Order) {
	b.stops = append(b.stops, o)
}

func (b *OrderBook) unlinkStop(id string) (*order.Order, bool) {
	for i, s := range b.stops {
		if s.ID == id {
			b.stops = append(b.stops[:i], b.stops[i+1:]...)
			return s, true
		}
	}
	return nil, false
}

// find 查找在簿或待触发订单，不摘除。
func (b *OrderBook) find(id string) (*order.Order, bool) {
	if e, ok := b.index[id]; ok {
		return e.elem.Value.(*order.Order), true
	}
	for _, s := range b.stops {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// holds 订单是否仍在簿上或在待触发列表中。
func (b *OrderBook) holds(id string) bool {
	_, ok := b.find(id)
	return ok
}

// detach 摘除挂单或待触发止损单。
func (b *OrderBook) detach(id string) (*order.Order, bool) {
	if o, ok := b.unlink(id); ok {
		return o, true
	}
	return b.unlinkStop(id)
}

// liquidity 主动方在限价内可成交的对手方数量，达到 need 即停止累加。
func (b *OrderBook) liquidity(side order.Side, limit *decimal.Decimal, need int64) int64 {
	var total int64
	b.sideOf(side.Opposite()).walk(func(q *OrderQueue) bool {
		if limit != nil && !marketable(side, *limit, q.price) {
			return false
		}
		total += q.Volume()
		return total < need
	})
	return total
}

// PriceLevel 深度中的一档。
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity int64
	Orders   int
}

// BookSnapshot 订单簿快照。
type BookSnapshot struct {
	Symbol        string
	Bids          []PriceLevel
	Asks          []PriceLevel
	BestBid       decimal.NullDecimal
	BestAsk       decimal.NullDecimal
	Spread        decimal.NullDecimal
	LastPrice     decimal.Decimal
	PreviousClose decimal.Decimal
	State         risk.MarketState
	PendingStops  int
	TradeCount    int64
	Volume        int64
	Timestamp     time.Time
}

// Snapshot 在读锁下生成指定档数的快照；depth <= 0 表示全部档位。
func (b *OrderBook) Snapshot(depth int) BookSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := BookSnapshot{
		Symbol:        b.symbol,
		Bids:          b.bids.depth(depth),
		Asks:          b.asks.depth(depth),
		LastPrice:     b.lastPrice,
		PreviousClose: b.previousClose,
		State:         b.state,
		PendingStops:  len(b.stops),
		TradeCount:    b.tradeCount,
		Volume:        b.volume,
		Timestamp:     b.updatedAt,
	}
	if q, ok := b.bids.best(); ok {
		snap.BestBid = decimal.NewNullDecimal(q.price)
	}
	if q, ok := b.asks.best(); ok {
		snap.BestAsk = decimal.NewNullDecimal(q.price)
	}
	if snap.BestBid.Valid && snap.BestAsk.Valid {
		snap.Spread = decimal.NewNullDecimal(snap.BestAsk.Decimal.Sub(snap.BestBid.Decimal))
	}
	return snap
}

// checkInvariants 供测试使用：每个价位合计等于成员剩余数量之和，且索引一致。
func (b *OrderBook) checkInvariants() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var err error
	count := 0
	for _, side := range []*bookSide{b.bids, b.asks} {
		side.walk(func(q *OrderQueue) bool {
			var sum int64
			for e := q.orders.Front(); e != nil; e = e.Next() {
				o := e.Value.(*order.Order)
				sum += o.RemainingQuantity()
				count++
				if o.IsTerminal() {
					err = errTerminalResting(o)
					return false
				}
			}
			if sum != q.volume || q.Len() == 0 {
				err = errLevelMismatch(q, sum)
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
	}
	if count != len(b.index) {
		return errIndexMismatch(count, len(b.index))
	}
	return nil
}
