package market

import (
	"sync"

	"matching-engine-go/order"
)

const defaultRingCapacity = 1000

// TradeRing 最近成交的环形缓冲，满后覆盖最旧的一笔。
type TradeRing struct {
	mu    sync.RWMutex
	buf   []order.Trade
	next  int
	count int
}

func NewTradeRing(capacity int) *TradeRing {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	return &TradeRing{buf: make([]order.Trade, capacity)}
}

// Push 写入一笔成交。
func (r *TradeRing) Push(t order.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = t
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Recent 返回最近 n 笔，最新在前。
func (r *TradeRing) Recent(n int) []order.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]order.Trade, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

// Len 当前保存的成交笔数。
func (r *TradeRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap 容量。
func (r *TradeRing) Cap() int { return len(r.buf) }
