package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const defaultRetention = 1440

// KlineAggregator 按 unix 分钟聚合成交，只保留最近 retention 个分钟的桶。
type KlineAggregator struct {
	symbol    string
	retention int64
	mu        sync.Mutex
	buckets   map[int64]*Kline
	latest    int64
}

func NewKlineAggregator(symbol string, retention int) *KlineAggregator {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &KlineAggregator{
		symbol:    symbol,
		retention: int64(retention),
		buckets:   make(map[int64]*Kline),
	}
}

// OnTrade 更新所在分钟的桶；进入新的分钟时返回上一根已闭合 Kline 的拷贝，否则返回 nil。
func (a *KlineAggregator) OnTrade(price decimal.Decimal, qty int64, ts time.Time) *Kline {
	a.mu.Lock()
	defer a.mu.Unlock()

	minute := MinuteOf(ts)
	if minute <= a.latest-a.retention {
		return nil // 已过保留期
	}
	if k, ok := a.buckets[minute]; ok {
		k.add(price, qty, ts)
		return nil
	}
	a.buckets[minute] = newKline(a.symbol, minute, price, qty, ts)

	var closed *Kline
	if minute > a.latest {
		if prev, ok := a.buckets[a.latest]; ok {
			c := *prev
			closed = &c
		}
		a.latest = minute
		a.evict()
	}
	return closed
}

func (a *KlineAggregator) evict() {
	cutoff := a.latest - a.retention
	for m := range a.buckets {
		if m <= cutoff {
			delete(a.buckets, m)
		}
	}
}

// Range 返回截至 now 的最近 n 分钟的分钟线，按时间升序且逐分钟连续。
// 无成交的分钟以前一根收盘价补一根零成交的平线；第一笔成交之前的分钟不出现。
// n 不超过保留期。
func (a *KlineAggregator) Range(n int, now time.Time) []Kline {
	if n <= 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if int64(n) > a.retention {
		n = int(a.retention)
	}
	end := MinuteOf(now)
	start := end - int64(n) + 1

	// 区间之前最近一根的收盘价作为补线起点
	var (
		last   decimal.Decimal
		seeded bool
		seedAt int64
	)
	for m, k := range a.buckets {
		if m < start && (!seeded || m > seedAt) {
			last, seeded, seedAt = k.Close, true, m
		}
	}

	out := make([]Kline, 0, n)
	for m := start; m <= end; m++ {
		if k, ok := a.buckets[m]; ok {
			out = append(out, *k)
			last, seeded = k.Close, true
			continue
		}
		if seeded {
			out = append(out, flatKline(a.symbol, m, last))
		}
	}
	return out
}

// Len 当前保留的桶数量。
func (a *KlineAggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buckets)
}
