package market

import (
	"sync"

	"matching-engine-go/order"
)

// Publisher 一个轻量事件分发器。订阅者跟不上时丢弃，不阻塞成交路径。
type Publisher struct {
	mu        sync.RWMutex
	klineSubs []chan Kline
	tradeSubs []chan order.Trade
	buffer    int
}

func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Publisher{buffer: buffer}
}

func (p *Publisher) SubscribeKline() <-chan Kline {
	ch := make(chan Kline, p.buffer)
	p.mu.Lock()
	p.klineSubs = append(p.klineSubs, ch)
	p.mu.Unlock()
	return ch
}

func (p *Publisher) SubscribeTrade() <-chan order.Trade {
	ch := make(chan order.Trade, p.buffer)
	p.mu.Lock()
	p.tradeSubs = append(p.tradeSubs, ch)
	p.mu.Unlock()
	return ch
}

func (p *Publisher) PublishKline(k Kline) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.klineSubs {
		select {
		case ch <- k:
		default:
		}
	}
}

func (p *Publisher) PublishTrade(t order.Trade) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.tradeSubs {
		select {
		case ch <- t:
		default:
		}
	}
}
