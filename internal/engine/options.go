package engine

import (
	"time"

	"go.uber.org/zap"

	"matching-engine-go/order"
	"matching-engine-go/risk"
)

// Observer 同步指标钩子，在簿锁外调用，实现必须是非阻塞的。
type Observer interface {
	OrderSubmitted(symbol string, typ order.Type)
	OrderRejected(symbol string, code order.Code)
	MatchLatency(symbol string, d time.Duration)
	MarketStateChanged(symbol string, state risk.MarketState)
	BookDepth(symbol string, bidLevels, askLevels int)
	QueueDepth(n int)
}

type nopObserver struct{}

func (nopObserver) OrderSubmitted(string, order.Type) {}
func (nopObserver) OrderRejected(string, order.Code) {}
func (nopObserver) MatchLatency(string, time.Duration) {}
func (nopObserver) MarketStateChanged(string, risk.MarketState) {}
func (nopObserver) BookDepth(string, int, int) {}
func (nopObserver) QueueDepth(int) {}

// Option 引擎构造选项。
type Option func(*Engine)

// WithLogger 设置日志，默认 zap.NewNop()。
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock 注入时钟。
func WithClock(c risk.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithListener 追加事件订阅者，按注册顺序投递。
func WithListener(ls ...Listener) Option {
	return func(e *Engine) {
		for _, l := range ls {
			if l != nil {
				e.listeners = append(e.listeners, l)
			}
		}
	}
}

// WithObserver 设置指标钩子。
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithRules 覆盖默认准入规则。
func WithRules(r risk.Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithQueueSize 事件队列容量。
func WithQueueSize(n int) Option {
	return func(e *Engine) { e.queueSize = n }
}

// WithInitialState 新建订单簿的初始市场状态。
func WithInitialState(s risk.MarketState) Option {
	return func(e *Engine) { e.initialState = s }
}

// WithIDGenerator 覆盖订单/成交 ID 生成器。
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) {
		if f != nil {
			e.newID = f
		}
	}
}
