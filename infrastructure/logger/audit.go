package logger

import (
	"go.uber.org/zap"

	"matching-engine-go/internal/engine"
	"matching-engine-go/order"
	"matching-engine-go/risk"
)

// Audit 把引擎事件写成审计日志。挂单与成交为 info，熔断、停牌为 warn。
type Audit struct {
	log *Logger
}

var _ engine.Listener = (*Audit)(nil)

func NewAudit(l *Logger) *Audit {
	return &Audit{log: l}
}

func (a *Audit) OnOrderPlaced(o order.Order) {
	a.log.LogOrder("placed", o)
}

func (a *Audit) OnTrade(t order.Trade) {
	a.log.LogTrade(t)
}

func (a *Audit) OnOrderCancelled(ev engine.CancelEvent) {
	a.log.LogOrder("cancelled", ev.Order, zap.String("reason", ev.Reason))
}

func (a *Audit) OnOrderModified(ev engine.ModifyEvent) {
	a.log.LogOrder("modified", ev.New, zap.String("replaces", ev.Old.ID))
}

func (a *Audit) OnMarketStateChanged(ev engine.StateEvent) {
	fields := []zap.Field{
		zap.String("from", string(ev.From)),
		zap.String("to", string(ev.To)),
		zap.String("reason", ev.Reason),
		zap.String("last_price", ev.LastPrice),
	}
	switch ev.To {
	case risk.StateCircuitBreakerL1, risk.StateCircuitBreakerL2, risk.StateHalted:
		a.log.LogRisk("market_state", ev.Symbol, fields...)
	default:
		a.log.Info("market_state", append(fields, zap.String("symbol", ev.Symbol))...)
	}
}
