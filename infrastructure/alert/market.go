package alert

import (
	"go.uber.org/zap"

	"matching-engine-go/internal/engine"
	"matching-engine-go/risk"
)

// MarketAlerts 把熔断、停牌、恢复交易等状态变化转成告警。
type MarketAlerts struct {
	mgr    *Manager
	logger *zap.Logger
}

func NewMarketAlerts(mgr *Manager, logger *zap.Logger) *MarketAlerts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketAlerts{mgr: mgr, logger: logger}
}

// Listener 只订阅状态变化。
func (a *MarketAlerts) Listener() engine.Listener {
	return engine.ListenerFuncs{StateChanged: a.OnMarketStateChanged}
}

func (a *MarketAlerts) OnMarketStateChanged(ev engine.StateEvent) {
	fields := map[string]interface{}{
		"from":       string(ev.From),
		"to":         string(ev.To),
		"reason":     ev.Reason,
		"last_price": ev.LastPrice,
	}
	var err error
	switch {
	case ev.To == risk.StateCircuitBreakerL2:
		err = a.mgr.SendCritical(ev.Symbol, "circuit breaker level 2", fields)
	case ev.To == risk.StateCircuitBreakerL1:
		err = a.mgr.SendWarning(ev.Symbol, "circuit breaker level 1", fields)
	case ev.To == risk.StateHalted:
		err = a.mgr.SendError(ev.Symbol, "trading halted", fields)
	case ev.To == risk.StateContinuous && isSuspended(ev.From):
		err = a.mgr.SendInfo(ev.Symbol, "trading resumed", fields)
	default:
		return
	}
	if err != nil {
		a.logger.Warn("alert delivery failed", zap.String("symbol", ev.Symbol), zap.Error(err))
	}
}

func isSuspended(s risk.MarketState) bool {
	return s == risk.StateHalted || s == risk.StateCircuitBreakerL1 || s == risk.StateCircuitBreakerL2
}
