package config

import (
	"matching-engine-go/market"
	"matching-engine-go/risk"
)

// ErrInvalid 单个字段的校验错误。
type ErrInvalid struct {
	Field  string
	Reason string
}

func (e *ErrInvalid) Error() string { return e.Field + ": " + e.Reason }

func invalid(field, reason string) error { return &ErrInvalid{Field: field, Reason: reason} }

func validateEngine(c EngineConfig) []error {
	var errs []error
	if c.QueueSize < 0 {
		errs = append(errs, invalid("engine.queueSize", "must be >= 0"))
	}
	if c.InitialState != "" && !c.InitialState.Valid() {
		errs = append(errs, invalid("engine.initialState", "unknown market state "+string(c.InitialState)))
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s.Name == "" {
			errs = append(errs, invalid("engine.symbols", "symbol name is required"))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, invalid("engine.symbols", "duplicate symbol "+s.Name))
		}
		seen[s.Name] = true
		if s.PreviousClose.IsNegative() {
			errs = append(errs, invalid("engine.symbols."+s.Name+".previousClose", "must be >= 0"))
		}
	}
	return errs
}

func validateMarketData(c market.Config) []error {
	var errs []error
	if c.RingCapacity <= 0 {
		errs = append(errs, invalid("marketData.ringCapacity", "must be > 0"))
	}
	if c.KlineRetention <= 0 {
		errs = append(errs, invalid("marketData.klineRetention", "must be > 0"))
	}
	if c.VolatilityWindow <= 1 {
		errs = append(errs, invalid("marketData.volatilityWindow", "must be > 1"))
	}
	if c.ImbalanceLevels <= 0 {
		errs = append(errs, invalid("marketData.imbalanceLevels", "must be > 0"))
	}
	if c.PublisherBuffer < 0 {
		errs = append(errs, invalid("marketData.publisherBuffer", "must be >= 0"))
	}
	return errs
}

func validateLedger(c LedgerConfig) []error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.QuoteAsset == "" {
		errs = append(errs, invalid("ledger.quoteAsset", "is required when ledger is enabled"))
	}
	for acc, assets := range c.Balances {
		for asset, amt := range assets {
			if amt.IsNegative() {
				errs = append(errs, invalid("ledger.balances."+acc+"."+asset, "must be >= 0"))
			}
		}
	}
	return errs
}

// RulesChanged 热更新时判断准入参数是否变化。
func RulesChanged(old, next risk.Rules) bool {
	if old.BoardLot != next.BoardLot || old.MaxOrderSize != next.MaxOrderSize ||
		!old.PriceLimitPct.Equal(next.PriceLimitPct) ||
		!old.CircuitBreakerL1Pct.Equal(next.CircuitBreakerL1Pct) ||
		!old.CircuitBreakerL2Pct.Equal(next.CircuitBreakerL2Pct) ||
		len(old.Ticks) != len(next.Ticks) {
		return true
	}
	for i := range old.Ticks {
		if !old.Ticks[i].Floor.Equal(next.Ticks[i].Floor) || !old.Ticks[i].Tick.Equal(next.Ticks[i].Tick) {
			return true
		}
	}
	return false
}
