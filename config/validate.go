package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Validate 检查全部字段，返回合并后的错误，每项为 *ErrInvalid。
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ErrInvalid{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if cfg.Env == "" {
		add("env", "is required")
	}
	if err := cfg.Rules.Validate(); err != nil {
		add("rules", "%v", err)
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		add("log.level", "unknown level %q", cfg.Log.Level)
	}
	if cfg.Monitor.Enabled && cfg.Monitor.Addr == "" {
		add("monitor.addr", "is required when monitor is enabled")
	}
	errs = append(errs, validateEngine(cfg.Engine)...)
	errs = append(errs, validateMarketData(cfg.MarketData)...)
	errs = append(errs, validateLedger(cfg.Ledger)...)
	return errors.Join(errs...)
}
