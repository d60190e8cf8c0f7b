package order

import (
	"errors"
	"fmt"
)

// 错误种类。调用方通过 errors.Is 区分。
var (
	// ErrValidation 调用方可修正的入参错误，发生在任何簿变更之前。
	ErrValidation = errors.New("validation failed")
	// ErrState 与当前市场状态或订单状态冲突。
	ErrState = errors.New("state conflict")
	// ErrNotFound 订单不存在或已离簿。
	ErrNotFound = errors.New("not found")
)

// ErrOrderNotFound is returned by cancel/modify for unknown or terminal ids.
var ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)

// Code 拒单原因码。
type Code string

const (
	CodeMissingField        Code = "missing_field"
	CodeInvalidSide         Code = "invalid_side"
	CodeInvalidType         Code = "invalid_type"
	CodeInvalidQuantity     Code = "invalid_quantity"
	CodeLotSize             Code = "lot_size"
	CodeMaxOrderSize        Code = "max_order_size"
	CodeInvalidPrice        Code = "invalid_price"
	CodeInvalidStopPrice    Code = "invalid_stop_price"
	CodeInvalidDisplay      Code = "invalid_display_quantity"
	CodeTickSize            Code = "tick_size"
	CodePriceBand           Code = "price_band"
	CodeMarketClosed        Code = "market_closed"
	CodeMarketHalted        Code = "market_halted"
	CodeCircuitBreaker      Code = "circuit_breaker"
	CodeMarketNotOpen       Code = "market_not_open"
	CodeQuantityBelowFilled Code = "quantity_below_filled"
	CodeMarketVsMarket      Code = "market_vs_market"
	CodeTerminalOrder       Code = "terminal_order"
	CodeIllegalTransition   Code = "illegal_transition"
	CodeOverfill            Code = "overfill"
	CodeInvalidState        Code = "invalid_market_state"
)

// RejectError 携带错误种类与原因码。
type RejectError struct {
	Kind   error // ErrValidation / ErrState
	Code   Code
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error() + ": " + string(e.Code)
	}
	return e.Kind.Error() + ": " + string(e.Code) + ": " + e.Detail
}

func (e *RejectError) Unwrap() error {
	return e.Kind
}

// Validationf 构造校验错误。
func Validationf(code Code, format string, args ...interface{}) *RejectError {
	return &RejectError{Kind: ErrValidation, Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Statef 构造状态冲突错误。
func Statef(code Code, format string, args ...interface{}) *RejectError {
	return &RejectError{Kind: ErrState, Code: code, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf 提取原因码；非 RejectError 返回空串。
func CodeOf(err error) Code {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
