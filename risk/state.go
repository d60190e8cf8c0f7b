package risk

// MarketState 品种交易状态。
type MarketState string

const (
	StatePreOpen          MarketState = "PRE_OPEN"
	StateOpeningAuction   MarketState = "OPENING_AUCTION"
	StateContinuous       MarketState = "CONTINUOUS_TRADING"
	StateClosingAuction   MarketState = "CLOSING_AUCTION"
	StatePostClose        MarketState = "POST_CLOSE"
	StateHalted           MarketState = "HALTED"
	StateCircuitBreakerL1 MarketState = "CIRCUIT_BREAKER_L1"
	StateCircuitBreakerL2 MarketState = "CIRCUIT_BREAKER_L2"
	StateClosed           MarketState = "CLOSED"
)

// Valid 是否为已知状态。
func (s MarketState) Valid() bool {
	switch s {
	case StatePreOpen, StateOpeningAuction, StateContinuous, StateClosingAuction,
		StatePostClose, StateHalted, StateCircuitBreakerL1, StateCircuitBreakerL2, StateClosed:
		return true
	default:
		return false
	}
}

// AcceptsOrders CLOSED / HALTED 拒绝一切订单。
func (s MarketState) AcceptsOrders() bool {
	return s != StateClosed && s != StateHalted
}

// AcceptsMarketOrders 熔断与盘前盘后只拒绝市价单。
func (s MarketState) AcceptsMarketOrders() bool {
	switch s {
	case StateClosed, StateHalted, StateCircuitBreakerL1, StateCircuitBreakerL2, StatePreOpen, StatePostClose:
		return false
	default:
		return true
	}
}

// Level 用于监控的数值编码。
func (s MarketState) Level() int {
	switch s {
	case StatePreOpen:
		return 0
	case StateOpeningAuction:
		return 1
	case StateContinuous:
		return 2
	case StateClosingAuction:
		return 3
	case StatePostClose:
		return 4
	case StateHalted:
		return 5
	case StateCircuitBreakerL1:
		return 6
	case StateCircuitBreakerL2:
		return 7
	case StateClosed:
		return 8
	default:
		return -1
	}
}
