package order

// StateTransition 状态转换
type StateTransition struct {
	From Status
	To   Status
}

// StateMachine 订单状态机。转换表在构造后只读，可并发使用。
type StateMachine struct {
	transitions map[StateTransition]bool
}

// NewStateMachine 创建新的状态机
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[StateTransition]bool),
	}
	sm.initializeTransitions()
	return sm
}

var defaultMachine = NewStateMachine()

func (sm *StateMachine) initializeTransitions() {
	legalTransitions := []StateTransition{
		// NEW
		{StatusNew, StatusPartiallyFilled},
		{StatusNew, StatusFilled},
		{StatusNew, StatusCancelled},
		{StatusNew, StatusRejected},
		{StatusNew, StatusExpired},

		// PARTIALLY_FILLED
		{StatusPartiallyFilled, StatusPartiallyFilled}, // 多次部分成交
		{StatusPartiallyFilled, StatusFilled},
		{StatusPartiallyFilled, StatusCancelled},
		{StatusPartiallyFilled, StatusExpired},

		// 终态不能转换（FILLED, CANCELLED, REJECTED, EXPIRED）
	}

	for _, t := range legalTransitions {
		sm.transitions[t] = true
	}
}

// ValidateTransition 验证状态转换是否合法
func (sm *StateMachine) ValidateTransition(from, to Status) error {
	if sm.IsFinalState(from) {
		return Statef(CodeTerminalOrder, "%s -> %s", from, to)
	}
	if from == to {
		return nil
	}
	if !sm.transitions[StateTransition{From: from, To: to}] {
		return Statef(CodeIllegalTransition, "%s -> %s", from, to)
	}
	return nil
}

// IsFinalState 判断是否是终态
func (sm *StateMachine) IsFinalState(status Status) bool {
	switch status {
	case StatusFilled, StatusCancelled, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// IsActiveState 判断是否是活跃状态（可能产生成交）
func (sm *StateMachine) IsActiveState(status Status) bool {
	switch status {
	case StatusNew, StatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// CanCancel 判断当前状态下是否可以撤单
func (sm *StateMachine) CanCancel(status Status) bool {
	return sm.IsActiveState(status)
}
