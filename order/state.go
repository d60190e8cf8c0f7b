package order

// Status represents order lifecycle.
type Status string

const (
	StatusNew             Status = "NEW"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCancelled       Status = "CANCELLED"
	StatusRejected        Status = "REJECTED"
	StatusExpired         Status = "EXPIRED"
)

// Side 买卖方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid 判断方向是否合法。
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite 返回对手方向。
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Type 订单类型。
type Type string

const (
	TypeLimit     Type = "LIMIT"
	TypeMarket    Type = "MARKET"
	TypeStop      Type = "STOP"
	TypeStopLimit Type = "STOP_LIMIT"
	TypeIceberg   Type = "ICEBERG"
	TypeFOK       Type = "FOK"
	TypeIOC       Type = "IOC"
	TypeGTC       Type = "GTC"
)

// Valid 判断类型是否在支持范围内。
func (t Type) Valid() bool {
	switch t {
	case TypeLimit, TypeMarket, TypeStop, TypeStopLimit, TypeIceberg, TypeFOK, TypeIOC, TypeGTC:
		return true
	default:
		return false
	}
}

// Priced 返回该类型是否必须携带限价。
func (t Type) Priced() bool {
	return t != TypeMarket && t != TypeStop
}

// ExecutesAsMarket 市价单与触发后的止损单按市价撮合。
func (t Type) ExecutesAsMarket() bool {
	return t == TypeMarket || t == TypeStop
}

// Triggered 止损类订单需要等待触发价。
func (t Type) Triggered() bool {
	return t == TypeStop || t == TypeStopLimit
}

// Rests 剩余数量是否可以挂在簿上。
func (t Type) Rests() bool {
	switch t {
	case TypeLimit, TypeGTC, TypeIceberg, TypeStopLimit:
		return true
	default:
		return false
	}
}
