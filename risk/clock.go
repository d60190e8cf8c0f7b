package risk

import "time"

// Clock 抽象时间便于测试。
type Clock interface {
	Now() time.Time
}

// systemClock 保留单调时钟读数，系统时间回拨不影响先后比较。
// 不能在这里调用 UTC()，它会丢掉单调读数。
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 默认时钟。
var SystemClock Clock = systemClock{}

// ClockFunc 函数适配器。
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
