package risk

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// TickBand 价格不低于 Floor 时适用 Tick。
type TickBand struct {
	Floor decimal.Decimal `yaml:"floor"`
	Tick  decimal.Decimal `yaml:"tick"`
}

// TickTable 按价格量级分段的最小变动价位，低价品种步长更细。
type TickTable []TickBand

// DefaultTickTable 默认分段：[0,1) 0.001，[1,100) 0.01，[100,1000) 0.05，[1000,∞) 0.10。
func DefaultTickTable() TickTable {
	return TickTable{
		{Floor: decimal.Zero, Tick: decimal.RequireFromString("0.001")},
		{Floor: decimal.NewFromInt(1), Tick: decimal.RequireFromString("0.01")},
		{Floor: decimal.NewFromInt(100), Tick: decimal.RequireFromString("0.05")},
		{Floor: decimal.NewFromInt(1000), Tick: decimal.RequireFromString("0.10")},
	}
}

// Normalize 按 Floor 升序返回拷贝并检查合法性。
func (t TickTable) Normalize() (TickTable, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("tick table is empty")
	}
	out := make(TickTable, len(t))
	copy(out, t)
	sort.Slice(out, func(i, j int) bool { return out[i].Floor.LessThan(out[j].Floor) })
	if !out[0].Floor.IsZero() {
		return nil, fmt.Errorf("tick table must start at 0, got %s", out[0].Floor)
	}
	for i, b := range out {
		if !b.Tick.IsPositive() {
			return nil, fmt.Errorf("tick band %d: tick must be > 0", i)
		}
		if i > 0 && b.Floor.Equal(out[i-1].Floor) {
			return nil, fmt.Errorf("tick band %d: duplicate floor %s", i, b.Floor)
		}
	}
	return out, nil
}

// TickFor 返回价格所在分段的步长；表需已 Normalize。
func (t TickTable) TickFor(price decimal.Decimal) decimal.Decimal {
	tick := t[0].Tick
	for _, b := range t {
		if price.LessThan(b.Floor) {
			break
		}
		tick = b.Tick
	}
	return tick
}

// Aligned 价格是否为步长的整数倍（十进制精确计算）。
func (t TickTable) Aligned(price decimal.Decimal) bool {
	return price.Mod(t.TickFor(price)).IsZero()
}
