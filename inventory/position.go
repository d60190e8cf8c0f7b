package inventory

import (
	"sync"

	"github.com/shopspring/decimal"

	"matching-engine-go/order"
)

// Position 某账户在某品种上的净持仓与加权平均成本。
type Position struct {
	Account string
	Symbol  string
	Net     int64
	AvgCost decimal.Decimal
}

// Tracker 维护各账户的净仓位。
type Tracker struct {
	mu        sync.RWMutex
	positions map[string]*Position
}

func NewTracker() *Tracker {
	return &Tracker{positions: make(map[string]*Position)}
}

// Apply 根据成交同时更新买卖双方。
func (t *Tracker) Apply(tr order.Trade) {
	t.Update(tr.BuyAccountID, tr.Symbol, tr.Quantity, tr.Price)
	t.Update(tr.SellAccountID, tr.Symbol, -tr.Quantity, tr.Price)
}

// Update 根据成交数量调整仓位。加仓时按加权平均更新成本，减仓不改变成本，穿越零点时以成交价为新成本。
func (t *Tracker) Update(account, symbol string, deltaQty int64, price decimal.Decimal) {
	if deltaQty == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := slotKey(account, symbol)
	p, ok := t.positions[key]
	if !ok {
		p = &Position{Account: account, Symbol: symbol}
		t.positions[key] = p
	}
	next := p.Net + deltaQty
	switch {
	case next == 0:
		p.AvgCost = decimal.Zero
	case p.Net == 0 || (p.Net > 0) != (next > 0):
		p.AvgCost = price
	case (p.Net > 0) == (deltaQty > 0):
		total := p.AvgCost.Mul(decimal.NewFromInt(abs(p.Net))).Add(price.Mul(decimal.NewFromInt(abs(deltaQty))))
		p.AvgCost = total.Div(decimal.NewFromInt(abs(next)))
	}
	p.Net = next
}

// Get 返回仓位拷贝。
func (t *Tracker) Get(account, symbol string) (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.positions[slotKey(account, symbol)]
	if !ok {
		return Position{Account: account, Symbol: symbol}, false
	}
	return *p, true
}

// NetExposure 账户在品种上的净持仓。
func (t *Tracker) NetExposure(account, symbol string) int64 {
	p, _ := t.Get(account, symbol)
	return p.Net
}

// Positions 账户全部非零仓位。
func (t *Tracker) Positions(account string) []Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Position
	for _, p := range t.positions {
		if p.Account == account && p.Net != 0 {
			out = append(out, *p)
		}
	}
	return out
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
