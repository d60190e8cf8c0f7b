package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MarkFunc 返回品种的标记价格，通常是最新成交价。
type MarkFunc func(symbol string) decimal.Decimal

// Holding 单个仓位的估值。
type Holding struct {
	Position
	Mark decimal.Decimal
	PnL  decimal.Decimal
}

// AccountSnapshot 账户余额与持仓估值。
type AccountSnapshot struct {
	Account  string
	Balances map[string]Balance
	Holdings []Holding
	PnL      decimal.Decimal
}

// Sync 组合账本与仓位，供外部定期拉取账户快照。
type Sync struct {
	Ledger  *Ledger
	Tracker *Tracker
	Mark    MarkFunc
}

func (s *Sync) Snapshot(account string) AccountSnapshot {
	snap := AccountSnapshot{Account: account}
	if s.Ledger != nil {
		snap.Balances = s.Ledger.Balances(account)
	}
	if s.Tracker == nil {
		return snap
	}
	for _, p := range s.Tracker.Positions(account) {
		h := Holding{Position: p}
		if s.Mark != nil {
			h.Mark = s.Mark(p.Symbol)
		}
		_, h.PnL = p.Valuation(h.Mark)
		snap.PnL = snap.PnL.Add(h.PnL)
		snap.Holdings = append(snap.Holdings, h)
	}
	sort.Slice(snap.Holdings, func(i, j int) bool { return snap.Holdings[i].Symbol < snap.Holdings[j].Symbol })
	return snap
}
