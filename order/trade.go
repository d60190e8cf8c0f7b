package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable execution record; exactly one per match.
type Trade struct {
	ID            string
	Symbol        string
	BuyOrderID    string
	SellOrderID   string
	BuyAccountID  string
	SellAccountID string
	Price         decimal.Decimal
	Quantity      int64
	AggressorSide Side
	ExecutedAt    time.Time
	Sequence      uint64
}

// Notional 成交金额。
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// NewTrade 根据主动方与被动方构造成交。
func NewTrade(id string, seq uint64, taker, maker *Order, price decimal.Decimal, qty int64, at time.Time) Trade {
	buy, sell := taker, maker
	if taker.Side == SideSell {
		buy, sell = maker, taker
	}
	return Trade{
		ID:            id,
		Symbol:        taker.Symbol,
		BuyOrderID:    buy.ID,
		SellOrderID:   sell.ID,
		BuyAccountID:  buy.AccountID,
		SellAccountID: sell.AccountID,
		Price:         price,
		Quantity:      qty,
		AggressorSide: taker.Side,
		ExecutedAt:    at,
		Sequence:      seq,
	}
}
