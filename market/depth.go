package market

import (
	"time"

	"github.com/shopspring/decimal"

	"matching-engine-go/internal/engine"
	"matching-engine-go/risk"
)

// BookSource 提供订单簿快照，通常是撮合引擎本身。
type BookSource interface {
	Snapshot(symbol string, depth int) engine.BookSnapshot
}

// TopOfBook 最优买卖价与挂单量。
type TopOfBook struct {
	Symbol    string
	BestBid   decimal.NullDecimal
	BestAsk   decimal.NullDecimal
	BidSize   int64
	AskSize   int64
	Spread    decimal.NullDecimal
	Mid       decimal.NullDecimal
	LastPrice decimal.Decimal
	Imbalance float64
	State     risk.MarketState
	Timestamp time.Time
}

var two = decimal.NewFromInt(2)

func topOfBook(snap engine.BookSnapshot, imbalanceLevels int) TopOfBook {
	top := TopOfBook{
		Symbol:    snap.Symbol,
		BestBid:   snap.BestBid,
		BestAsk:   snap.BestAsk,
		Spread:    snap.Spread,
		LastPrice: snap.LastPrice,
		Imbalance: CalculateImbalanceFromSnapshot(snap, imbalanceLevels),
		State:     snap.State,
		Timestamp: snap.Timestamp,
	}
	if len(snap.Bids) > 0 {
		top.BidSize = snap.Bids[0].Quantity
	}
	if len(snap.Asks) > 0 {
		top.AskSize = snap.Asks[0].Quantity
	}
	if snap.BestBid.Valid && snap.BestAsk.Valid {
		top.Mid = decimal.NewNullDecimal(snap.BestBid.Decimal.Add(snap.BestAsk.Decimal).Div(two))
	}
	return top
}
