package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kline 一分钟 OHLC 桶。
type Kline struct {
	Symbol   string
	Minute   int64 // unix 分钟序号
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   int64
	Notional decimal.Decimal
	Count    int
	Start    time.Time
	// 最近一笔更新时间，用于乱序成交时判断收盘价
	lastAt time.Time
}

// MinuteOf 返回时间所在的 unix 分钟序号。
func MinuteOf(ts time.Time) int64 {
	return ts.Unix() / 60
}

// VWAP 成交量加权均价，无成交为零。
func (k Kline) VWAP() decimal.Decimal {
	if k.Volume == 0 {
		return decimal.Zero
	}
	return k.Notional.Div(decimal.NewFromInt(k.Volume))
}

func newKline(symbol string, minute int64, price decimal.Decimal, qty int64, ts time.Time) *Kline {
	return &Kline{
		Symbol:   symbol,
		Minute:   minute,
		Open:     price,
		High:     price,
		Low:      price,
		Close:    price,
		Volume:   qty,
		Notional: price.Mul(decimal.NewFromInt(qty)),
		Count:    1,
		Start:    time.Unix(minute*60, 0).UTC(),
		lastAt:   ts,
	}
}

// flatKline 无成交分钟的平线。
func flatKline(symbol string, minute int64, price decimal.Decimal) Kline {
	return Kline{
		Symbol: symbol,
		Minute: minute,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Start:  time.Unix(minute*60, 0).UTC(),
	}
}

func (k *Kline) add(price decimal.Decimal, qty int64, ts time.Time) {
	if price.GreaterThan(k.High) {
		k.High = price
	}
	if price.LessThan(k.Low) {
		k.Low = price
	}
	if !ts.Before(k.lastAt) {
		k.Close = price
		k.lastAt = ts
	}
	k.Volume += qty
	k.Notional = k.Notional.Add(price.Mul(decimal.NewFromInt(qty)))
	k.Count++
}
