package container

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matching-engine-go/internal/engine"
	"matching-engine-go/inventory"
	"matching-engine-go/market"
	"matching-engine-go/order"
)

// ErrLedgerDisabled 未启用账本时查询账户。
var ErrLedgerDisabled = errors.New("ledger disabled")

// Gateway 对外的下单入口。启用账本时先冻结资金再提交，提交失败立即释放。
type Gateway struct {
	engine   *engine.Engine
	market   *market.Service
	settler  *inventory.Settler
	accounts *inventory.Sync
	logger   *zap.Logger
}

// Submit 冻结、提交、撮合。
func (g *Gateway) Submit(ctx context.Context, o *order.Order) (*order.MatchResult, error) {
	if g.settler == nil || o == nil {
		return g.engine.Submit(ctx, o)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if err := g.settler.Reserve(o, g.referencePrice(o)); err != nil {
		return nil, err
	}
	res, err := g.engine.Submit(ctx, o)
	if err != nil {
		g.settler.Release(o.ID)
		g.logger.Debug("submit rejected, reservation released", zap.String("order_id", o.ID), zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (g *Gateway) Cancel(ctx context.Context, symbol, id string) (*order.Order, error) {
	return g.engine.Cancel(ctx, symbol, id)
}

func (g *Gateway) Modify(ctx context.Context, symbol, id string, price *decimal.Decimal, qty *int64) (*order.MatchResult, error) {
	return g.engine.Modify(ctx, symbol, id, price, qty)
}

func (g *Gateway) Snapshot(symbol string, depth int) engine.BookSnapshot {
	return g.engine.Snapshot(symbol, depth)
}

func (g *Gateway) TopOfBook(symbol string) market.TopOfBook {
	return g.market.TopOfBook(symbol)
}

// Account 账户余额与持仓估值。
func (g *Gateway) Account(account string) (inventory.AccountSnapshot, error) {
	if g.accounts == nil {
		return inventory.AccountSnapshot{}, ErrLedgerDisabled
	}
	return g.accounts.Snapshot(account), nil
}

// referencePrice 无限价买单的冻结估价：按当前卖盘逐档吃到订单数量的最差价，
// 卖盘不足时取最深一档；止损买单不低于触发价；卖盘为空时退回最新价或昨收。
func (g *Gateway) referencePrice(o *order.Order) decimal.Decimal {
	if o.Side != order.SideBuy || o.Type.Priced() {
		return decimal.Zero
	}
	snap := g.engine.Snapshot(o.Symbol, 0)
	ref := decimal.Zero
	need := o.Quantity
	for _, lvl := range snap.Asks {
		ref = lvl.Price
		need -= lvl.Quantity
		if need <= 0 {
			break
		}
	}
	if ref.IsZero() {
		ref = snap.LastPrice
	}
	if ref.IsZero() {
		ref = snap.PreviousClose
	}
	if o.Type.Triggered() && o.StopPrice.GreaterThan(ref) {
		ref = o.StopPrice
	}
	return ref
}
