package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matching-engine-go/order"
	"matching-engine-go/risk"
)

// EngineState 引擎状态
type EngineState int

const (
	// StateIdle 空闲状态
	StateIdle EngineState = iota
	// StateRunning 运行状态
	StateRunning
	// StateStopped 停止状态
	StateStopped
)

// String 返回状态名称
func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Statistics 引擎统计信息
type Statistics struct {
	StartTime time.Time
	Submitted int64
	Rejected  int64
	Trades    int64
	Cancelled int64
	Modified  int64
	Books     int
}

type counters struct {
	submitted atomic.Int64
	rejected  atomic.Int64
	trades    atomic.Int64
	cancelled atomic.Int64
	modified  atomic.Int64
}

// Engine 多品种撮合引擎。每个品种一把读写锁，品种之间完全并行。
type Engine struct {
	books     sync.Map // symbol -> *OrderBook
	validator atomic.Pointer[risk.Validator]
	orderSeq  atomic.Uint64
	tradeSeq  atomic.Uint64

	clock        risk.Clock
	logger       *zap.Logger
	observer     Observer
	listeners    []Listener
	dispatch     *dispatcher
	rules        risk.Rules
	queueSize    int
	initialState risk.MarketState
	newID        func() string

	mu        sync.Mutex
	state     EngineState
	stopChan  chan struct{}
	startTime time.Time
	stats     counters
}

// New 创建撮合引擎
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		clock:        risk.SystemClock,
		logger:       zap.NewNop(),
		observer:     nopObserver{},
		rules:        risk.DefaultRules(),
		initialState: risk.StateContinuous,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if !e.initialState.Valid() {
		return nil, fmt.Errorf("invalid initial market state %q", e.initialState)
	}
	v, err := risk.NewValidator(e.rules)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	e.validator.Store(v)
	e.dispatch = newDispatcher(e.listeners, e.queueSize, e.logger)
	return e, nil
}

// Start 启动事件分发协程。ctx 结束时自动停止。
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return fmt.Errorf("engine already started (state: %s)", e.state)
	}
	e.stopChan = make(chan struct{})
	e.state = StateRunning
	e.startTime = e.clock.Now()
	e.dispatch.start()
	stop := e.stopChan
	e.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = e.Stop()
		case <-stop:
		}
	}()

	e.logger.Info("matching engine started",
		zap.Int("listeners", len(e.listeners)),
		zap.String("initial_state", string(e.initialState)))
	return nil
}

// Stop 停止分发并投递完已入队的事件。之后事件在调用方协程内联投递。
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return fmt.Errorf("engine not running (state: %s)", e.state)
	}
	e.state = StateStopped
	close(e.stopChan)
	e.mu.Unlock()

	e.dispatch.stop()
	e.logger.Info("matching engine stopped")
	return nil
}

// State 引擎运行状态
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats 统计快照
func (e *Engine) Stats() Statistics {
	e.mu.Lock()
	start := e.startTime
	e.mu.Unlock()
	return Statistics{
		StartTime: start,
		Submitted: e.stats.submitted.Load(),
		Rejected:  e.stats.rejected.Load(),
		Trades:    e.stats.trades.Load(),
		Cancelled: e.stats.cancelled.Load(),
		Modified:  e.stats.modified.Load(),
		Books:     len(e.Symbols()),
	}
}

// Book 获取或创建品种订单簿。
func (e *Engine) Book(symbol string) *OrderBook {
	if b, ok := e.books.Load(symbol); ok {
		return b.(*OrderBook)
	}
	b, loaded := e.books.LoadOrStore(symbol, newOrderBook(symbol, e.initialState))
	if !loaded {
		e.logger.Debug("order book created", zap.String("symbol", symbol))
	}
	return b.(*OrderBook)
}

func (e *Engine) lookup(symbol string) (*OrderBook, bool) {
	b, ok := e.books.Load(symbol)
	if !ok {
		return nil, false
	}
	return b.(*OrderBook), true
}

// Symbols 已有订单簿的品种，按字母序。
func (e *Engine) Symbols() []string {
	var out []string
	e.books.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}

// Snapshot 品种快照；品种不存在时返回空簿，不会创建订单簿。
func (e *Engine) Snapshot(symbol string, depth int) BookSnapshot {
	if b, ok := e.lookup(symbol); ok {
		return b.Snapshot(depth)
	}
	return BookSnapshot{Symbol: symbol, State: e.initialState}
}

// Order 查询在簿或待触发订单。
func (e *Engine) Order(symbol, id string) (order.Order, bool) {
	b, ok := e.lookup(symbol)
	if !ok {
		return order.Order{}, false
	}
	return b.Order(id)
}

// Rules 当前生效的准入规则。
func (e *Engine) Rules() risk.Rules {
	return e.validator.Load().Rules()
}

// UpdateRules 热更新准入规则，对之后的请求生效。
func (e *Engine) UpdateRules(r risk.Rules) error {
	v, err := risk.NewValidator(r)
	if err != nil {
		return err
	}
	e.validator.Store(v)
	e.logger.Info("admission rules updated",
		zap.Int64("board_lot", r.BoardLot),
		zap.Int64("max_order_size", r.MaxOrderSize),
		zap.String("price_limit_pct", r.PriceLimitPct.String()))
	return nil
}

// Submit 提交新订单并在同一次锁持有内完成撮合。
func (e *Engine) Submit(ctx context.Context, o *order.Order) (*order.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o == nil {
		return nil, order.Validationf(order.CodeMissingField, "order is required")
	}
	start := time.Now()
	e.stamp(o)
	e.stats.submitted.Add(1)
	e.observer.OrderSubmitted(o.Symbol, o.Type)

	v := e.validator.Load()
	if err := v.CheckStatic(o); err != nil {
		return nil, e.reject(o, err)
	}

	b := e.Book(o.Symbol)
	var res *order.MatchResult
	err := e.withBook(b, func(evs *batch) error {
		if err := e.admit(b, v, o, true); err != nil {
			return e.reject(o, err)
		}
		res = e.execute(b, v, o, true, true, evs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.observer.MatchLatency(o.Symbol, time.Since(start))
	return res, nil
}

// Cancel 撤销在簿或待触发订单。未知或已终结的订单返回 ErrOrderNotFound。
func (e *Engine) Cancel(ctx context.Context, symbol, id string) (*order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := e.lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("cancel %s/%s: %w", symbol, id, order.ErrOrderNotFound)
	}
	var out order.Order
	err := e.withBook(b, func(evs *batch) error {
		o, ok := b.detach(id)
		if !ok {
			return fmt.Errorf("cancel %s/%s: %w", symbol, id, order.ErrOrderNotFound)
		}
		now := e.clock.Now()
		if err := o.Cancel(ReasonUser, now); err != nil {
			return err
		}
		evs.cancelled(o, ReasonUser, now)
		out = o.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.stats.cancelled.Add(1)
	return &out, nil
}

// Modify 改价或改量。替换单获得新的 ID 与时间优先级，沿用已成交数量；
// 替换单校验失败时原单保持不变。
func (e *Engine) Modify(ctx context.Context, symbol, id string, newPrice *decimal.Decimal, newQty *int64) (*order.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := e.lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("modify %s/%s: %w", symbol, id, order.ErrOrderNotFound)
	}
	v := e.validator.Load()
	var res *order.MatchResult
	err := e.withBook(b, func(evs *batch) error {
		old, ok := b.find(id)
		if !ok {
			return fmt.Errorf("modify %s/%s: %w", symbol, id, order.ErrOrderNotFound)
		}
		_, resting := b.index[id]
		price, qty := old.Price, old.Quantity
		if newPrice != nil {
			price = *newPrice
		}
		if newQty != nil {
			qty = *newQty
		}
		if qty < old.FilledQuantity {
			return order.Statef(order.CodeQuantityBelowFilled, "quantity %d below filled %d", qty, old.FilledQuantity)
		}
		now := e.clock.Now()
		next := old.Replace(e.newID(), price, qty, now, e.orderSeq.Add(1))
		if err := v.CheckStatic(next); err != nil {
			return err
		}
		if err := e.admit(b, v, next, !resting); err != nil {
			return err
		}
		b.detach(id)
		if err := old.Cancel(ReasonReplaced, now); err != nil {
			return err
		}
		evs.modified(old, next, now)
		res = e.execute(b, v, next, !resting, false, evs)
		return nil
	})
	if err != nil {
		e.logger.Debug("modify rejected", zap.String("symbol", symbol), zap.String("order_id", id), zap.Error(err))
		return nil, err
	}
	e.stats.modified.Add(1)
	return res, nil
}

// SetMarketState 外部设置市场状态（开收盘、停复牌、熔断解除）。
// 进入 CLOSED 时非 GTC 挂单与全部待触发止损单过期，最新价成为下一交易日的昨收。
func (e *Engine) SetMarketState(symbol string, state risk.MarketState) error {
	if !state.Valid() {
		return order.Validationf(order.CodeInvalidState, "unknown market state %q", state)
	}
	b := e.Book(symbol)
	return e.withBook(b, func(evs *batch) error {
		if b.state == state {
			return nil
		}
		now := e.clock.Now()
		if state == risk.StateClosed {
			n := e.expireSession(b, now, evs)
			if b.lastPrice.IsPositive() {
				b.previousClose = b.lastPrice
			}
			e.logger.Info("session closed",
				zap.String("symbol", symbol),
				zap.Int("expired", n),
				zap.String("previous_close", b.previousClose.String()))
		}
		e.transition(b, state, "manual", now, evs)
		return nil
	})
}

// SetPreviousClose 设置昨收价，作为价格带与熔断的参考。
func (e *Engine) SetPreviousClose(symbol string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return order.Validationf(order.CodeInvalidPrice, "previous close %s must be > 0", price)
	}
	b := e.Book(symbol)
	return e.withBook(b, func(*batch) error {
		b.previousClose = price
		return nil
	})
}

func (e *Engine) stamp(o *order.Order) {
	now := e.clock.Now()
	if o.ID == "" {
		o.ID = e.newID()
	}
	o.Timestamp = now
	o.UpdatedAt = now
	o.SequenceNumber = e.orderSeq.Add(1)
	o.Status = order.StatusNew
	o.FilledQuantity = 0
	o.RejectReason = ""
}

// admit 持锁状态下的准入检查；可立即触发的止损单按触发语义检查。
func (e *Engine) admit(b *OrderBook, v *risk.Validator, o *order.Order, armed bool) error {
	view := b.view()
	if err := v.CheckState(o, view); err != nil {
		return err
	}
	if o.Type.Triggered() && (!armed || stopHit(o, b.lastPrice)) {
		return v.CheckTrigger(o, view)
	}
	return nil
}

func (e *Engine) reject(o *order.Order, err error) error {
	_ = o.Reject(err.Error(), e.clock.Now())
	e.stats.rejected.Add(1)
	e.observer.OrderRejected(o.Symbol, order.CodeOf(err))
	e.logger.Debug("order rejected",
		zap.String("symbol", o.Symbol),
		zap.String("order_id", o.ID),
		zap.String("account", o.AccountID),
		zap.String("type", string(o.Type)),
		zap.Error(err))
	return err
}

// withBook 在写锁内执行 fn，释放写锁前取得发布锁，保证同一品种事件按生成顺序投递。
func (e *Engine) withBook(b *OrderBook, fn func(evs *batch) error) error {
	var (
		evs      batch
		unlocked bool
	)
	b.mu.Lock()
	defer func() {
		if !unlocked {
			b.mu.Unlock()
		}
	}()

	err := fn(&evs)
	bids, asks := b.bids.levels.Len(), b.asks.levels.Len()

	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	b.mu.Unlock()
	unlocked = true

	e.dispatch.publish(evs)
	e.observe(b.symbol, evs, bids, asks)
	return err
}

func (e *Engine) observe(symbol string, evs batch, bids, asks int) {
	for i := range evs {
		switch evs[i].kind {
		case eventTrade:
			e.stats.trades.Add(1)
		case eventState:
			e.observer.MarketStateChanged(symbol, evs[i].state.To)
		}
	}
	e.observer.BookDepth(symbol, bids, asks)
	e.observer.QueueDepth(e.dispatch.pending())
}

// transition 修改市场状态并记录事件，调用方持有写锁。
func (e *Engine) transition(b *OrderBook, to risk.MarketState, reason string, at time.Time, evs *batch) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	evs.stateChanged(StateEvent{
		Symbol:    b.symbol,
		From:      from,
		To:        to,
		Reason:    reason,
		LastPrice: b.lastPrice.String(),
		Timestamp: at,
	})
	e.logger.Info("market state changed",
		zap.String("symbol", b.symbol),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", reason))
}

// expireSession 收盘过期：非 GTC 挂单与全部止损单，按序号顺序。
func (e *Engine) expireSession(b *OrderBook, at time.Time, evs *batch) int {
	var victims []*order.Order
	for _, side := range []*bookSide{b.bids, b.asks} {
		side.walk(func(q *OrderQueue) bool {
			for el := q.Peek(); el != nil; el = el.Next() {
				if o := el.Value.(*order.Order); o.Type != order.TypeGTC {
					victims = append(victims, o)
				}
			}
			return true
		})
	}
	sort.Slice(victims, func(i, j int) bool { return victims[i].Before(victims[j]) })
	for _, o := range victims {
		b.unlink(o.ID)
	}
	victims = append(victims, b.stops...)
	b.stops = nil

	for _, o := range victims {
		if err := o.Expire(at); err != nil {
			e.logger.Error("expire failed", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}
		evs.cancelled(o, ReasonExpired, at)
	}
	return len(victims)
}
