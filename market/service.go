package market

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"matching-engine-go/internal/engine"
	"matching-engine-go/order"
	"matching-engine-go/risk"
)

// Config 行情服务参数。
type Config struct {
	RingCapacity     int `yaml:"ringCapacity"`
	KlineRetention   int `yaml:"klineRetention"`
	VolatilityWindow int `yaml:"volatilityWindow"`
	ImbalanceLevels  int `yaml:"imbalanceLevels"`
	PublisherBuffer  int `yaml:"publisherBuffer"`
}

// DefaultConfig 默认保留 1000 笔成交、1440 根分钟线。
func DefaultConfig() Config {
	return Config{
		RingCapacity:     defaultRingCapacity,
		KlineRetention:   defaultRetention,
		VolatilityWindow: 100,
		ImbalanceLevels:  5,
		PublisherBuffer:  64,
	}
}

type symbolData struct {
	ring   *TradeRing
	klines *KlineAggregator

	mu     sync.Mutex
	ticker Ticker
	vol    *VolatilityCalculator
}

// Service 维护每个品种的最近成交、分钟线与当日汇总，并向订阅者广播。
// 成交来自撮合引擎的事件分发协程，深度直接读取引擎快照。
type Service struct {
	cfg    Config
	pub    *Publisher
	source BookSource
	clock  risk.Clock
	logger *zap.Logger

	mu      sync.RWMutex
	symbols map[string]*symbolData
}

func NewService(cfg Config, source BookSource, pub *Publisher, logger *zap.Logger) *Service {
	def := DefaultConfig()
	if cfg.RingCapacity <= 0 {
		cfg.RingCapacity = def.RingCapacity
	}
	if cfg.KlineRetention <= 0 {
		cfg.KlineRetention = def.KlineRetention
	}
	if cfg.VolatilityWindow <= 0 {
		cfg.VolatilityWindow = def.VolatilityWindow
	}
	if cfg.ImbalanceLevels <= 0 {
		cfg.ImbalanceLevels = def.ImbalanceLevels
	}
	if pub == nil {
		pub = NewPublisher(cfg.PublisherBuffer)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:     cfg,
		pub:     pub,
		source:  source,
		clock:   risk.SystemClock,
		logger:  logger,
		symbols: make(map[string]*symbolData),
	}
}

// Publisher 分钟线与成交广播。
func (s *Service) Publisher() *Publisher { return s.pub }

// SetClock 替换时钟，仅用于测试与回放。
func (s *Service) SetClock(c risk.Clock) {
	if c != nil {
		s.clock = c
	}
}

// SetSource 注入深度来源。引擎构造时需要本服务的 Listener，因此在引擎建好后再注入，须在启动前调用。
func (s *Service) SetSource(src BookSource) {
	s.source = src
}

// Listener 适配为引擎事件订阅者：消费成交，收盘后重新开市时清空当日汇总。
func (s *Service) Listener() engine.Listener {
	return engine.ListenerFuncs{
		Trade: s.OnTrade,
		StateChanged: func(ev engine.StateEvent) {
			if ev.From == risk.StateClosed {
				s.ResetSession(ev.Symbol)
			}
		},
	}
}

func (s *Service) data(symbol string, create bool) *symbolData {
	s.mu.RLock()
	d, ok := s.symbols[symbol]
	s.mu.RUnlock()
	if ok || !create {
		return d
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok = s.symbols[symbol]; ok {
		return d
	}
	d = &symbolData{
		ring:   NewTradeRing(s.cfg.RingCapacity),
		klines: NewKlineAggregator(symbol, s.cfg.KlineRetention),
		vol:    NewVolatilityCalculator(s.cfg.VolatilityWindow),
	}
	d.ticker.Symbol = symbol
	s.symbols[symbol] = d
	return d
}

// OnTrade 记录成交并更新分钟线；分钟切换时广播闭合的 Kline。
func (s *Service) OnTrade(t order.Trade) {
	d := s.data(t.Symbol, true)
	d.ring.Push(t)
	closed := d.klines.OnTrade(t.Price, t.Quantity, t.ExecutedAt)

	d.mu.Lock()
	d.ticker.add(t.Price, t.Quantity, t.ExecutedAt)
	d.vol.AddPrice(t.Price)
	d.mu.Unlock()

	s.pub.PublishTrade(t)
	if closed != nil {
		s.logger.Debug("kline closed",
			zap.String("symbol", closed.Symbol),
			zap.Time("start", closed.Start),
			zap.Int64("volume", closed.Volume))
		s.pub.PublishKline(*closed)
	}
}

// RecentTrades 最近 n 笔成交，最新在前。
func (s *Service) RecentTrades(symbol string, n int) []order.Trade {
	d := s.data(symbol, false)
	if d == nil {
		return nil
	}
	return d.ring.Recent(n)
}

// OHLC 截至 now 的最近 n 分钟的分钟线，升序。
func (s *Service) OHLC(symbol string, n int, now time.Time) []Kline {
	d := s.data(symbol, false)
	if d == nil {
		return nil
	}
	return d.klines.Range(n, now)
}

// Ticker 当日汇总；没有成交时 ok 为 false。
func (s *Service) Ticker(symbol string) (Ticker, bool) {
	d := s.data(symbol, false)
	if d == nil {
		return Ticker{Symbol: symbol}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.ticker
	t.Volatility = d.vol.RealizedVol()
	return t, true
}

// TopOfBook 最优买卖价，来自订单簿快照。
func (s *Service) TopOfBook(symbol string) TopOfBook {
	if s.source == nil {
		return TopOfBook{Symbol: symbol}
	}
	return topOfBook(s.source.Snapshot(symbol, s.cfg.ImbalanceLevels), s.cfg.ImbalanceLevels)
}

// Staleness 返回距离上次成交的时间间隔；如无数据返回一年。
func (s *Service) Staleness(symbol string) time.Duration {
	t, ok := s.Ticker(symbol)
	if !ok {
		return time.Hour * 24 * 365
	}
	return s.clock.Now().Sub(t.UpdatedAt)
}

// Symbols 已有成交的品种。
func (s *Service) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// ResetSession 清空当日汇总，成交记录与分钟线保留。
func (s *Service) ResetSession(symbol string) {
	d := s.data(symbol, false)
	if d == nil {
		return
	}
	d.mu.Lock()
	d.ticker = Ticker{Symbol: symbol}
	d.mu.Unlock()
}
