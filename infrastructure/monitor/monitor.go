package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"matching-engine-go/internal/engine"
	"matching-engine-go/order"
	"matching-engine-go/risk"
)

// Monitor Prometheus监控指标收集器。同时实现引擎的 Observer 与 Listener。
type Monitor struct {
	registry *prometheus.Registry

	// 订单指标
	ordersSubmitted *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	ordersCancelled *prometheus.CounterVec
	ordersModified  *prometheus.CounterVec
	matchLatency    *prometheus.HistogramVec

	// 成交指标
	tradesTotal  *prometheus.CounterVec
	tradedVolume *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec

	// 盘口与状态
	bookLevels    *prometheus.GaugeVec
	marketState   *prometheus.GaugeVec
	breakerTrips  *prometheus.CounterVec
	dispatchQueue prometheus.Gauge
}

var (
	_ engine.Observer = (*Monitor)(nil)
	_ engine.Listener = (*Monitor)(nil)
)

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "me",
		Subsystem: "engine",
	}
}

// New 创建新的Monitor实例，指标注册在私有 registry 上。
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help}
	}
	gauge := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help}
	}

	return &Monitor{
		registry: reg,

		ordersSubmitted: factory.NewCounterVec(opts("orders_submitted_total", "提交订单数"), []string{"symbol", "type"}),
		ordersRejected:  factory.NewCounterVec(opts("orders_rejected_total", "拒单数，按错误码"), []string{"symbol", "code"}),
		ordersCancelled: factory.NewCounterVec(opts("orders_cancelled_total", "撤单数，按原因"), []string{"symbol", "reason"}),
		ordersModified:  factory.NewCounterVec(opts("orders_modified_total", "改单数"), []string{"symbol"}),
		matchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "match_latency_seconds",
			Help:      "撮合耗时分布（秒）",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"symbol"}),

		tradesTotal:  factory.NewCounterVec(opts("trades_total", "成交笔数"), []string{"symbol"}),
		tradedVolume: factory.NewCounterVec(opts("traded_volume_total", "累计成交量"), []string{"symbol"}),
		lastPrice:    factory.NewGaugeVec(gauge("last_price", "最新成交价"), []string{"symbol"}),

		bookLevels:    factory.NewGaugeVec(gauge("book_levels", "盘口价位数"), []string{"symbol", "side"}),
		marketState:   factory.NewGaugeVec(gauge("market_state", "市场状态编码"), []string{"symbol"}),
		breakerTrips:  factory.NewCounterVec(opts("circuit_breaker_trips_total", "熔断次数"), []string{"symbol", "level"}),
		dispatchQueue: factory.NewGauge(gauge("dispatch_queue_length", "事件分发队列积压")),
	}
}

func (m *Monitor) OrderSubmitted(symbol string, typ order.Type) {
	m.ordersSubmitted.WithLabelValues(symbol, string(typ)).Inc()
}

func (m *Monitor) OrderRejected(symbol string, code order.Code) {
	m.ordersRejected.WithLabelValues(symbol, string(code)).Inc()
}

func (m *Monitor) MatchLatency(symbol string, d time.Duration) {
	m.matchLatency.WithLabelValues(symbol).Observe(d.Seconds())
}

func (m *Monitor) MarketStateChanged(symbol string, state risk.MarketState) {
	m.marketState.WithLabelValues(symbol).Set(float64(state.Level()))
}

func (m *Monitor) BookDepth(symbol string, bidLevels, askLevels int) {
	m.bookLevels.WithLabelValues(symbol, "bid").Set(float64(bidLevels))
	m.bookLevels.WithLabelValues(symbol, "ask").Set(float64(askLevels))
}

func (m *Monitor) QueueDepth(n int) {
	m.dispatchQueue.Set(float64(n))
}

func (m *Monitor) OnOrderPlaced(order.Order) {}

func (m *Monitor) OnTrade(t order.Trade) {
	m.tradesTotal.WithLabelValues(t.Symbol).Inc()
	m.tradedVolume.WithLabelValues(t.Symbol).Add(float64(t.Quantity))
	m.lastPrice.WithLabelValues(t.Symbol).Set(t.Price.InexactFloat64())
}

func (m *Monitor) OnOrderCancelled(ev engine.CancelEvent) {
	m.ordersCancelled.WithLabelValues(ev.Order.Symbol, ev.Reason).Inc()
}

func (m *Monitor) OnOrderModified(ev engine.ModifyEvent) {
	m.ordersModified.WithLabelValues(ev.New.Symbol).Inc()
}

func (m *Monitor) OnMarketStateChanged(ev engine.StateEvent) {
	switch ev.To {
	case risk.StateCircuitBreakerL1:
		m.breakerTrips.WithLabelValues(ev.Symbol, "L1").Inc()
	case risk.StateCircuitBreakerL2:
		m.breakerTrips.WithLabelValues(ev.Symbol, "L2").Inc()
	}
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回Prometheus注册表
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
