package container

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matching-engine-go/config"
	"matching-engine-go/infrastructure/alert"
	"matching-engine-go/infrastructure/logger"
	"matching-engine-go/infrastructure/monitor"
	"matching-engine-go/internal/engine"
	"matching-engine-go/inventory"
	"matching-engine-go/market"
)

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	cfg  config.AppConfig
	path string // 为空时不启用热更新

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor
	alerts  *alert.Manager

	// 核心服务
	engine     *engine.Engine
	marketData *market.Service
	ledger     *inventory.Ledger
	positions  *inventory.Tracker
	settler    *inventory.Settler
	gateway    *Gateway

	lifecycle *LifecycleManager
}

// New 从配置文件创建 Container。
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	c := NewFromConfig(cfg)
	c.path = configPath
	return c, nil
}

// NewFromConfig 用已加载的配置创建 Container，不监听配置文件。
func NewFromConfig(cfg config.AppConfig) *Container {
	return &Container{cfg: cfg, lifecycle: NewLifecycleManager()}
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}
	if err := c.buildCoreServices(); err != nil {
		return fmt.Errorf("build core services failed: %w", err)
	}
	c.registerLifecycleComponents()
	c.logger.Info("container built", zap.String("env", c.cfg.Env))
	return nil
}

func (c *Container) buildInfrastructure() error {
	var err error
	c.logger, err = logger.New(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}
	c.monitor = monitor.New(monitor.DefaultConfig())
	c.alerts = alert.NewManager([]alert.Channel{alert.NewLogChannel("log", c.logger.Logger)}, time.Minute)
	return nil
}

func (c *Container) buildCoreServices() error {
	zl := c.logger.Logger
	c.marketData = market.NewService(c.cfg.MarketData, nil, nil, zl.Named("market"))

	listeners := []engine.Listener{
		c.marketData.Listener(),
		c.monitor,
		logger.NewAudit(c.logger),
		alert.NewMarketAlerts(c.alerts, zl).Listener(),
	}
	if c.cfg.Ledger.Enabled {
		c.ledger = inventory.NewLedger()
		c.positions = inventory.NewTracker()
		c.settler = inventory.NewSettler(c.ledger, c.positions, c.cfg.Ledger.QuoteAsset, zl.Named("settle"))
		listeners = append(listeners, c.settler)
		if err := c.seedBalances(); err != nil {
			return err
		}
	}

	opts := []engine.Option{
		engine.WithLogger(zl.Named("engine")),
		engine.WithRules(c.cfg.Rules),
		engine.WithObserver(c.monitor),
		engine.WithListener(listeners...),
		engine.WithQueueSize(c.cfg.Engine.QueueSize),
	}
	if c.cfg.Engine.InitialState != "" {
		opts = append(opts, engine.WithInitialState(c.cfg.Engine.InitialState))
	}
	eng, err := engine.New(opts...)
	if err != nil {
		return fmt.Errorf("create engine failed: %w", err)
	}
	c.engine = eng
	c.marketData.SetSource(eng)

	for _, sc := range c.cfg.Engine.Symbols {
		eng.Book(sc.Name)
		if sc.PreviousClose.IsPositive() {
			if err := eng.SetPreviousClose(sc.Name, sc.PreviousClose); err != nil {
				return fmt.Errorf("symbol %s: %w", sc.Name, err)
			}
		}
	}

	c.gateway = &Gateway{
		engine:  eng,
		market:  c.marketData,
		settler: c.settler,
		logger:  zl.Named("gateway"),
	}
	if c.ledger != nil {
		c.gateway.accounts = &inventory.Sync{Ledger: c.ledger, Tracker: c.positions, Mark: c.mark}
	}
	return nil
}

func (c *Container) seedBalances() error {
	for acc, assets := range c.cfg.Ledger.Balances {
		for asset, amt := range assets {
			if err := c.ledger.Add(acc, asset, amt); err != nil {
				return fmt.Errorf("seed %s/%s: %w", acc, asset, err)
			}
		}
	}
	return nil
}

// mark 估值用标记价：最新成交价，无成交时用昨收。
func (c *Container) mark(symbol string) decimal.Decimal {
	if t, ok := c.marketData.Ticker(symbol); ok && t.Last.IsPositive() {
		return t.Last
	}
	return c.engine.Snapshot(symbol, 0).PreviousClose
}

func (c *Container) registerLifecycleComponents() {
	c.lifecycle.Register(&engineComponent{eng: c.engine})
	if c.cfg.Monitor.Enabled {
		c.lifecycle.Register(&httpServerComponent{
			name:    "metrics_server",
			handler: c.monitor.Handler(),
			addr:    c.cfg.Monitor.Addr,
			logger:  c.logger,
		})
	}
	if c.path != "" {
		c.lifecycle.Register(&watcherComponent{
			watcher: config.Watcher{Path: c.path, Logger: c.logger.Named("config")},
			apply:   c.applyConfig,
		})
	}
}

// applyConfig 热更新只替换准入参数，其余结构性配置需重启生效。
func (c *Container) applyConfig(next config.AppConfig) {
	if !config.RulesChanged(c.engine.Rules(), next.Rules) {
		return
	}
	if err := c.engine.UpdateRules(next.Rules); err != nil {
		c.logger.LogError(err, zap.String("action", "update_rules"))
	}
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")
	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	c.logger.Info("container started")
	return nil
}

// Stop 逆序停止组件，分发队列排空后输出会话统计。
func (c *Container) Stop() error {
	c.logger.Info("stopping container...")
	err := c.lifecycle.StopAll()
	if err != nil {
		c.logger.LogError(err, zap.String("action", "stop"))
	}

	st := c.engine.Stats()
	c.logger.Info("session statistics",
		zap.Time("started", st.StartTime),
		zap.Int64("submitted", st.Submitted),
		zap.Int64("rejected", st.Rejected),
		zap.Int64("trades", st.Trades),
		zap.Int64("cancelled", st.Cancelled),
		zap.Int64("modified", st.Modified),
		zap.Int("books", st.Books))
	_ = c.logger.Close()
	return err
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

func (c *Container) Engine() *engine.Engine { return c.engine }
func (c *Container) MarketData() *market.Service { return c.marketData }
func (c *Container) Gateway() *Gateway { return c.gateway }
func (c *Container) Ledger() *inventory.Ledger { return c.ledger }
func (c *Container) Monitor() *monitor.Monitor { return c.monitor }
