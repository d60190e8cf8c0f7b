package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"matching-engine-go/infrastructure/logger"
	"matching-engine-go/market"
	"matching-engine-go/risk"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env        string        `yaml:"env"`
	Engine     EngineConfig  `yaml:"engine"`
	Rules      risk.Rules    `yaml:"rules"`
	MarketData market.Config `yaml:"marketData"`
	Log        logger.Config `yaml:"log"`
	Monitor    MonitorConfig `yaml:"monitor"`
	Ledger     LedgerConfig  `yaml:"ledger"`
}

// EngineConfig 结构性参数，修改后需要重启。
type EngineConfig struct {
	QueueSize    int              `yaml:"queueSize"`    // 事件分发队列长度
	InitialState risk.MarketState `yaml:"initialState"` // 新建品种的初始状态
	Symbols      []SymbolConfig   `yaml:"symbols"`
}

// SymbolConfig 启动时预建的品种及其昨收价。
type SymbolConfig struct {
	Name          string          `yaml:"name"`
	PreviousClose decimal.Decimal `yaml:"previousClose"`
}

type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LedgerConfig 账本参数。Balances 为启动时注入的初始可用余额：账户 -> 资产 -> 数量。
type LedgerConfig struct {
	Enabled    bool                                  `yaml:"enabled"`
	QuoteAsset string                                `yaml:"quoteAsset"`
	Balances   map[string]map[string]decimal.Decimal `yaml:"balances"`
}

// Default 返回带默认值的配置，YAML 中出现的字段覆盖默认值。
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Engine: EngineConfig{
			QueueSize:    4096,
			InitialState: risk.StateContinuous,
		},
		Rules:      risk.DefaultRules(),
		MarketData: market.DefaultConfig(),
		Log:        logger.DefaultConfig(),
		Monitor:    MonitorConfig{Addr: ":9102"},
		Ledger:     LedgerConfig{QuoteAsset: "USD"},
	}
}

// Load reads YAML config from path and applies validation.
func Load(path string) (AppConfig, error) {
	cfg, err := parse(path)
	if err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

func parse(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deployment fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := parse(path)
	if err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, Validate(cfg)
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("ME_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("ME_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ME_METRICS_ADDR"); v != "" {
		cfg.Monitor.Addr = v
		cfg.Monitor.Enabled = true
	}
}
