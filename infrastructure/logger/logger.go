package logger

import (
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"matching-engine-go/order"
)

// Logger 封装zap日志器，提供结构化日志功能
type Logger struct {
	*zap.Logger
	config Config
	files  []*os.File
}

// Config 日志配置
type Config struct {
	Level      string   `yaml:"level"`       // debug, info, warn, error
	Outputs    []string `yaml:"outputs"`     // stdout, file
	OutputFile string   `yaml:"output_file"` // 日志文件路径
	ErrorFile  string   `yaml:"error_file"`  // 错误日志单独文件
	Format     string   `yaml:"format"`      // json 或 console
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Outputs: []string{"stdout"},
		Format:  "json",
	}
}

// New 创建新的Logger实例
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l := &Logger{config: cfg}
	var cores []zapcore.Core

	if slices.Contains(cfg.Outputs, "stdout") {
		var encoder zapcore.Encoder
		if cfg.Format == "console" {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}

	// 文件一律 JSON
	if slices.Contains(cfg.Outputs, "file") && cfg.OutputFile != "" {
		f, err := l.open(cfg.OutputFile)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), level))
	}

	// 错误日志单独文件
	if cfg.ErrorFile != "" {
		f, err := l.open(cfg.ErrorFile)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zapcore.ErrorLevel))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return l, nil
}

func (l *Logger) open(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		l.closeFiles()
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	l.files = append(l.files, f)
	return f, nil
}

// Wrap 用已有的 zap.Logger 构造，测试中配合 zaptest/observer 使用。
func Wrap(z *zap.Logger) *Logger {
	return &Logger{Logger: z}
}

// WithFields 添加字段返回新的logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &Logger{Logger: l.Logger.With(zapFields...), config: l.config}
}

// OrderFields 订单的标准日志字段。
func OrderFields(o order.Order) []zap.Field {
	fields := []zap.Field{
		zap.String("order_id", o.ID),
		zap.String("account", o.AccountID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("type", string(o.Type)),
		zap.Int64("qty", o.Quantity),
		zap.Int64("filled", o.FilledQuantity),
		zap.String("status", string(o.Status)),
	}
	if o.Type.Priced() {
		fields = append(fields, zap.String("price", o.Price.String()))
	}
	if o.Type.Triggered() {
		fields = append(fields, zap.String("stop_price", o.StopPrice.String()))
	}
	return fields
}

// LogOrder 记录订单相关事件
func (l *Logger) LogOrder(event string, o order.Order, extra ...zap.Field) {
	fields := append([]zap.Field{zap.String("event", event)}, OrderFields(o)...)
	l.Info("order_event", append(fields, extra...)...)
}

// LogTrade 记录成交
func (l *Logger) LogTrade(t order.Trade) {
	l.Info("trade_event",
		zap.String("event", "trade"),
		zap.String("trade_id", t.ID),
		zap.String("symbol", t.Symbol),
		zap.String("price", t.Price.String()),
		zap.Int64("qty", t.Quantity),
		zap.String("buy_order", t.BuyOrderID),
		zap.String("sell_order", t.SellOrderID),
		zap.String("aggressor", string(t.AggressorSide)),
		zap.Uint64("seq", t.Sequence),
	)
}

// LogError 记录错误并附带上下文
func (l *Logger) LogError(err error, fields ...zap.Field) {
	l.Error("error_event", append(fields, zap.Error(err))...)
}

// LogRisk 记录风控事件（熔断、停牌、拒单）
func (l *Logger) LogRisk(event, symbol string, fields ...zap.Field) {
	l.Warn("risk_event", append([]zap.Field{zap.String("event", event), zap.String("symbol", symbol)}, fields...)...)
}

// Close 刷新并关闭日志文件
func (l *Logger) Close() error {
	_ = l.Sync() // stdout 上 Sync 可能返回 EINVAL
	return l.closeFiles()
}

func (l *Logger) closeFiles() error {
	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.files = nil
	return first
}
