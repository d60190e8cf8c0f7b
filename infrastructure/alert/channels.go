package alert

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogChannel 以结构化日志输出告警。
type LogChannel struct {
	logger *zap.Logger
	name   string
}

// NewLogChannel 创建日志告警通道，logger 为空时丢弃。
func NewLogChannel(name string, logger *zap.Logger) *LogChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogChannel{logger: logger.Named("alert"), name: name}
}

func levelOf(l Level) zapcore.Level {
	switch l {
	case LevelWarning:
		return zapcore.WarnLevel
	case LevelError, LevelCritical:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Send 发送告警到日志
func (c *LogChannel) Send(alert Alert) error {
	fields := make([]zap.Field, 0, len(alert.Fields)+3)
	fields = append(fields,
		zap.String("level", string(alert.Level)),
		zap.String("symbol", alert.Symbol),
		zap.Time("at", alert.Timestamp))
	for k, v := range alert.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	if ce := c.logger.Check(levelOf(alert.Level), alert.Message); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

// Name 返回通道名称
func (c *LogChannel) Name() string {
	return c.name
}
