// Package zerolog 将日志条目转发到 zerolog.Logger
//
// Provider 不实现 io.Closer，底层输出由调用方管理，工厂释放时会跳过它。
package zerolog

import (
	"github.com/gocrud/logkit/logging"
	"github.com/rs/zerolog"
)

// CategoryField 类别写入的字段名
const CategoryField = "category"

// Provider zerolog 适配提供者
type Provider struct {
	logging.LevelSwitch
	logger zerolog.Logger
}

// NewProvider 创建 zerolog 适配提供者
func NewProvider(logger zerolog.Logger) *Provider {
	p := &Provider{logger: logger}
	p.SetMinimumLevel(logging.LogLevelInfo)
	return p
}

func (p *Provider) CreateLogger(category string) logging.Logger {
	return logging.NewWriterLogger(category, &p.LevelSwitch, logging.EntryWriterFunc(p.write))
}

func (p *Provider) write(entry *logging.LogEntry) {
	// WithLevel 不会因 Fatal 退出进程
	event := p.logger.WithLevel(toZerologLevel(entry.Level))
	if event == nil {
		return
	}

	if entry.Category != "" {
		event = event.Str(CategoryField, entry.Category)
	}
	for _, field := range entry.Fields {
		if err, ok := field.Value.(error); ok {
			event = event.AnErr(field.Key, err)
			continue
		}
		event = event.Interface(field.Key, field.Value)
	}
	event.Msg(entry.Message)
}

func toZerologLevel(level logging.LogLevel) zerolog.Level {
	switch level {
	case logging.LogLevelTrace:
		return zerolog.TraceLevel
	case logging.LogLevelDebug:
		return zerolog.DebugLevel
	case logging.LogLevelInfo:
		return zerolog.InfoLevel
	case logging.LogLevelWarn:
		return zerolog.WarnLevel
	case logging.LogLevelError:
		return zerolog.ErrorLevel
	case logging.LogLevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.NoLevel
	}
}
