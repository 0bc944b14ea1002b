// Package hclog 将日志条目转发到 hclog.Logger，类别映射为 hclog 的子 Logger 名称
package hclog

import (
	"github.com/gocrud/logkit/logging"
	"github.com/hashicorp/go-hclog"
)

// Provider hclog 适配提供者
type Provider struct {
	logging.LevelSwitch
	logger hclog.Logger
}

// NewProvider 创建 hclog 适配提供者
func NewProvider(logger hclog.Logger) *Provider {
	p := &Provider{logger: logger}
	p.SetMinimumLevel(logging.LogLevelInfo)
	return p
}

// SetMinimumLevel 同步调整 hclog 自身的级别
func (p *Provider) SetMinimumLevel(level logging.LogLevel) {
	p.LevelSwitch.SetMinimumLevel(level)
	p.logger.SetLevel(toHclogLevel(level))
}

func (p *Provider) CreateLogger(category string) logging.Logger {
	named := p.logger
	if category != "" {
		named = p.logger.Named(category)
	}

	return logging.NewWriterLogger(category, &p.LevelSwitch, logging.EntryWriterFunc(func(entry *logging.LogEntry) {
		args := make([]interface{}, 0, len(entry.Fields)*2)
		for _, field := range entry.Fields {
			args = append(args, field.Key, field.Value)
		}
		named.Log(toHclogLevel(entry.Level), entry.Message, args...)
	}))
}

// hclog 没有 Fatal 级别，映射为 Error
func toHclogLevel(level logging.LogLevel) hclog.Level {
	switch level {
	case logging.LogLevelTrace:
		return hclog.Trace
	case logging.LogLevelDebug:
		return hclog.Debug
	case logging.LogLevelInfo:
		return hclog.Info
	case logging.LogLevelWarn:
		return hclog.Warn
	default:
		return hclog.Error
	}
}
