package logging

import (
	"io"
	"os"
	"strings"
)

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	// Format 输出格式: "text"（默认）或 "json"
	Format string
	Output io.Writer
	// Async 启用后日志在后台协程中写出，Close 时刷新
	Async      bool
	BufferSize int
}

// ConsoleLoggerProvider 控制台日志提供者
type ConsoleLoggerProvider struct {
	LevelSwitch
	writer EntryWriter
	async  *AsyncWriter
}

// NewConsoleLoggerProvider 创建控制台日志提供者
func NewConsoleLoggerProvider(options ConsoleLoggerOptions) *ConsoleLoggerProvider {
	if options.Output == nil {
		options.Output = os.Stdout
	}

	var formatter Formatter
	if strings.EqualFold(options.Format, "json") {
		formatter = NewJsonFormatter()
	} else {
		text := NewTextFormatter()
		text.IncludeTimestamp = options.IncludeTimestamp
		if options.TimestampFormat != "" {
			text.TimestampFormat = options.TimestampFormat
		}
		text.ColorOutput = options.ColorOutput
		formatter = text
	}

	p := &ConsoleLoggerProvider{}
	p.SetMinimumLevel(LogLevelInfo)

	var writer EntryWriter = NewFormatWriter(options.Output, formatter)
	if options.Async {
		p.async = NewAsyncWriter(writer, options.BufferSize)
		writer = p.async
	}
	p.writer = writer

	return p
}

func (p *ConsoleLoggerProvider) CreateLogger(category string) Logger {
	return NewWriterLogger(category, &p.LevelSwitch, p.writer)
}

// Close 刷新异步队列；标准输出本身不会被关闭
func (p *ConsoleLoggerProvider) Close() error {
	if p.async != nil {
		return p.async.Close()
	}
	return nil
}
